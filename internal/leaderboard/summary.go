package leaderboard

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tiliavir/sheetboard/internal/grid"
	"github.com/Tiliavir/sheetboard/internal/model"
	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

// Summarize ranks the entries recorded for date. The date's row is
// allocated if it does not exist yet, yielding an empty summary.
func (e *Engine) Summarize(ctx context.Context, date time.Time) (model.Summary, error) {
	label := timecalc.DateLabel(date)
	ctx, span := tracer.Start(ctx, "leaderboard.Summarize",
		trace.WithAttributes(attribute.String("leaderboard.date", label)))
	defer span.End()

	row, err := e.ResolveRow(ctx, date)
	if err != nil {
		span.RecordError(err)
		return model.Summary{}, err
	}
	lr, err := e.readRow(ctx, row, label)
	if err != nil {
		span.RecordError(err)
		return model.Summary{}, err
	}

	summary := Rank(lr, e.topN)
	span.SetAttributes(attribute.Int("leaderboard.entrants", summary.Entrants))
	return summary, nil
}

// readRow pairs the populated cells of row with their header names.
func (e *Engine) readRow(ctx context.Context, row int, label string) (model.LeaderboardRow, error) {
	header, err := e.store.ReadRow(ctx, HeaderRow)
	if err != nil {
		return model.LeaderboardRow{}, fmt.Errorf("reading header row: %w", err)
	}
	cells, err := e.store.ReadRow(ctx, row)
	if err != nil {
		return model.LeaderboardRow{}, fmt.Errorf("reading row %d: %w", row, err)
	}
	return e.collect(NewRoster(header), row, label, cells), nil
}

// collect filters a row read down to entries with a name and a valid
// duration, in column order. Anything else is logged and skipped.
func (e *Engine) collect(roster *Roster, row int, label string, cells []string) model.LeaderboardRow {
	lr := model.LeaderboardRow{Date: label, Row: row}
	for col := FirstNameColumn; col <= len(cells); col++ {
		v := strings.TrimSpace(grid.Cell(cells, col))
		if v == "" {
			continue
		}
		name := roster.Name(col)
		if name == "" {
			e.logger.Printf("skipping cell (%d,%d) on %s: no participant in header", row, col, label)
			continue
		}
		if first, _ := roster.Column(name); first != col {
			e.logger.Printf("skipping cell (%d,%d) on %s: duplicate header %q", row, col, label, name)
			continue
		}
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			e.logger.Printf("skipping cell (%d,%d) on %s: %q is not a duration", row, col, label, v)
			continue
		}
		lr.Entries = append(lr.Entries, model.Entry{Name: name, Column: col, Seconds: secs})
	}
	return lr
}

// Rank orders entries by ascending duration, ties by column, and keeps the
// first topN. The average covers every entry, not only the ranked ones.
func Rank(lr model.LeaderboardRow, topN int) model.Summary {
	summary := model.Summary{
		Date:     lr.Date,
		Ranking:  []model.Ranked{},
		Entrants: len(lr.Entries),
	}
	if len(lr.Entries) == 0 {
		return summary
	}

	sorted := slices.Clone(lr.Entries)
	slices.SortFunc(sorted, func(a, b model.Entry) int {
		return cmp.Or(cmp.Compare(a.Seconds, b.Seconds), cmp.Compare(a.Column, b.Column))
	})

	// Summed as float64: cells may hold values near math.MaxInt.
	var total float64
	for _, entry := range sorted {
		total += float64(entry.Seconds)
	}
	avg := total / float64(len(sorted))
	summary.Average = &avg

	for i, entry := range sorted {
		if i >= topN {
			break
		}
		summary.Ranking = append(summary.Ranking, model.Ranked{
			Rank:    i + 1,
			Name:    entry.Name,
			Seconds: entry.Seconds,
		})
	}
	return summary
}

// Format renders a summary as the plain-text chat reply.
func Format(s model.Summary) string {
	if len(s.Ranking) == 0 {
		return fmt.Sprintf("No times logged for %s yet.", s.Date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Top times for %s:", s.Date)
	for _, r := range s.Ranking {
		fmt.Fprintf(&b, "\n#%d %s %s", r.Rank, r.Name, timecalc.FormatSeconds(r.Seconds))
	}
	if s.Average != nil {
		fmt.Fprintf(&b, "\nAverage: %.2fs", *s.Average)
	}
	return b.String()
}
