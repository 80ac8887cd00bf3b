package leaderboard

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

// findDateRow scans a date column read (index 0 is the header row) from
// FirstDateRow down. It returns the row holding label, or the first empty
// row with fresh set. A populated cell below an empty one is corruption.
func findDateRow(col []string, label string) (row int, fresh bool, err error) {
	gap := 0
	for r := FirstDateRow; r <= len(col); r++ {
		v := col[r-1]
		switch {
		case v == "":
			if gap == 0 {
				gap = r
			}
		case gap != 0:
			return 0, false, &CorruptRowIndexError{Gap: gap, Row: r}
		case v == label:
			return r, false, nil
		}
	}
	if gap != 0 {
		return gap, true, nil
	}
	return max(len(col)+1, FirstDateRow), true, nil
}

// dateRows returns every allocated date row with its label, in grid order.
func dateRows(col []string) ([]int, []string, error) {
	var rows []int
	var labels []string
	gap := 0
	for r := FirstDateRow; r <= len(col); r++ {
		v := col[r-1]
		if v == "" {
			if gap == 0 {
				gap = r
			}
			continue
		}
		if gap != 0 {
			return nil, nil, &CorruptRowIndexError{Gap: gap, Row: r}
		}
		rows = append(rows, r)
		labels = append(labels, v)
	}
	return rows, labels, nil
}

// ResolveRow returns the row for date, writing the date label into the
// first free row when the date has none yet.
func (e *Engine) ResolveRow(ctx context.Context, date time.Time) (int, error) {
	label := timecalc.DateLabel(date)
	ctx, span := tracer.Start(ctx, "leaderboard.ResolveRow",
		trace.WithAttributes(attribute.String("leaderboard.date", label)))
	defer span.End()

	e.allocMu.Lock()
	defer e.allocMu.Unlock()

	col, err := e.store.ReadColumn(ctx, DateColumn)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("reading date column: %w", err)
	}

	row, fresh, err := findDateRow(col, label)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if fresh {
		if err := e.store.WriteCell(ctx, row, DateColumn, label); err != nil {
			span.RecordError(err)
			return 0, fmt.Errorf("allocating row %d for %s: %w", row, label, err)
		}
		e.logger.Printf("allocated row %d for date %s", row, label)
	}
	span.SetAttributes(attribute.Int("leaderboard.row", row), attribute.Bool("leaderboard.allocated", fresh))
	return row, nil
}
