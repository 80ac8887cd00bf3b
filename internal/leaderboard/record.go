package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tiliavir/sheetboard/internal/model"
	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

// RecordTime stores minutes*60+seconds for name under today's logical date,
// replacing any earlier value in the same cell. Seconds above 59 are not
// normalized. Negative parts and totals that do not fit in an int are
// rejected with ErrInvalidTime before anything is written.
func (e *Engine) RecordTime(ctx context.Context, name string, minutes, seconds int) (model.TimeResult, error) {
	if !timecalc.ValidMinutesSeconds(minutes, seconds) {
		return model.TimeResult{}, fmt.Errorf("%w: %d:%d", ErrInvalidTime, minutes, seconds)
	}
	if name == "" {
		return model.TimeResult{}, ErrEmptyName
	}

	date := e.LogicalDate()
	total := timecalc.TotalSeconds(minutes, seconds)

	ctx, span := tracer.Start(ctx, "leaderboard.RecordTime",
		trace.WithAttributes(
			attribute.String("leaderboard.name", name),
			attribute.String("leaderboard.date", timecalc.DateLabel(date)),
			attribute.Int("leaderboard.seconds", total),
		))
	defer span.End()

	row, err := e.ResolveRow(ctx, date)
	if err != nil {
		span.RecordError(err)
		return model.TimeResult{}, err
	}
	col, err := e.ResolveColumn(ctx, name)
	if err != nil {
		span.RecordError(err)
		return model.TimeResult{}, err
	}
	if err := e.store.WriteCell(ctx, row, col, strconv.Itoa(total)); err != nil {
		span.RecordError(err)
		return model.TimeResult{}, fmt.Errorf("writing time for %q: %w", name, err)
	}

	return model.TimeResult{
		Name:    name,
		Date:    date,
		Seconds: total,
		Row:     row,
		Column:  col,
	}, nil
}
