package leaderboard

import (
	"context"
	"fmt"

	"github.com/Tiliavir/sheetboard/internal/model"
	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

// History returns every allocated date row with its entries, in grid
// order. Rows whose label is not a date are logged and left out. It only
// reads.
func (e *Engine) History(ctx context.Context) ([]model.LeaderboardRow, error) {
	ctx, span := tracer.Start(ctx, "leaderboard.History")
	defer span.End()

	col, err := e.store.ReadColumn(ctx, DateColumn)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reading date column: %w", err)
	}
	rows, labels, err := dateRows(col)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	roster, err := e.Roster(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := make([]model.LeaderboardRow, 0, len(rows))
	for i, row := range rows {
		if _, err := timecalc.ParseDateLabel(labels[i], e.loc); err != nil {
			e.logger.Printf("skipping row %d: %v", row, err)
			continue
		}
		cells, err := e.store.ReadRow(ctx, row)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("reading row %d: %w", row, err)
		}
		out = append(out, e.collect(roster, row, labels[i], cells))
	}
	return out, nil
}
