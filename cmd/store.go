package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/Tiliavir/sheetboard/internal/config"
	"github.com/Tiliavir/sheetboard/internal/grid"
	"github.com/Tiliavir/sheetboard/internal/leaderboard"
	"github.com/Tiliavir/sheetboard/internal/sheets"
)

// openStore opens the configured grid backend. The returned close function
// is never nil.
func openStore(ctx context.Context, cfg config.Config) (grid.Store, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return grid.NewMemory(), nop, nil
	case config.BackendBolt:
		b, err := grid.NewBolt(cfg.Store.BoltPath)
		if err != nil {
			return nil, nop, err
		}
		return b, b.Close, nil
	case config.BackendSheets:
		if cfg.Store.SpreadsheetID == "" {
			return nil, nop, fmt.Errorf("store.spreadsheet_id is not set")
		}
		oc := sheets.OAuth2Config(cfg.Store.ClientID, cfg.Store.ClientSecret)
		httpClient, err := sheets.NewHTTPClient(ctx, oc, cfg.Store.TokenFile)
		if err != nil {
			return nil, nop, fmt.Errorf("%w (run: sheetboard auth)", err)
		}
		return sheets.NewClient(httpClient, cfg.Store.SpreadsheetID, cfg.Store.SheetName), nop, nil
	default:
		return nil, nop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newEngine builds a leaderboard engine from the configuration.
func newEngine(cfg config.Config, store grid.Store, logger *log.Logger) (*leaderboard.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return leaderboard.New(store,
		leaderboard.WithLocation(loc),
		leaderboard.WithTopN(cfg.Board.TopN),
		leaderboard.WithLogger(logger),
	), nil
}
