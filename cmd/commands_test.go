package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tiliavir/sheetboard/internal/config"
	"github.com/Tiliavir/sheetboard/internal/grid"
	"github.com/Tiliavir/sheetboard/internal/leaderboard"
)

func boltConfig(t *testing.T) config.Config {
	t.Helper()
	var cfg config.Config
	cfg.Store.Backend = config.BackendBolt
	cfg.Store.BoltPath = filepath.Join(t.TempDir(), "sheetboard.db")
	cfg.Board.Timezone = "UTC"
	cfg.Board.TopN = config.DefaultTopN
	return cfg
}

// seedCorrupt writes a date column with a gap at row 3.
func seedCorrupt(t *testing.T, path string) {
	t.Helper()
	b, err := grid.NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt: %v", err)
	}
	defer b.Close()
	ctx := context.Background()
	for row, label := range map[int]string{2: "2026-02-25", 4: "2026-02-26"} {
		if err := b.WriteCell(ctx, row, leaderboard.DateColumn, label); err != nil {
			t.Fatalf("WriteCell: %v", err)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"usage", usageError(errors.New("bad flag")), 1},
		{"runtime", runtimeError(errors.New("store down")), 2},
		{"plain", errors.New("unknown command"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestFailedCommandsReleaseStore(t *testing.T) {
	var out bytes.Buffer
	tests := []struct {
		name string
		run  func(ctx context.Context, cfg config.Config) error
	}{
		{"record", func(ctx context.Context, cfg config.Config) error {
			return recordTime(ctx, cfg, &out, "Alice", 1, 30)
		}},
		{"stats", func(ctx context.Context, cfg config.Config) error {
			return showStats(ctx, cfg, &out, "md")
		}},
		{"export", func(ctx context.Context, cfg config.Config) error {
			return exportHistory(ctx, cfg, &out, "csv")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := boltConfig(t)
			seedCorrupt(t, cfg.Store.BoltPath)

			err := tt.run(context.Background(), cfg)
			if !errors.Is(err, leaderboard.ErrCorruptRowIndex) {
				t.Fatalf("err = %v, want corrupt row index", err)
			}
			if got := exitCode(err); got != 2 {
				t.Errorf("exitCode = %d, want 2", got)
			}

			// The file lock must be free again.
			b, err := grid.NewBolt(cfg.Store.BoltPath)
			if err != nil {
				t.Fatalf("reopening store: %v", err)
			}
			b.Close()
		})
	}
}

func TestRecordThenExport(t *testing.T) {
	ctx := context.Background()
	cfg := boltConfig(t)

	var out bytes.Buffer
	if err := recordTime(ctx, cfg, &out, "Alice", 1, 30); err != nil {
		t.Fatalf("recordTime: %v", err)
	}
	if !strings.Contains(out.String(), "#1 Alice 90s") {
		t.Errorf("record output missing ranking:\n%s", out.String())
	}

	out.Reset()
	if err := exportHistory(ctx, cfg, &out, "csv"); err != nil {
		t.Fatalf("exportHistory: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[0] != "date,name,seconds" || !strings.HasSuffix(lines[1], ",Alice,90") {
		t.Errorf("export output = %q", out.String())
	}
}
