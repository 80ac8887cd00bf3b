package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/sheetboard/internal/config"
	"github.com/Tiliavir/sheetboard/internal/model"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every recorded time to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
}

func runExport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if exportFormat != "csv" && exportFormat != "json" {
		return usageError(fmt.Errorf("unknown format %q (want csv or json)", exportFormat))
	}
	return exportHistory(context.Background(), mustLoadConfig(), os.Stdout, exportFormat)
}

// exportHistory writes every recorded time to w in the given format.
func exportHistory(ctx context.Context, cfg config.Config, w io.Writer, format string) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return runtimeError(err)
	}
	defer closeStore()

	engine, err := newEngine(cfg, store, log.New(os.Stderr, "", 0))
	if err != nil {
		return usageError(err)
	}

	rows, err := engine.History(ctx)
	if err != nil {
		return runtimeError(err)
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return runtimeError(fmt.Errorf("error encoding JSON: %w", err))
		}
		fmt.Fprintln(w, string(data))
	default: // csv
		fmt.Fprint(w, formatCSV(rows))
	}
	return nil
}

// formatCSV writes one line per recorded cell.
func formatCSV(rows []model.LeaderboardRow) string {
	var b strings.Builder
	b.WriteString("date,name,seconds\n")
	for _, r := range rows {
		for _, e := range r.Entries {
			b.WriteString(csvEscape(r.Date))
			b.WriteByte(',')
			b.WriteString(csvEscape(e.Name))
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(e.Seconds))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
