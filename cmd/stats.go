package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/sheetboard/internal/config"
	"github.com/Tiliavir/sheetboard/internal/model"
	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the leaderboard for today's logical date",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "md", "Output format: md, json")
}

func runStats(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if statsFormat != "md" && statsFormat != "json" {
		return usageError(fmt.Errorf("unknown format %q (want md or json)", statsFormat))
	}
	return showStats(context.Background(), mustLoadConfig(), os.Stdout, statsFormat)
}

// showStats prints today's summary to w in the given format.
func showStats(ctx context.Context, cfg config.Config, w io.Writer, format string) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return runtimeError(err)
	}
	defer closeStore()

	engine, err := newEngine(cfg, store, log.New(io.Discard, "", 0))
	if err != nil {
		return usageError(err)
	}

	summary, err := engine.Summarize(ctx, engine.LogicalDate())
	if err != nil {
		return runtimeError(err)
	}

	if format == "json" {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return runtimeError(fmt.Errorf("error encoding JSON: %w", err))
		}
		fmt.Fprintln(w, string(data))
		return nil
	}
	fmt.Fprint(w, markdownSummary(summary))
	return nil
}

// markdownSummary renders a summary as a Markdown table.
func markdownSummary(s model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", s.Date)
	if len(s.Ranking) == 0 {
		b.WriteString("No times logged yet.\n")
		return b.String()
	}
	b.WriteString("| # | Name | Time |\n")
	b.WriteString("|---|------|------|\n")
	for _, r := range s.Ranking {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", r.Rank, markdownEscape(r.Name), timecalc.FormatDuration(int64(r.Seconds)))
	}
	if s.Average != nil {
		fmt.Fprintf(&b, "\nAverage of %d: %.2fs\n", s.Entrants, *s.Average)
	}
	return b.String()
}

func markdownEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
