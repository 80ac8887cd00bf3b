package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/sheetboard/internal/command"
	"github.com/Tiliavir/sheetboard/internal/config"
	"github.com/Tiliavir/sheetboard/internal/leaderboard"
	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

var recordCmd = &cobra.Command{
	Use:   "record <name> <minutes:seconds>",
	Short: "Record a time for a participant under today's date",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	name, arg := args[0], args[1]
	minutes, seconds, ok := command.ParseMinutesSeconds(arg)
	if !ok {
		return usageError(fmt.Errorf("invalid time %q: want minutes:seconds, e.g. 1:30", arg))
	}
	return recordTime(context.Background(), mustLoadConfig(), os.Stdout, name, minutes, seconds)
}

// recordTime stores one time and prints the day's summary to w.
func recordTime(ctx context.Context, cfg config.Config, w io.Writer, name string, minutes, seconds int) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return runtimeError(err)
	}
	defer closeStore()

	engine, err := newEngine(cfg, store, log.New(os.Stderr, "", 0))
	if err != nil {
		return usageError(err)
	}

	res, err := engine.RecordTime(ctx, name, minutes, seconds)
	if err != nil {
		return runtimeError(fmt.Errorf("record failed: %w", err))
	}
	fmt.Fprintf(w, "Stored %s for %s on %s (row %d, column %d)\n",
		timecalc.FormatDuration(int64(res.Seconds)), res.Name, timecalc.DateLabel(res.Date), res.Row, res.Column)

	summary, err := engine.Summarize(ctx, res.Date)
	if err != nil {
		return runtimeError(fmt.Errorf("summarize failed: %w", err))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, leaderboard.Format(summary))
	return nil
}
