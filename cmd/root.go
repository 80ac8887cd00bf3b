package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/sheetboard/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sheetboard",
	Short: "sheetboard – a chat-driven daily leaderboard kept in a spreadsheet",
	Long: `sheetboard records participants' daily times into a date-by-name grid
and answers "@time", "@scores" and "@help" chat commands.
Configuration lives in ~/.sheetboard/config.json (or $SHEETBOARD_CONFIG).`,
	SilenceErrors: true,
}

// exitError carries the process exit code of a failed command:
// 1 for usage problems, 2 for runtime failures.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error   { return &exitError{code: 1, err: err} }
func runtimeError(err error) error { return &exitError{code: 2, err: err} }

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(authCmd)
}

// mustLoadConfig loads the configuration or exits with a usage error.
func mustLoadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}
