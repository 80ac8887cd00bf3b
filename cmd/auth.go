package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/sheetboard/internal/sheets"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to the spreadsheet (OAuth2 device code flow)",
	Args:  cobra.NoArgs,
	RunE:  runAuth,
}

func runAuth(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg := mustLoadConfig()
	if cfg.Store.ClientID == "" {
		return usageError(errors.New("store.client_id must be set to authorize"))
	}

	oc := sheets.OAuth2Config(cfg.Store.ClientID, cfg.Store.ClientSecret)
	if _, err := sheets.Authorize(context.Background(), oc, cfg.Store.TokenFile, os.Stdout); err != nil {
		return runtimeError(fmt.Errorf("authentication failed: %w", err))
	}
	fmt.Printf("Token saved to %s\n", cfg.Store.TokenFile)
	return nil
}
