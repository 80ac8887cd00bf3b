package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/sheetboard/internal/bot"
	"github.com/Tiliavir/sheetboard/internal/config"
	"github.com/Tiliavir/sheetboard/internal/messenger"
	"github.com/Tiliavir/sheetboard/internal/telemetry"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat webhook server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg := mustLoadConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if cfg.Messenger.VerifyToken == "" || cfg.Messenger.AccessToken == "" {
		return usageError(errors.New("messenger.verify_token and messenger.access_token must be set"))
	}

	log.SetPrefix("[sheetboard] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		return runtimeError(fmt.Errorf("serve: %w", err))
	}
	return nil
}

// serve runs the webhook server until ctx ends.
func serve(ctx context.Context, cfg config.Config) error {
	logger := log.Default()

	shutdownTracing, err := telemetry.Setup(ctx, "sheetboard", cfg.Server.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Printf("shutdown tracing: %v", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	engine, err := newEngine(cfg, store, logger)
	if err != nil {
		return err
	}
	client := messenger.NewClient(cfg.Messenger.AccessToken,
		messenger.WithBaseURL(cfg.Messenger.BaseURL),
		messenger.WithLogger(logger),
	)
	b := bot.New(engine, client, client,
		bot.WithSheetURL(cfg.SheetURL()),
		bot.WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", messenger.NewWebhook(cfg.Messenger.VerifyToken, b, logger))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	logger.Printf("listening on %s (store=%s)", cfg.Server.Addr, cfg.Store.Backend)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
