package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dutchman/internal/app"
	"dutchman/internal/domain"
	"dutchman/internal/infra"
	"dutchman/internal/infra/ws"

	"github.com/spf13/cobra"
)

var (
	serveBidders bool
	autoStart    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the auction to presentation clients over websocket",
	Long: `Exposes the auction on server.listen_addr:

  /ws       event feed (price_update, bid_accepted, completed) and
            commands {"type":"start"}, {"type":"bid",...}, {"type":"state"}
  /state    current snapshot as JSON
  /metrics  counters as JSON

The process keeps serving the final state after the auction completes,
until it receives SIGINT or SIGTERM.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().BoolVar(&serveBidders, "bidders", false, "also run the simulated bidders from the config")
	serveCmd.Flags().BoolVar(&autoStart, "start", false, "start the auction immediately instead of waiting for a client")
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b := app.NewBootstrap()
	if err := b.InitializeWith(cfg, serveBidders); err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := b.Service
	hub := ws.NewHub(ctx, svc, cfg.Server.AllowedOrigins, b.Metrics)
	svc.AddBroadcaster(hub)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           newMux(hub, svc, b.Metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if autoStart {
		if err := svc.Start(ctx); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("Shutting down gracefully...")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Server shutdown failed", slog.Any("error", err))
	}

	// A running auction is finalized by the cancelled context.
	if svc.State().Status != domain.StatusWaiting {
		select {
		case <-svc.Done():
		case <-shutdownCtx.Done():
		}
	}
	return nil
}

type stateReader interface {
	DumpState(w io.Writer) error
}

func newMux(hub http.Handler, state stateReader, metrics *infra.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := state.DumpState(w); err != nil {
			slog.Warn("Failed to write state", slog.Any("error", err))
		}
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics.Snapshot()); err != nil {
			slog.Warn("Failed to write metrics", slog.Any("error", err))
		}
	})
	return mux
}
