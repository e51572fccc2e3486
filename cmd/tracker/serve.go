package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mertz1999/ai-money-tracker/internal/api"
	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/currency"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the ledger over HTTP. Requests identify their owner with the
X-Owner-ID header. When rate.toman_per_usd is configured it is used for
requests that do not carry their own rate.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr from config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	var rates currency.RateProvider
	if a.cfg.HasDefaultRate() {
		static, err := currency.NewStaticRate(a.cfg.Rate.TomanPerUSD)
		if err != nil {
			return err
		}
		rates = static
	}

	srv := api.NewServer(a.ledger, rates, slog.Default())
	if a.cfg.Server.Metrics {
		srv.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		common.LogInfo("API server listening", common.Fields{
			"addr":    addr,
			"metrics": a.cfg.Server.Metrics,
			"rate":    a.cfg.HasDefaultRate(),
		})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
