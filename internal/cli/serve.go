package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kristyson/DGK-Restaurante/internal/audit"
	"github.com/kristyson/DGK-Restaurante/internal/policy"
	"github.com/kristyson/DGK-Restaurante/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the menu HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := log.With().Str("component", "main").Logger()
		logger.Info().Str("version", Version).Str("commit", Commit).Str("build_date", BuildDate).Msg("starting dgk-menu")

		guard, err := policy.NewGuard(cfg.Mode, cfg.EnableWrite)
		if err != nil {
			return err
		}
		if guard.Mode() == policy.ModeReadOnly {
			logger.Warn().Msg("READ-ONLY MODE - menu mutations are rejected")
		}

		gw, err := newGateway(cfg)
		if err != nil {
			return err
		}
		st := newStore(gw, cfg)
		panel := newPanel(gw, cfg)

		ctx, cancel := context.WithCancel(logger.WithContext(cmd.Context()))
		defer cancel()

		// The server starts even when the first load fails; /readiness
		// reports it until a refresh succeeds.
		if refreshErr := st.Refresh(ctx); refreshErr != nil {
			logger.Error().Err(refreshErr).Msg("initial menu load failed")
		} else {
			logger.Info().Int("records", len(st.Records())).Msg("menu loaded")
		}

		srv := server.New(st, panel,
			server.WithLogger(log.Logger),
			server.WithGuard(guard),
			server.WithAuditLogger(audit.NewLogger(log.Logger, cfg.ParseAppID, cfg.ParseClientKey)),
			server.WithCategories(cfg.Categories()),
			server.WithRequireCategory(cfg.RequireCategory),
			server.WithBuildInfo(Version, Commit, BuildDate),
		)

		httpServer := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
			if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				errCh <- serveErr
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		var serveErr error
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case serveErr = <-errCh:
			logger.Error().Err(serveErr).Msg("HTTP server error")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
		}
		logger.Info().Msg("server stopped gracefully")
		return serveErr
	},
}
