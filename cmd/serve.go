package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"healflow/internal/api"
	"healflow/internal/config"
	"healflow/internal/ooda"
	"healflow/internal/store"
	"healflow/internal/sweeper"
	"healflow/internal/sysmon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Seed(); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	if err := st.UpdateSystemStatus("operational"); err != nil {
		logger.Warn("system status update failed", zap.Error(err))
	}

	narrator, err := buildNarrator(cfg.Narration, logger)
	if err != nil {
		return err
	}
	engine := ooda.NewEngine(st, narrator, logger)

	monitor, err := sysmon.NewMonitor()
	if err != nil {
		logger.Warn("process monitor unavailable", zap.Error(err))
		monitor = nil
	}

	server := api.New(st, engine, narrator, monitor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(st, monitor, cfg.Sweeper, logger)
	go sw.Run(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// buildNarrator selects the stage-output provider. Misconfigured AI
// providers are an error rather than a silent fallback so operators
// notice before a demo.
func buildNarrator(cfg config.NarrationConfig, logger *zap.Logger) (ooda.Narrator, error) {
	switch cfg.Provider {
	case "", "fallback":
		return ooda.FallbackNarrator{}, nil
	case "openai":
		narrator, err := ooda.NewOpenAINarrator(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("narration provider openai: %w", err)
		}
		return narrator, nil
	default:
		return nil, fmt.Errorf("unknown narration provider %q", cfg.Provider)
	}
}

func buildLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
