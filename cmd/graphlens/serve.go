package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"graphlens/application/ports"
	"graphlens/application/shell"
	"graphlens/infrastructure/config"
	"graphlens/infrastructure/persistence"
	"graphlens/infrastructure/persistence/sqlite"
	"graphlens/infrastructure/queryexec"
	"graphlens/interfaces/http/rest"
	"graphlens/interfaces/http/rest/handlers"
	"graphlens/interfaces/websocket"
	"graphlens/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the visualization server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	executor, err := queryexec.New(queryexec.Options{
		BaseURL: cfg.QueryBackend.BaseURL,
		APIKey:  cfg.QueryBackend.APIKey,
		Timeout: cfg.QueryBackend.Timeout,
		Breaker: queryexec.BreakerConfig{
			Name:             "query-backend",
			MaxRequests:      cfg.QueryBackend.BreakerMaxRequests,
			Interval:         cfg.QueryBackend.BreakerInterval,
			Timeout:          cfg.QueryBackend.BreakerTimeout,
			FailureThreshold: cfg.QueryBackend.BreakerFailureThreshold,
			MinRequests:      cfg.QueryBackend.BreakerMinRequests,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("building query client: %w", err)
	}

	prefStore, closePrefs, err := buildPreferenceStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("building preference store: %w", err)
	}
	if closePrefs != nil {
		defer closePrefs()
	}

	opts := shell.DefaultSessionOptions()
	opts.QueryTimeout = cfg.Session.QueryTimeout
	opts.ExpansionRate = rate.Limit(cfg.Session.ExpansionRate)
	opts.ExpansionBurst = cfg.Session.ExpansionBurst

	if cfg.TuningPath != "" {
		watcher, err := config.NewTuningWatcher(cfg.TuningPath, logger)
		if err != nil {
			return fmt.Errorf("loading tuning file: %w", err)
		}
		tuning := watcher.Current()
		opts.Viz.Simulation.CooldownTicks = tuning.Simulation.CooldownTicks
		opts.Viz.Simulation.CooldownTimeMs = tuning.Simulation.CooldownTimeMs
		opts.Viz.Simulation.WarmupTicks = tuning.Simulation.WarmupTicks
		watcher.OnChange(func(t *config.Tuning) {
			logger.Info("tuning reloaded, applies to new sessions",
				zap.Int("cooldownTicks", t.Simulation.CooldownTicks),
				zap.Int("cooldownTimeMs", t.Simulation.CooldownTimeMs),
			)
		})
		watcher.Start()
		defer watcher.Stop()
	}

	manager, err := shell.NewManager(executor, prefStore, opts, logger, metrics)
	if err != nil {
		return fmt.Errorf("building session manager: %w", err)
	}
	manager.IdleTTL = cfg.Session.IdleTTL
	go manager.Run(ctx, cfg.Session.SweepInterval)

	hub := websocket.NewHub(logger, metrics)
	go hub.Run()
	defer hub.Stop()

	wsServer := websocket.NewServer(hub, manager, nil, logger)

	sessionHandler := handlers.NewSessionHandler(manager, func() handlers.BindableSurface {
		return websocket.NewSurface(hub, logger)
	}, logger)

	var gatherer prometheus.Gatherer
	if cfg.EnableMetrics {
		gatherer = registry
	}

	router := rest.NewRouter(rest.RouterConfig{
		Sessions:        sessionHandler,
		Preferences:     handlers.NewPreferencesHandler(prefStore, logger),
		WebSocket:       wsServer.HandleWebSocket,
		MetricsGatherer: gatherer,
		EnableCORS:      cfg.EnableCORS,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		banner(cfg)
		logger.Info("server listening",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	manager.CloseAll()
	return nil
}

// buildPreferenceStore assembles the label-preference persistence chain:
// sqlite locally, optionally mirrored to a remote endpoint. With neither
// configured the feature degrades to in-session memory only.
func buildPreferenceStore(cfg *config.Config, logger *zap.Logger) (ports.PreferenceStore, func(), error) {
	if cfg.Preferences.SQLitePath == "" {
		logger.Warn("preference persistence disabled, label choices will not survive restarts")
		return nil, nil, nil
	}

	local, err := sqlite.Open(cfg.Preferences.SQLitePath, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { local.Close() }

	if cfg.Preferences.RemoteURL == "" {
		return local, closeFn, nil
	}

	remote, err := persistence.NewRemoteSubmitter(cfg.Preferences.RemoteURL, 0, logger)
	if err != nil {
		local.Close()
		return nil, nil, err
	}
	tee, err := persistence.NewTeeStore(local, remote, logger)
	if err != nil {
		local.Close()
		return nil, nil, err
	}
	return tee, closeFn, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level

	return zcfg.Build()
}

func banner(cfg *config.Config) {
	color.New(color.FgCyan, color.Bold).Println("graphlens")
	color.New(color.FgWhite).Printf("  listening on %s (%s)\n", cfg.ServerAddress, cfg.Environment)
	if cfg.EnableMetrics {
		color.New(color.FgWhite).Println("  metrics at /metrics")
	}
}
