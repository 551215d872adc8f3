package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/panelhub/pkg/config"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/platinummonkey/panelhub/pkg/storage"
	"github.com/platinummonkey/panelhub/pkg/storage/postgres"
)

func newServeCommand() *Command {
	cmd := &Command{
		Name:        "serve",
		Description: "Run the HTTP API, realtime gateway and scheduled jobs",
		Flags:       flag.NewFlagSet("serve", flag.ContinueOnError),
	}

	cmd.Flags.String("config", "", "YAML config file (overrides $PANELHUB_CONFIG_FILE)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if path := cmd.Flags.Lookup("config").Value.String(); path != "" {
			os.Setenv("PANELHUB_CONFIG_FILE", path)
		}
		return runServe()
	}
	return cmd
}

// bootstrap loads configuration and opens the shared connections
func bootstrap(ctx context.Context) (*config.Config, *observability.Logger, *postgres.ConnectionManager, *redis.Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfigFrom(cfg.Storage), logger.Entry())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	var rdb *redis.Client
	if cfg.Storage.RedisURL != "" {
		rdb, err = storage.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			cm.Close()
			return nil, nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	return cfg, logger, cm, rdb, nil
}

func runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, logger, cm, rdb, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	telemetry, err := observability.InitTelemetry(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("OpenTelemetry unavailable, continuing without tracing")
		telemetry = nil
	}

	a, err := newApp(cfg, logger.Entry(), resources{primary: cm.Primary(), replica: cm.Replica(), redis: rdb}, telemetry)
	if err != nil {
		return err
	}

	scheduler, err := a.scheduler()
	if err != nil {
		return fmt.Errorf("failed to schedule jobs: %w", err)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      a.server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           a.healthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Hooks run in order: stop intake, drain live connections, then release resources
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.Register("api server", apiServer.Shutdown)
	shutdown.Register("realtime connections", func(context.Context) error {
		a.realtime.CloseAll()
		return nil
	})
	shutdown.Register("scheduler", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.Register("health server", healthServer.Shutdown)
	shutdown.Register("telemetry", telemetry.Shutdown)
	if rdb != nil {
		shutdown.Register("redis", func(context.Context) error { return rdb.Close() })
	}
	shutdown.Register("postgres", func(context.Context) error { return cm.Close() })

	cm.StartHealthCheckRoutine(ctx, 30*time.Second)
	for _, limiter := range a.rateBuckets {
		limiter.StartCleanup(ctx)
	}
	scheduler.Start()

	serve := func(name string, srv *http.Server) {
		logger.Infof("Starting %s on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Errorf("%s failed", name)
			cancel()
		}
	}
	go serve("health server", healthServer)
	go serve("api server", apiServer)

	return shutdown.WaitForShutdown(ctx)
}
