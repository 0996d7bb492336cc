package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/carematch/internal/adapters/http/api"
	"github.com/okian/carematch/internal/adapters/http/swagger"
	"github.com/okian/carematch/internal/adapters/mq/worker"
	"github.com/okian/carematch/internal/adapters/notify"
	"github.com/okian/carematch/internal/adapters/repository"
	app "github.com/okian/carematch/internal/app"
	"github.com/okian/carematch/internal/config"
	"github.com/okian/carematch/internal/seed"
	"github.com/okian/carematch/pkg/logger"
	"github.com/okian/carematch/pkg/metrics"
	"github.com/okian/carematch/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 15 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:          "carematch",
		Short:        "Booking assignment and scheduling service",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())
	cmd.AddCommand(serve, newMigrateCmd(), newSeedCmd())
	return cmd
}

// setup loads configuration and initializes the global logger.
func setup(ctx context.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Store != config.StorePostgres {
		return repository.NewMemoryStore(ctx), nil
	}
	st, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return st, nil
}

func openNotifier(cfg *config.Config, log logger.Logger) (worker.Notifier, error) {
	if cfg.Notifier != config.NotifierAMQP {
		return notify.NewLogNotifier(log.Named("notify")), nil
	}
	n, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := setup(ctx)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving (postgres store only)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger, migrate bool) error {
	// We collect our own system gauges instead of the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "carematch",
		Insecure:    true,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pg, ok := store.(*repository.PostgresStore); ok && migrate {
		if err := repository.Migrate(ctx, pg.DB()); err != nil {
			_ = store.Close()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	notifier, err := openNotifier(cfg, log)
	if err != nil {
		_ = store.Close()
		return err
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithNotifier(notifier),
		app.WithServices(cfg.Services),
		app.WithWorkerCount(cfg.NotifyWorkers),
		app.WithQueueSize(cfg.NotifyQueueSize),
		app.WithNotifyAttempts(cfg.NotifyAttempts),
		app.WithDedupeSize(cfg.IdempotencyKeys),
		app.WithCalendarHours(cfg.CalendarFirstHour, cfg.CalendarLastHour),
		app.WithWeekStart(cfg.WeekStartDay()),
		app.WithSeedDemo(cfg.SeedDemo),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log.Named("api")),
		api.WithRequestTimeout(cfg.RequestTimeout()),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(ctx, swagger.Register),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to database_url",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := setup(ctx)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("database_url is required")
			}
			st, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer st.Close()

			if err := repository.Migrate(ctx, st.DB()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info(ctx, "migrations applied")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var bookings int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo dataset into the postgres store (memory stores use seed_demo)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := setup(ctx)
			if err != nil {
				return err
			}
			if err := checkSeedTarget(cfg); err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			titles := slices.Sorted(maps.Values(cfg.Services))
			ds := seed.Generate(
				seed.WithServices(titles),
				seed.WithSizes(0, 0, bookings),
				seed.WithWeekStart(cfg.WeekStartDay()),
			)
			return seed.Load(ctx, st, ds, log.Named("seed"))
		},
	}
	cmd.Flags().IntVar(&bookings, "bookings", 0, "number of bookings to generate (0 keeps the default)")
	return cmd
}

// checkSeedTarget rejects stores that do not outlive the seed command.
func checkSeedTarget(cfg *config.Config) error {
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("seed needs store=%s; the %s store is lost when the command exits, set seed_demo=true when serving instead",
			config.StorePostgres, cfg.Store)
	}
	return nil
}

// startSystemMetricsUpdater periodically publishes runtime gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
