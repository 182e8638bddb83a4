package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/auth"
	"tapdetail-backend/internal/availability"
	"tapdetail-backend/internal/cache"
	"tapdetail-backend/internal/catalog"
	"tapdetail-backend/internal/config"
	"tapdetail-backend/internal/db"
	"tapdetail-backend/internal/earnings"
	"tapdetail-backend/internal/handlers"
	"tapdetail-backend/internal/jobs"
	"tapdetail-backend/internal/metrics"
	"tapdetail-backend/internal/middleware"
	"tapdetail-backend/internal/notifications"
	"tapdetail-backend/internal/validation"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tapdetail-api",
		Short: "Appointment scheduling API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run data migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "statuses",
		Short: "Rewrite legacy appointment status spellings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatuses()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "availability",
		Short: "Rewrite stored availability in canonical form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepairAvailability()
		},
	})
	return cmd
}

// mongoPing adapts the client to the health check interface.
type mongoPing struct{ client *mongo.Client }

func (p mongoPing) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func connect(cfg *config.Config, logger *slog.Logger) (*mongo.Client, *db.Collections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return client, cols, nil
}

func openCache(cfg *config.Config, logger *slog.Logger) (cache.Cache, *cache.RedisCache, error) {
	if cfg.RedisURL == "" && cfg.RedisAddr == "" {
		logger.Info("cache: in-memory", slog.Duration("ttl", cfg.CacheTTL()))
		return cache.NewMemory(cfg.CacheTTL()), nil, nil
	}

	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		var err error
		redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
	} else {
		redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisCache.Ping(ctx); err != nil {
		_ = redisCache.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("cache: redis connected")
	return redisCache, redisCache, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	client, cols, err := connect(cfg, logger)
	if err != nil {
		logger.Error("startup: mongo failed", slog.String("error", err.Error()))
		return err
	}
	defer client.Disconnect(context.Background())

	cacheStore, redisCache, err := openCache(cfg, logger)
	if err != nil {
		logger.Error("startup: redis failed", slog.String("error", err.Error()))
		return err
	}
	checks := map[string]handlers.Pinger{"mongo": mongoPing{client: client}}
	if redisCache != nil {
		defer redisCache.Close()
		checks["redis"] = redisCache
	}

	m := metrics.New("tapdetail")

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:    []byte(cfg.JWTSecret),
			AccessTTL: 12 * time.Hour,
			Issuer:    "tapdetail-backend",
		}
	} else {
		logger.Warn("startup: JWT_SECRET unset, provider routes disabled")
	}

	val := validation.New()

	availabilityService := availability.NewService(availability.NewRepository(cols.Availability), cfg.Timezone, logger)
	menu := catalog.NewMenu(catalog.NewRepository(cols.Services), cfg.Timezone)
	ledger := earnings.NewLedger(cols.Earnings)

	appointmentService := appointments.NewService(
		appointments.NewRepository(cols.Appointments, cols.BookingDays),
		availabilityService,
		menu,
		ledger,
		cfg.Timezone,
		cfg.BookingHorizonMonths,
		logger,
	).WithCache(cacheStore, cfg.CacheTTL()).WithMetrics(m)

	server := &handlers.Server{
		Cfg:          cfg,
		Appointments: appointmentService,
		Val:          val,
		Log:          logger,
		Checks:       checks,
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox, cfg.Timezone)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		server.Mailer = mailer
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	}

	router := handlers.NewRouter(server, handlers.RouterOptions{
		Availability:   availability.NewHandler(availabilityService, val, logger, cacheStore),
		Catalog:        catalog.NewHandler(menu, val, logger),
		Auth:           jwtManager,
		Metrics:        m,
		BookingLimiter: middleware.NewRateLimiter(cfg.RateLimitAppointments, time.Duration(cfg.RateLimitWindowSec)*time.Second),
	})

	sweeper := jobs.NewArchiveSweeper(appointmentService, cfg.ArchiveAfterDays, logger, m)
	scheduler, err := jobs.Schedule(cfg.ArchiveSweepSpec, cfg.Timezone, sweeper)
	if err != nil {
		logger.Error("startup: invalid archive schedule", slog.String("spec", cfg.ArchiveSweepSpec), slog.String("error", err.Error()))
		return err
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr), slog.String("timezone", cfg.Timezone.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	scheduler.Stop(shutdownCtx)
	logger.Info("server stopped")
	return nil
}

func runMigrateStatuses() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	client, cols, err := connect(cfg, logger)
	if err != nil {
		logger.Error("migrate: mongo failed", slog.String("error", err.Error()))
		return err
	}
	defer client.Disconnect(context.Background())

	service := appointments.NewService(
		appointments.NewRepository(cols.Appointments, cols.BookingDays),
		nil, nil, nil,
		cfg.Timezone,
		cfg.BookingHorizonMonths,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := service.MigrateStatuses(ctx)
	if err != nil {
		logger.Error("migrate statuses: failed", slog.Int64("updated", n), slog.String("error", err.Error()))
		return err
	}
	logger.Info("migrate statuses: ok", slog.Int64("updated", n))
	return nil
}

func runRepairAvailability() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	client, cols, err := connect(cfg, logger)
	if err != nil {
		logger.Error("migrate: mongo failed", slog.String("error", err.Error()))
		return err
	}
	defer client.Disconnect(context.Background())

	service := availability.NewService(availability.NewRepository(cols.Availability), cfg.Timezone, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := service.Repair(ctx)
	if err != nil {
		logger.Error("migrate availability: failed", slog.Int("rewritten", report.Rewritten), slog.String("error", err.Error()))
		return err
	}
	logger.Info("migrate availability: ok",
		slog.Int("rewritten", report.Rewritten),
		slog.Int("invalid", len(report.Invalid)),
	)
	return nil
}
