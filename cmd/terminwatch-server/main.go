package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"terminwatch/internal/bookingapi"
	"terminwatch/internal/config"
	"terminwatch/internal/notify"
	"terminwatch/internal/ratelimit"
	"terminwatch/internal/service/booking"
	"terminwatch/internal/store/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "terminwatch-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "terminwatch-server"),
	)
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.Duration("check_interval", cfg.CheckInterval),
		slog.Int("num_workers", cfg.NumWorkers),
		slog.String("log_level", cfg.LogLevel),
	)

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := postgres.Open(dbCtx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	dbCancel()
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	limiter, err := buildLimiter(cfg, log)
	if err != nil {
		log.Error("rate limiter setup failed", slog.Any("err", err))
		os.Exit(1)
	}

	notifier := buildNotifier(cfg, log)

	subs := postgres.NewSubscriptionRepo(db)
	bookings := postgres.NewBookingRepo(db)

	manager := booking.NewManager(
		booking.Config{
			CheckInterval: cfg.CheckInterval,
			NumWorkers:    cfg.NumWorkers,
			MaxRetries:    cfg.MaxRetries,
			RetryDelay:    cfg.RetryDelay,
		},
		func() (booking.AppointmentClient, error) {
			return bookingapi.NewClient(bookingapi.Config{
				BaseURL: cfg.APIBaseURL,
				APIKey:  cfg.APIKey,
				Timeout: cfg.APITimeout,
			}, limiter, log)
		},
		subs,
		bookings,
		notifier,
		log,
	)

	if err := manager.Initialize(); err != nil {
		log.Error("appointment manager initialization failed", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdown(log, manager, cfg.ShutdownTimeout)
}

func buildLimiter(cfg config.Config, log *slog.Logger) (ratelimit.Limiter, error) {
	limits := map[string]ratelimit.Limit{
		bookingapi.EndpointCheckAvailability: {PerMinute: cfg.CheckRatePerMinute, Burst: cfg.CheckRateBurst},
		bookingapi.EndpointBookAppointment:   {PerMinute: cfg.BookRatePerMinute, Burst: cfg.BookRateBurst},
	}

	if cfg.RateLimitBackend != "redis" {
		return ratelimit.NewMemoryLimiter(limits), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	log.Info("using redis rate limiter", slog.String("redis_addr", cfg.RedisAddr))
	return ratelimit.NewRedisLimiter(client, limits, log), nil
}

func buildNotifier(cfg config.Config, log *slog.Logger) notify.Notifier {
	if cfg.TelegramToken == "" {
		log.Warn("no telegram token configured; notifications go to the log only")
		return notify.NewLogNotifier(log)
	}
	notifier, err := notify.NewTelegramNotifier(notify.TelegramConfig{Token: cfg.TelegramToken})
	if err != nil {
		log.Warn("telegram notifier setup failed; falling back to log notifier", slog.Any("err", err))
		return notify.NewLogNotifier(log)
	}
	return notifier
}

func shutdown(log *slog.Logger, manager *booking.Manager, timeout time.Duration) {
	log.Info("shutting down appointment manager", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		manager.Close()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("appointment manager closed")
	case <-timer.C:
		log.Warn("appointment manager close timed out; exiting anyway")
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
