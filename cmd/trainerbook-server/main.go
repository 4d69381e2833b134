package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"google.golang.org/grpc"

	"trainerbook/backend/internal/cache"
	"trainerbook/backend/internal/config"
	"trainerbook/backend/internal/events"
	"trainerbook/backend/internal/metrics"
	"trainerbook/backend/internal/service/scheduling"
	"trainerbook/backend/internal/store"
	"trainerbook/backend/internal/store/memstore"
	"trainerbook/backend/internal/store/postgres"
	"trainerbook/backend/internal/tracing"
	grpcTransport "trainerbook/backend/internal/transport/grpc"
	"trainerbook/backend/internal/worker"
	"trainerbook/backend/migrations"
)

const serviceName = "trainerbook-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("env file load failed", slog.Any("err", err))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		command := "up"
		if len(os.Args) > 2 {
			command = os.Args[2]
		}
		if err := migrate(cfg, command, log); err != nil {
			log.Error("migration failed", slog.String("command", command), slog.Any("err", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func migrate(cfg config.Config, command string, log *slog.Logger) error {
	if cfg.StoreBackend != "postgres" {
		return errors.New("migrations need store.backend=postgres")
	}
	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = postgres.Close(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return migrations.Run(ctx, db.DB, command, os.Stdout)
}

func serve(cfg config.Config, log *slog.Logger) error {
	log.Info("starting", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("log_level", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.TracingEndpoint, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown failed", slog.Any("err", err))
		}
	}()

	var repo store.TrainerRepository
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		repo = memstore.New()
	default:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := openDatabase(cfg)
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database connection failed", args...)
			return err
		}
		defer func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		}()
		repo = postgres.NewTrainerRepo(db)
	}

	availability, closeCache := buildCache(ctx, cfg, log)
	defer closeCache()

	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.NatsURL != "" {
		nats, err := events.NewNatsPublisher(cfg.NatsURL, log)
		if err != nil {
			return err
		}
		defer nats.Close()
		publisher = nats
		log.Info("connected to nats")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := scheduling.NewService(repo,
		scheduling.WithCache(availability),
		scheduling.WithPublisher(publisher),
		scheduling.WithMetrics(m),
		scheduling.WithLogger(log),
		scheduling.WithMaxRangeDays(cfg.MaxRangeDays),
	)

	sweeper, err := worker.NewCompletionSweeper(cfg.CompletionSchedule, svc, log)
	if err != nil {
		return err
	}
	sweeper.Start()

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics server started", slog.String("metrics_addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped with error", slog.Any("err", err))
		}
	}()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.ObserveInterceptor(m, log),
		),
	)
	grpcTransport.RegisterBookingServiceServer(grpcServer, grpcTransport.NewBookingServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr = err
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := sweeper.Stop(sctx); err != nil {
		log.Warn("completion sweeper stop timed out", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(sctx); err != nil {
		log.Warn("metrics server shutdown failed", slog.Any("err", err))
	}
	return serveErr
}

func openDatabase(cfg config.Config) (*bun.DB, error) {
	return postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
}

func buildCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Cache, func()) {
	switch cfg.CacheBackend {
	case "none":
		return cache.Nop{}, func() {}
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			log.Warn("redis unreachable; cache lookups will miss until it recovers", slog.Any("err", err), slog.String("redis_addr", cfg.RedisAddr))
		} else {
			log.Info("connected to redis", slog.String("redis_addr", cfg.RedisAddr))
		}
		return cache.NewRedisCache(client, cfg.CacheTTL, log), func() {
			if err := client.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}
	default:
		return cache.NewMemoryCache(cfg.CacheTTL), func() {}
	}
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"` + serviceName + `"}`))
	})
	return mux
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
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
	host, name := postgres.Target(databaseURL)
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		h, port = host, "default"
	}
	if h == "" {
		h = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", h),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
