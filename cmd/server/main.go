// Command server runs the GRC evidence and third-party import service: the
// HTTP API, the async processing workers, and the migrations that precede
// both.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"grc/internal/contentstore"
	evhandler "grc/internal/evidence/handler"
	evservice "grc/internal/evidence/service"
	evstore "grc/internal/evidence/store"
	evworker "grc/internal/evidence/worker"
	grchttp "grc/internal/http"
	"grc/internal/platform/bus"
	"grc/internal/platform/config"
	"grc/internal/platform/httpserver"
	"grc/internal/platform/logger"
	"grc/internal/platform/metrics"
	"grc/internal/platform/middleware"
	"grc/internal/platform/postgres"
	"grc/internal/platform/redis"
	tphandler "grc/internal/thirdparty/handler"
	tpservice "grc/internal/thirdparty/service"
	tpstore "grc/internal/thirdparty/store"
	tpworker "grc/internal/thirdparty/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	readiness := map[string]grchttp.HealthChecker{}

	// Persistence: postgres when configured, in-memory otherwise.
	var (
		uploadStore evservice.Store
		jobStore    tpservice.JobStore
		register    tpservice.RegisterStore
	)
	if cfg.DatabaseURL != "" {
		if err := postgres.Migrate(cfg.DatabaseURL, log); err != nil {
			return err
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		uploadStore = evstore.NewPostgres(pool)
		jobStore = tpstore.NewJobsPostgres(pool)
		register = tpstore.NewThirdPartiesPostgres(pool)
		readiness["postgres"] = pool.Ping
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		uploadStore = evstore.NewInMemory()
		jobStore = tpstore.NewJobsInMemory()
		register = tpstore.NewThirdPartiesInMemory()
	}

	// Content: MinIO when configured, in-memory otherwise.
	var content contentstore.Store
	if cfg.MinioEndpoint != "" {
		mc, err := contentstore.NewMinio(ctx, contentstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.EvidenceBucket,
		})
		if err != nil {
			return err
		}
		content = mc
	} else {
		log.Warn("MINIO_ENDPOINT not set, using in-memory content store")
		content = contentstore.NewMemory()
	}

	// Broker: Kafka when configured, in-process channels otherwise.
	var messageBus bus.Bus
	if len(cfg.KafkaBrokers) > 0 {
		kafkaBus := bus.NewKafka(cfg.KafkaBrokers, cfg.ConsumerGroup, log)
		defer kafkaBus.Close()
		messageBus = kafkaBus
	} else {
		log.Warn("KAFKA_BROKERS not set, using in-process message bus")
		messageBus = bus.NewMemory()
	}

	cache, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		readiness["redis"] = cache.Health
	}

	evidenceSvc := evservice.New(uploadStore, content, messageBus, cfg.EvidenceTopic, m, log, cfg.StaleAfter)
	thirdPartySvc := tpservice.New(jobStore, register, content, messageBus, cfg.ImportTopic,
		cache, cfg.JobStatusTTL, cfg.StaleAfter, m, log)

	router := grchttp.New(grchttp.Deps{
		Logger:    log,
		Validator: middleware.NewHMACValidator(cfg.JWTSigningKey),
		Registry:  registry,
		APIHandlers: []grchttp.Registrar{
			evhandler.New(evidenceSvc, log),
			tphandler.New(thirdPartySvc, log),
		},
		ReadinessChecks: readiness,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		worker := evworker.New(uploadStore, content, cfg.EvidenceTopic, m, log)
		log.Info("starting evidence worker", "topic", cfg.EvidenceTopic)
		return ignoreCancel(worker.Run(gctx, messageBus))
	})

	g.Go(func() error {
		worker := tpworker.New(jobStore, register, content, tpservice.BaselineScorer{},
			cfg.ImportTopic, cfg.ImportFlushEvery, m, log)
		log.Info("starting import worker", "topic", cfg.ImportTopic)
		return ignoreCancel(worker.Run(gctx, messageBus))
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
