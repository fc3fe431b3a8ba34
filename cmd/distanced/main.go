package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/api"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/cache"
	claimsconsumer "github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims/consumer"
	claimshandler "github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims/handler"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims/publisher"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/events"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/service"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/store"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/redis"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("distance service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("distance service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	instanceID := instanceName()
	slog.Info("starting distance service", "port", cfg.Server.Port, "instance", instanceID)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var st *store.Store
	if cfg.Postgres.Enabled() {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		st = store.New(db)
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		slog.Info("postgres store enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	collections, err := loadCorpus(ctx, cfg.Corpus, st)
	if err != nil {
		return err
	}
	model, err := distance.New(collections, nil, nil)
	if err != nil {
		return fmt.Errorf("building model: %w", err)
	}
	slog.Info("model built", "collections", model.CollectionCount(), "items", model.ItemCount())

	defaults := learning.Options{
		Ratio:              cfg.Learning.Ratio,
		ConvergenceSpeed:   cfg.Learning.ConvergenceSpeed,
		Iterations:         cfg.Learning.Iterations,
		FinishAtFullEffort: cfg.Learning.FinishAtFullEffort,
	}
	opts := []service.Option{
		service.WithInstanceID(instanceID),
		service.WithMetrics(m),
		service.WithDefaults(defaults),
	}
	if cfg.Learning.Seed != 0 {
		opts = append(opts, service.WithLearnerOptions(learning.WithRand(learning.NewRand(cfg.Learning.Seed))))
	}
	if st != nil {
		opts = append(opts, service.WithStore(st))
	}
	if cfg.Snapshot.Enabled {
		opts = append(opts, service.WithSnapshotWriter(snapshot.NewWriter(cfg.Snapshot.Dir, cfg.Snapshot.Keep)))
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, distance caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			opts = append(opts, service.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL)))
			slog.Info("distance cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var claimProducer *kafka.Producer
	if cfg.Kafka.Enabled() {
		eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ModelUpdated)
		defer eventProducer.Close()
		collector := events.NewCollector(eventProducer, 0, func(err error) {
			status := "ok"
			if err != nil {
				status = "error"
			}
			m.EventsPublishedTotal.WithLabelValues(status).Inc()
		})
		collector.Start(ctx)
		defer collector.Close()
		opts = append(opts, service.WithEvents(collector))

		claimProducer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ClaimIngest)
		defer claimProducer.Close()
	}

	svc := service.New(model, opts...)
	restoreLatest(ctx, svc, st, cfg.Snapshot)

	var claimStore publisher.ClaimStore
	if st != nil {
		claimStore = st
	}
	var claimEvents publisher.EventPublisher
	if claimProducer != nil {
		claimEvents = claimProducer
	}
	claimsH := claimshandler.New(publisher.New(claimStore, claimEvents), m)

	checker := health.NewChecker()
	checker.Register("model", svc.HealthCheck)
	var redisPing, storePing func(context.Context) error
	if redisClient != nil {
		redisPing = redisClient.Ping
	}
	if st != nil {
		storePing = st.Ping
	}
	checker.Register("redis", health.PingCheck(redisPing))
	checker.Register("postgres", health.PingCheck(storePing))

	mux := http.NewServeMux()
	api.New(svc).Register(mux)
	mux.HandleFunc("POST /api/v1/claims", claimsH.Submit)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Kafka.Enabled() && st != nil {
		// The shared group sees each claim once; every replica reloads,
		// so the model consumer gets a group per instance.
		retrainer := claimsconsumer.NewRetrainer(svc, defaults, cfg.Learning.RetrainInterval)
		claimConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ClaimIngest, "", retrainer.HandleMessage())
		group := cfg.Kafka.ConsumerGroup + "-" + instanceID
		modelConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ModelUpdated, group, events.HandleModelUpdated(instanceID, svc))
		g.Go(func() error { return claimConsumer.Start(gctx) })
		g.Go(func() error { return retrainer.Run(gctx) })
		g.Go(func() error { return modelConsumer.Start(gctx) })
		slog.Info("kafka streaming enabled",
			"claim_topic", cfg.Kafka.Topics.ClaimIngest,
			"model_topic", cfg.Kafka.Topics.ModelUpdated,
			"retrain_interval", cfg.Learning.RetrainInterval,
		)
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("distance service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// loadCorpus reads the corpus file when one is configured and mirrors it
// into the store; otherwise it loads the collections stored earlier.
func loadCorpus(ctx context.Context, cfg config.CorpusConfig, st *store.Store) ([]corpus.Collection, error) {
	if cfg.Path != "" {
		collections, err := corpus.LoadFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		if st != nil {
			if err := st.SaveCollections(ctx, collections); err != nil {
				return nil, err
			}
		}
		slog.Info("corpus loaded", "path", cfg.Path, "collections", len(collections))
		return collections, nil
	}
	if st == nil {
		return nil, errors.New("no corpus: set corpus.path or configure postgres")
	}
	collections, err := st.LoadCollections(ctx)
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		return nil, fmt.Errorf("no stored collections: %w", apperrors.ErrEmptyCorpus)
	}
	return collections, nil
}

// restoreLatest adopts the newest snapshot from the store, falling back to
// the snapshot directory. Without either the model keeps its default
// weights.
func restoreLatest(ctx context.Context, svc *service.Service, st *store.Store, cfg config.SnapshotConfig) {
	if st != nil {
		err := svc.Reload(ctx)
		if err == nil {
			return
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			slog.Warn("failed to restore stored snapshot", "error", err)
		}
	}
	if !cfg.Enabled {
		return
	}
	snap, path, err := snapshot.Latest(cfg.Dir)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			slog.Warn("failed to read snapshot directory", "dir", cfg.Dir, "error", err)
		}
		return
	}
	if err := svc.Restore(snap); err != nil {
		slog.Warn("failed to restore snapshot", "path", path, "error", err)
	}
}

func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "distanced"
	}
	return host + "-" + uuid.NewString()[:8]
}
