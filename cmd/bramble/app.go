package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/internal/database"
	"github.com/Ramsey-B/bramble/internal/startup"
	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/dedup"
	"github.com/Ramsey-B/bramble/pkg/events"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/metadata"
	"github.com/Ramsey-B/bramble/pkg/processor"
	"github.com/Ramsey-B/bramble/pkg/sources"
	"github.com/Ramsey-B/bramble/pkg/store/postgres"
)

const (
	depDatabase   = "database"
	depMigrations = "migrations"
	depProducer   = "producer"
	depEngine     = "engine"
	depConsumer   = "consumer"
)

// app holds everything a command needs. Dependencies are registered with
// startup so connections are retried and closed in reverse order.
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	zap     *zap.Logger
	startup *startup.Startup

	conn      *sqlx.DB
	store     *postgres.Store
	producer  *kafka.Producer
	factory   *metadata.Factory
	engine    *dedup.Handler
	processor *processor.Processor

	shutdownTracing func(context.Context) error
}

type appOptions struct {
	// migrate applies migrations on start when DB_MIGRATE_ON_START is set
	migrate bool
	engine  bool
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	z, err := newZapLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger := zapadapter.NewZapEctoLogger(z, nil)

	a := &app{
		cfg:             cfg,
		logger:          logger,
		zap:             z,
		startup:         startup.New(logger, cfg.StartupMaxAttempts),
		factory:         metadata.NewFactory(),
		shutdownTracing: tracing.Init(cfg.AppName, cfg.TracingSampleRatio),
	}

	a.startup.Add(startup.Func{ID: depDatabase, OnStart: a.connect, OnStop: a.disconnect})
	opts.migrate = opts.migrate && cfg.DatabaseMigrateOnStart
	if opts.migrate {
		a.startup.Add(startup.Func{ID: depMigrations, Requires: []string{depDatabase}, OnStart: a.migrate})
	}
	if opts.engine {
		requires := []string{depDatabase}
		if cfg.KafkaProducerEnabled {
			a.startup.Add(startup.Func{ID: depProducer, OnStart: a.openProducer, OnStop: a.closeProducer})
			requires = append(requires, depProducer)
		}
		if opts.migrate {
			requires = append(requires, depMigrations)
		}
		a.startup.Add(startup.Func{ID: depEngine, Requires: requires, OnStart: a.buildEngine})
	}
	return a, nil
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

func (a *app) start(ctx context.Context) error {
	return a.startup.Start(ctx)
}

// close stops every started dependency and flushes traces and logs
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to stop dependencies")
	}
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to flush traces")
	}
	_ = a.zap.Sync()
}

func (a *app) connect(ctx context.Context) error {
	conn, err := database.Connect(ctx, a.cfg.DatabaseConfig(), a.logger)
	if err != nil {
		return err
	}
	a.conn = conn
	a.store = postgres.New(database.NewDatabaseInstance(conn), a.logger)
	return nil
}

func (a *app) disconnect(context.Context) error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

func (a *app) migrate(context.Context) error {
	return database.NewMigrationService(a.logger, a.cfg.MigrationConfig()).Migrate(a.cfg.DatabaseName, a.conn)
}

func (a *app) openProducer(context.Context) error {
	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaOutputTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	return nil
}

func (a *app) closeProducer(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *app) buildEngine(ctx context.Context) error {
	registry, err := a.loadSources(ctx)
	if err != nil {
		return err
	}

	dedupConfig := a.cfg.DedupConfig()
	matcher := matching.NewMatcher(a.logger, a.factory, registry, dedupConfig.Match)

	var opts []dedup.Option
	if a.producer != nil {
		opts = append(opts, dedup.WithObserver(events.NewEmitter(a.producer, a.logger)))
	}

	engine, err := dedup.NewHandler(a.logger, a.store, matcher, registry, dedupConfig, opts...)
	if err != nil {
		return err
	}
	a.engine = engine
	a.processor = processor.NewProcessor(a.logger, a.store, engine, processor.Config{
		Workers:   a.cfg.DedupWorkerCount,
		BatchSize: a.cfg.DedupBatchSize,
	})
	return nil
}

// loadSources reads the sources file. A missing file means every source runs on defaults.
func (a *app) loadSources(ctx context.Context) (*sources.Registry, error) {
	registry, err := sources.Load(a.cfg.SourcesFile)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.WithContext(ctx).WithFields(map[string]any{
			"path": a.cfg.SourcesFile,
		}).Warn("Sources file not found, using defaults for every source")
		return sources.New(), nil
	}
	if err != nil {
		return nil, err
	}
	a.logger.WithContext(ctx).WithFields(map[string]any{
		"path":    a.cfg.SourcesFile,
		"sources": len(registry.IDs()),
	}).Info("Loaded data sources")
	return registry, nil
}
