package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/bramble/internal/database"
	"github.com/Ramsey-B/bramble/pkg/dedup"
	"github.com/Ramsey-B/bramble/pkg/matching"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"bramble"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`
	TracingSampleRatio            float64  `env:"TRACING_SAMPLE_RATIO" env-default:"0.1"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"bramble"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	DatabaseMigrateOnStart        bool          `env:"DB_MIGRATE_ON_START" env-default:"true"`

	// Data sources
	SourcesFile string `env:"SOURCES_FILE" env-default:"sources.yaml"`

	// Kafka consumer (harvester record events)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaRecordTopic     string   `env:"KAFKA_RECORD_TOPIC" env-default:"records"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"bramble-dedup"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka producer (dedup group events)
	KafkaProducerEnabled bool   `env:"KAFKA_PRODUCER_ENABLED" env-default:"true"`
	KafkaOutputTopic     string `env:"KAFKA_OUTPUT_TOPIC" env-default:"dedup-events"`
	KafkaBatchSize       int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout    int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks    int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression     string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Deduplication
	DedupTitleDistanceLimit  float64       `env:"DEDUP_TITLE_DISTANCE_LIMIT" env-default:"10"`
	DedupAuthorDistanceLimit float64       `env:"DEDUP_AUTHOR_DISTANCE_LIMIT" env-default:"20"`
	DedupPageCountTolerance  int           `env:"DEDUP_PAGE_COUNT_TOLERANCE" env-default:"10"`
	DedupCompareTruncate     int           `env:"DEDUP_COMPARE_TRUNCATE" env-default:"255"`
	DedupMaxCandidates       int           `env:"DEDUP_MAX_CANDIDATES" env-default:"1000"`
	DedupHotKeyMaxCandidates int           `env:"DEDUP_HOT_KEY_MAX_CANDIDATES" env-default:"100"`
	DedupHotKeyCacheSize     int           `env:"DEDUP_HOT_KEY_CACHE_SIZE" env-default:"2000"`
	DedupSlowPassThreshold   time.Duration `env:"DEDUP_SLOW_PASS_THRESHOLD" env-default:"700ms"`
	DedupWorkerCount         int           `env:"DEDUP_WORKER_COUNT" env-default:"4"`
	DedupBatchSize           int           `env:"DEDUP_BATCH_SIZE" env-default:"500"`
	DedupInterval            time.Duration `env:"DEDUP_INTERVAL" env-default:"1m"`
}

// Load reads .env when present, then binds the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DedupConfig returns the engine settings
func (c *Config) DedupConfig() dedup.Config {
	return dedup.Config{
		Match: matching.Config{
			TitleDistanceLimit:  c.DedupTitleDistanceLimit,
			AuthorDistanceLimit: c.DedupAuthorDistanceLimit,
			PageCountTolerance:  c.DedupPageCountTolerance,
			CompareTruncate:     c.DedupCompareTruncate,
		},
		MaxCandidates:       c.DedupMaxCandidates,
		HotKeyMaxCandidates: c.DedupHotKeyMaxCandidates,
		HotKeyCacheSize:     c.DedupHotKeyCacheSize,
		SlowPassThreshold:   c.DedupSlowPassThreshold,
	}
}

// DatabaseConfig returns the connection pool settings
func (c *Config) DatabaseConfig() database.ConnectionConfig {
	return database.ConnectionConfig{
		Driver:          c.DatabaseDriver,
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

// MigrationConfig returns the migration settings
func (c *Config) MigrationConfig() *database.MigrationConfig {
	return &database.MigrationConfig{
		MigrationFolderPath: c.DatabaseMigrationFolderPath,
		Version:             uint(c.DatabaseMigrationVersion),
		Force:               c.DatabaseMigrationForce,
		AutoRollback:        c.DatabaseMigrationAutoRollback,
	}
}
