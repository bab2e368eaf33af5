package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Database settings
	Database DatabaseConfig

	// AWS settings (object store, message bus, durable loop)
	AWS AWSConfig

	// Scanner worker settings
	Scanner ScannerConfig

	// Progress cache refresher settings
	Refresher RefresherConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
// RDS_PROXY_ENDPOINT may carry a trailing ":port" which is stripped in favor
// of RDS_PORT.
type DatabaseConfig struct {
	Endpoint     string        `env:"RDS_PROXY_ENDPOINT" envDefault:"localhost"`
	Port         int           `env:"RDS_PORT" envDefault:"5432"`
	Database     string        `env:"RDS_DBNAME" envDefault:"scanner_db"`
	User         string        `env:"RDS_USERNAME" envDefault:"scanner_admin"`
	Password     string        `env:"RDS_PASSWORD" envDefault:""`
	SSLMode      string        `env:"RDS_SSL_MODE" envDefault:"require"`
	MinConns     int           `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConns     int           `env:"DB_MAX_CONNS" envDefault:"10"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// Host returns the endpoint with any ":port" suffix stripped.
func (d *DatabaseConfig) Host() string {
	host, _, found := strings.Cut(d.Endpoint, ":")
	if found {
		return host
	}
	return d.Endpoint
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host(), d.Port, d.Database, d.SSLMode,
	)
}

// AWSConfig holds settings for the S3, SQS and Step Functions clients
type AWSConfig struct {
	Region string `env:"AWS_REGION" envDefault:"us-west-2"`

	// QueueURL is the scan work queue; required for workers and the orchestrator
	QueueURL string `env:"SQS_QUEUE_URL"`

	// StateMachineARN is the durable listing loop; empty means the orchestrator
	// falls back to synchronous listing
	StateMachineARN string `env:"STEP_FUNCTION_ARN"`

	// Endpoint overrides the AWS endpoint (MinIO / LocalStack style deployments)
	Endpoint  string `env:"AWS_ENDPOINT"`
	AccessKey string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// ScannerConfig holds the worker processing knobs
type ScannerConfig struct {
	// BatchSize is the SQS receive batch; the bus caps a single receive at 10
	BatchSize int `env:"BATCH_SIZE" envDefault:"10"`

	// MaxWorkers bounds per-batch processing parallelism
	MaxWorkers int `env:"MAX_WORKERS" envDefault:"20"`

	// MaxFileSizeMB is the per-object size ceiling; larger objects are skipped
	MaxFileSizeMB int `env:"MAX_FILE_SIZE_MB" envDefault:"100"`
}

// MaxFileSizeBytes returns the size ceiling in bytes.
func (s *ScannerConfig) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// RefresherConfig holds the progress view refresh schedule
type RefresherConfig struct {
	Enabled  bool          `env:"REFRESHER_ENABLED" envDefault:"true"`
	Interval time.Duration `env:"REFRESH_INTERVAL" envDefault:"1m"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Scanner.BatchSize > 10 {
		cfg.Scanner.BatchSize = 10
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host()),
		slog.String("region", cfg.AWS.Region),
	)

	return cfg, nil
}
