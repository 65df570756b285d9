package blogapi

import (
	"github.com/dmitrymomot/blogapi/pkg/file"
	"github.com/dmitrymomot/blogapi/pkg/pg"
	"github.com/dmitrymomot/blogapi/pkg/redis"
)

// Storage drivers.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Orphan ledgers.
const (
	OrphanLedgerLog   = "log"
	OrphanLedgerRedis = "redis"
)

// Config is the application configuration, loaded with config.Load.
// Nested structs read their own environment variables.
type Config struct {
	Env            string `env:"APP_ENV" envDefault:"development"`   // production, staging or development
	Name           string `env:"APP_NAME" envDefault:"blogapi"`      // Service name attached to every log record
	Version        string `env:"APP_VERSION" envDefault:"1.0.0"`     // Reported at startup
	LogLevel       string `env:"LOG_LEVEL"`                          // Overrides the environment's default level
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"local"`  // local or s3
	PostsSubfolder string `env:"POSTS_SUBFOLDER" envDefault:"posts"` // Subfolder for post images inside the storage root
	OrphanLedger   string `env:"ORPHAN_LEDGER" envDefault:"log"`     // log or redis
	AutoMigrate    bool   `env:"PG_AUTO_MIGRATE" envDefault:"false"` // Apply embedded migrations on startup

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"blogapi"` // Prefix of exported Prometheus metrics

	Local    file.LocalConfig
	S3       file.S3Config
	Upload   file.Policy
	Postgres pg.Config
	Redis    redis.Config
}
