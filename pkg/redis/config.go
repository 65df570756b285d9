package redis

import "time"

// Config configures the Redis connection used by the orphan ledger.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`          // Format: "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`                      // Connection attempts before giving up
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`                     // Pause between attempts
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`                   // Upper bound for all attempts together
	OrphanSetKey   string        `env:"REDIS_ORPHAN_SET_KEY" envDefault:"blogapi:orphaned_blobs"` // Set holding references of undeleted blobs
}
