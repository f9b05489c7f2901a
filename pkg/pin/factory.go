package pin

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// StoreConfig contains configuration for creating a pin store.
type StoreConfig struct {
	// Pool is required for postgres stores
	Pool *pgxpool.Pool
	// RedisClient is required for redis stores
	RedisClient *redis.Client
	// DataDir is required for file stores
	DataDir string
}

// NewPinStore creates a pin store for the given persistence type.
func NewPinStore(persistenceType string, config StoreConfig) (PinStore, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres pin store")
		}
		return NewPostgresPinStore(config.Pool), nil
	case "redis":
		if config.RedisClient == nil {
			return nil, fmt.Errorf("redis client required for redis pin store")
		}
		return NewRedisPinStore(config.RedisClient), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file pin store")
		}
		return NewFilePinStore(config.DataDir)
	case "memory":
		return NewInMemoryPinStore(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, redis, file, memory)", persistenceType)
	}
}
