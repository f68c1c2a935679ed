package cache

import "github.com/go-redis/redis/v8"

// ClientConfig configures the underlying Redis connection.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewClient builds a go-redis client for cfg. The client manages its own
// connection pool; callers should keep a single instance for the process
// lifetime and pass it to cache.New.
func NewClient(cfg ClientConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
