package config

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig points the edge rate limiter at a shared Redis. When Addr is
// empty the limiter stays in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// ToOptions converts the config to go-redis client options
func (r RedisConfig) ToOptions() *redis.Options {
	return &redis.Options{
		Addr:        r.Addr,
		Password:    r.Password,
		DB:          r.DB,
		DialTimeout: 2 * time.Second,
		ReadTimeout: time.Second,
	}
}
