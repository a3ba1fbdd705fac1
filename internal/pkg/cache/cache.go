package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
)

var client *redis.Client

// SetupCache connects to the Redis-compatible cache that backs sessions,
// the per-session auth cache and the auth event bus. It returns nil when
// CACHE_HOST is unset so callers can fall back to in-memory stores.
func SetupCache() *redis.Client {
	host := env.GetEnv("CACHE_HOST", "")
	if host == "" {
		log.Info("[Cache] CACHE_HOST not set, using in-memory stores")
		return nil
	}
	port := env.GetEnv("CACHE_PORT", "6379")

	c := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	pong, err := c.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to cache at %s: %v", c.Options().Addr, err)
		_ = c.Close()
		return nil
	}
	log.Infof("[Cache] Connected to cache: %s", pong)

	client = c
	return client
}

// GetClient returns the client from SetupCache, or nil when no cache is configured.
func GetClient() *redis.Client {
	return client
}

// Close releases the connection pool.
func Close() {
	if client != nil {
		_ = client.Close()
		client = nil
	}
}
