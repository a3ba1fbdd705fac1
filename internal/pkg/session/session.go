package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
)

// Expiration is how long an idle browser session is kept.
const Expiration = 24 * time.Hour

var sessionStore *session.Store

// NewSessionStore creates the fiber session store. Sessions live in Redis
// database 1 next to the cache client; without a client they stay in memory.
func NewSessionStore(cacheClient *goredis.Client) *session.Store {
	cfg := session.Config{
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     Expiration,
		KeyLookup:      "cookie:session_id",
	}

	if cacheClient != nil {
		host := "localhost"
		port := 6379
		password := env.GetEnv("CACHE_PASSWORD", "")
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		// Prefer password from the underlying client if present
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}

		cfg.Storage = redis.New(redis.Config{
			Host:     host,
			Port:     port,
			Password: password,
			Database: 1, // Separate database for sessions
			Reset:    false,
		})
	}

	sessionStore = session.New(cfg)
	return sessionStore
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// ID returns the id of the request's browser session, creating the session
// cookie on first contact.
func ID(store *session.Store, c *fiber.Ctx) (string, error) {
	sess, err := store.Get(c)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	id := sess.ID()
	if sess.Fresh() {
		if err := sess.Save(); err != nil {
			return "", fmt.Errorf("failed to save session: %w", err)
		}
	}
	return id, nil
}

// SetSessionValue stores a key-value pair in the user's individual session
func SetSessionValue(c *fiber.Ctx, key string, value string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue retrieves a value by key from the user's individual session
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	if strValue, ok := sess.Get(key).(string); ok {
		return strValue
	}
	return ""
}
