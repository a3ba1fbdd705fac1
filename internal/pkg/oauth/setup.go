package oauth

import (
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/redis/go-redis/v9"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
)

// Providers lists the OAuth providers that have credentials configured.
func Providers() []string {
	var names []string
	for name := range goth.GetProviders() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Setup registers the Google provider when GOOGLE_KEY is set and points
// goth's state session at Redis database 2. Without a cache client the
// state session stays in memory.
func Setup(siteURL string, cacheClient *redis.Client) {
	base := strings.TrimRight(siteURL, "/")

	goth.ClearProviders()
	if key := env.GetEnv("GOOGLE_KEY", ""); key != "" {
		goth.UseProviders(
			google.New(
				key,
				env.GetEnv("GOOGLE_SECRET", ""),
				base+"/auth/google/callback",
				"email", "profile",
			),
		)
	}

	cfg := session.Config{
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	}

	if cacheClient != nil {
		opts := cacheClient.Options()
		host, port := "127.0.0.1", 6379
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else if opts.Addr != "" {
			host = opts.Addr
		}
		cfg.Storage = redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: opts.Username,
			Password: opts.Password,
			Database: 2,
			Reset:    false,
		})
	}

	gothfiber.SessionStore = session.New(cfg)
}
