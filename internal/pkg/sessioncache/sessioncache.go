package sessioncache

import (
	"context"
	"time"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

const (
	// FreshFor is how long a cached profile is used without a fetch.
	FreshFor = 5 * time.Minute
	// FallbackFor is how long a cached profile may stand in for an unreachable session.
	FallbackFor = 30 * time.Minute
	// TTL bounds how long an abandoned browser session keeps its cache.
	TTL = 24 * time.Hour
)

// Entry is the cached profile of one browser session.
type Entry struct {
	Profile  models.Profile `json:"profile"`
	CachedAt time.Time      `json:"cached_at"`
}

func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// Cache is the per-browser-session store for the profile cache, the last
// auth-state timestamp and the platform session tokens.
type Cache interface {
	platform.SessionStorage

	Load(ctx context.Context) (Entry, bool, error)
	Save(ctx context.Context, profile *models.Profile) error
	Clear(ctx context.Context) error
	Touch(ctx context.Context) error
	TouchedAt(ctx context.Context) (time.Time, bool, error)
}
