package sessioncache

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

// MemoryCache is an in-process Cache, used when no cache server is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entry   *Entry
	authAt  *time.Time
	session *platform.Session
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

// Seed stores entry as is, keeping its CachedAt.
func (m *MemoryCache) Seed(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry = &entry
}

func (m *MemoryCache) Load(context.Context) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entry == nil {
		return Entry{}, false, nil
	}
	return *m.entry, true, nil
}

func (m *MemoryCache) Save(_ context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry = &Entry{Profile: *profile, CachedAt: m.now()}
	return nil
}

func (m *MemoryCache) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry = nil
	m.authAt = nil
	return nil
}

func (m *MemoryCache) Touch(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.authAt = &now
	return nil
}

func (m *MemoryCache) TouchedAt(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authAt == nil {
		return time.Time{}, false, nil
	}
	return *m.authAt, true, nil
}

func (m *MemoryCache) LoadSession(context.Context) (*platform.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemoryCache) SaveSession(_ context.Context, session *platform.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.session = &cp
	return nil
}

func (m *MemoryCache) ClearSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
