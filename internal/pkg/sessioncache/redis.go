package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

const (
	fieldProfile = "profile"
	fieldAuthAt  = "auth_at"
	fieldSession = "session"
)

// RedisCache keeps one browser session's cache in the hash sessioncache:<sid>.
type RedisCache struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedisCache(client *redis.Client, sessionID string) *RedisCache {
	return &RedisCache{
		client: client,
		key:    "sessioncache:" + sessionID,
		now:    time.Now,
	}
}

func (r *RedisCache) set(ctx context.Context, field string, value interface{}) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key, field, value)
	pipe.Expire(ctx, r.key, TTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisCache) getJSON(ctx context.Context, field string, dst interface{}) (bool, error) {
	raw, err := r.client.HGet(ctx, r.key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// Unreadable entries count as missing.
		r.client.HDel(ctx, r.key, field)
		return false, nil
	}
	return true, nil
}

func (r *RedisCache) Load(ctx context.Context) (Entry, bool, error) {
	var entry Entry
	ok, err := r.getJSON(ctx, fieldProfile, &entry)
	if err != nil {
		return Entry{}, false, fmt.Errorf("load profile cache: %w", err)
	}
	return entry, ok, nil
}

func (r *RedisCache) Save(ctx context.Context, profile *models.Profile) error {
	payload, err := json.Marshal(Entry{Profile: *profile, CachedAt: r.now()})
	if err != nil {
		return err
	}
	return r.set(ctx, fieldProfile, payload)
}

// Clear removes the cached profile and auth timestamp. The session tokens
// are owned by the platform client and cleared through ClearSession.
func (r *RedisCache) Clear(ctx context.Context) error {
	return r.client.HDel(ctx, r.key, fieldProfile, fieldAuthAt).Err()
}

func (r *RedisCache) Touch(ctx context.Context) error {
	return r.set(ctx, fieldAuthAt, r.now().Format(time.RFC3339Nano))
}

func (r *RedisCache) TouchedAt(ctx context.Context) (time.Time, bool, error) {
	raw, err := r.client.HGet(ctx, r.key, fieldAuthAt).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (r *RedisCache) LoadSession(ctx context.Context) (*platform.Session, error) {
	var session platform.Session
	ok, err := r.getJSON(ctx, fieldSession, &session)
	if err != nil || !ok {
		return nil, err
	}
	return &session, nil
}

func (r *RedisCache) SaveSession(ctx context.Context, session *platform.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.set(ctx, fieldSession, payload)
}

func (r *RedisCache) ClearSession(ctx context.Context) error {
	return r.client.HDel(ctx, r.key, fieldSession).Err()
}
