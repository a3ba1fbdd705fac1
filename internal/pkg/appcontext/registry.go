package appcontext

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appstate"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/auth"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/domain"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/sessioncache"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/toast"
)

const (
	// DefaultIdleTimeout evicts bundles of browser sessions that went quiet.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultSweepInterval is how often idle bundles are evicted and tokens renewed.
	DefaultSweepInterval = time.Minute
)

// Dependencies are the process-wide collaborators shared by every bundle.
type Dependencies struct {
	Auth         *platform.AuthService
	Bus          platform.EventBus
	Repositories *repository.Repositories
	Blobs        platform.BlobStore
	// Redis backs the per-session cache; nil keeps it in memory.
	Redis      *redis.Client
	AuthConfig auth.Config
}

// Bundle is everything one browser session owns.
type Bundle struct {
	ID     string
	Store  *appstate.Store
	Toasts *toast.Queue
	Client *platform.Client
	Auth   *auth.Controller
	Domain *domain.Controller

	init     sync.Once
	restored auth.RestoreResult
	lastSeen time.Time
}

// Restored is the outcome of the bundle's one-time initialization.
func (b *Bundle) Restored() auth.RestoreResult {
	return b.restored
}

func (b *Bundle) close() {
	b.Auth.Close()
	b.Toasts.Close()
}

// Registry keeps one Bundle per browser session id.
type Registry struct {
	deps          Dependencies
	idleTimeout   time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	bundles map[string]*Bundle

	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

func NewRegistry(deps Dependencies) *Registry {
	return &Registry{
		deps:          deps,
		idleTimeout:   DefaultIdleTimeout,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		bundles:       make(map[string]*Bundle),
	}
}

// SetIdleTimeout changes how long an unused bundle is kept.
func (r *Registry) SetIdleTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idleTimeout = d
}

func (r *Registry) newBundle(sessionID string) *Bundle {
	var cache sessioncache.Cache
	if r.deps.Redis != nil {
		cache = sessioncache.NewRedisCache(r.deps.Redis, sessionID)
	} else {
		cache = sessioncache.NewMemoryCache()
	}

	store := appstate.NewStore()
	toasts := toast.NewQueue()
	client := platform.NewClient(sessionID, r.deps.Auth, cache, r.deps.Bus)
	authCtrl := auth.NewController(client, r.deps.Repositories.Profile, cache, store, r.deps.AuthConfig)
	domainCtrl := domain.NewController(store, r.deps.Repositories.Complaint, r.deps.Repositories.Document, r.deps.Blobs, toasts)
	authCtrl.SetDataLoader(domainCtrl.LoadUserData)

	return &Bundle{
		ID:     sessionID,
		Store:  store,
		Toasts: toasts,
		Client: client,
		Auth:   authCtrl,
		Domain: domainCtrl,
	}
}

// Get returns the bundle for sessionID, creating and initializing it on
// first use. Initialization runs once even under concurrent requests.
func (r *Registry) Get(ctx context.Context, sessionID string) *Bundle {
	r.mu.Lock()
	b, ok := r.bundles[sessionID]
	if !ok {
		b = r.newBundle(sessionID)
		r.bundles[sessionID] = b
	}
	b.lastSeen = r.now()
	r.mu.Unlock()

	b.init.Do(func() {
		b.restored = b.Auth.Restore(ctx)
		b.Auth.Attach()
		log.Debugf("[Registry] Session %s initialized from %s", sessionID, b.restored.Source)
	})
	return b
}

// Lookup returns an existing bundle without creating one.
func (r *Registry) Lookup(sessionID string) (*Bundle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[sessionID]
	return b, ok
}

// Len is the number of live bundles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bundles)
}

// Forget tears down the bundle of sessionID, e.g. after the fiber session was destroyed.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	b, ok := r.bundles[sessionID]
	delete(r.bundles, sessionID)
	r.mu.Unlock()
	if ok {
		b.close()
	}
}

// Sweep evicts idle bundles and renews access tokens of the others. It
// returns the number of evicted bundles.
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTimeout)
	var idle, active []*Bundle
	for id, b := range r.bundles {
		if b.lastSeen.Before(cutoff) {
			idle = append(idle, b)
			delete(r.bundles, id)
			continue
		}
		active = append(active, b)
	}
	r.mu.Unlock()

	for _, b := range idle {
		b.close()
	}
	for _, b := range active {
		if b.Store.Snapshot().CurrentUser == nil {
			continue
		}
		if err := b.Client.AutoRefresh(ctx); err != nil {
			log.Warnf("[Registry] Token refresh failed for %s: %v", b.ID, err)
		}
	}
	if len(idle) > 0 {
		log.Infof("[Registry] Evicted %d idle sessions", len(idle))
	}
	return len(idle)
}

// Start runs the sweeper in the background.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.stopCh = make(chan struct{})
	r.running = true
	r.ticker = time.NewTicker(r.sweepInterval)
	r.wg.Add(1)
	go r.sweepWorker(r.ticker, r.stopCh)
	log.Infof("[Registry] Started session sweeper (interval: %s)", r.sweepInterval)
}

func (r *Registry) sweepWorker(ticker *time.Ticker, stopCh <-chan struct{}) {
	defer r.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.sweepInterval)
			r.Sweep(ctx)
			cancel()
		}
	}
}

// Stop halts the sweeper and tears down every bundle.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.running {
		r.ticker.Stop()
		close(r.stopCh)
		r.running = false
	}
	bundles := r.bundles
	r.bundles = make(map[string]*Bundle)
	r.mu.Unlock()

	r.wg.Wait()
	for _, b := range bundles {
		b.close()
	}
	log.Info("[Registry] Stopped")
}
