package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appstate"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/sessioncache"
)

var errNetwork = errors.New("dial tcp: connection refused")

type fakeBackend struct {
	mu             sync.Mutex
	session        *platform.Session
	getSessionErr  error
	blockSession   bool
	signInErr      error
	emailExists    bool
	emailExistsErr error
	signUpReq      platform.SignUpRequest
	revoked        []string
	handlers       []func(platform.AuthEvent)
}

func (f *fakeBackend) SessionKey() string { return "browser-1" }

func (f *fakeBackend) emit(typ platform.EventType, user *platform.User) {
	f.mu.Lock()
	handlers := append([]func(platform.AuthEvent){}, f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(platform.AuthEvent{Type: typ, SessionKey: "browser-1", User: user})
	}
}

func (f *fakeBackend) GetSession(ctx context.Context) (*platform.Session, error) {
	if f.blockSession {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	if f.session != nil {
		f.emit(platform.EventInitialSession, &f.session.User)
	}
	return f.session, nil
}

func (f *fakeBackend) SignInWithPassword(_ context.Context, _, _ string) (*platform.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.emit(platform.EventSignedIn, &f.session.User)
	return f.session, nil
}

func (f *fakeBackend) SignInWithProvider(context.Context, platform.ProviderUser) (*platform.Session, error) {
	f.emit(platform.EventSignedIn, &f.session.User)
	return f.session, nil
}

func (f *fakeBackend) VerifyRecovery(context.Context, string) (*platform.Session, error) {
	return f.session, nil
}

func (f *fakeBackend) SignUp(_ context.Context, req platform.SignUpRequest) (*platform.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUpReq = req
	return &platform.User{ID: "new-user", Email: req.Email, Metadata: req.Metadata}, nil
}

func (f *fakeBackend) SignOut(context.Context) (string, error) {
	f.emit(platform.EventSignedOut, nil)
	if f.session == nil {
		return "", nil
	}
	return f.session.ID, nil
}

func (f *fakeBackend) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	return nil
}

func (f *fakeBackend) UpdatePassword(context.Context, string) error { return nil }

func (f *fakeBackend) EmailExists(context.Context, string) (bool, error) {
	return f.emailExists, f.emailExistsErr
}

func (f *fakeBackend) ResendConfirmation(context.Context, string, string) error { return nil }

func (f *fakeBackend) ConfirmEmail(context.Context, string) (*platform.User, error) {
	return &f.session.User, nil
}

func (f *fakeBackend) ResetPasswordForEmail(context.Context, string, string) error { return nil }

func (f *fakeBackend) OnAuthStateChange(handler func(platform.AuthEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers = nil
	}
}

type fakeProfiles struct {
	mu          sync.Mutex
	rows        map[string]models.Profile
	gets        int
	getErr      error
	hang        chan struct{}
	phoneExists bool
	plateExists bool
	existsErr   error
	created     []models.Profile
}

func newFakeProfiles(rows ...models.Profile) *fakeProfiles {
	f := &fakeProfiles{rows: map[string]models.Profile{}}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeProfiles) Create(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *p)
	f.rows[p.ID] = *p
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	if f.hang != nil {
		<-f.hang
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) ExistsByPhone(context.Context, string) (bool, error) {
	return f.phoneExists, f.existsErr
}

func (f *fakeProfiles) ExistsByPlate(context.Context, string) (bool, error) {
	return f.plateExists, f.existsErr
}

func (f *fakeProfiles) Update(context.Context, *models.Profile) error { return nil }
func (f *fakeProfiles) Count(context.Context) (int64, error)          { return int64(len(f.rows)), nil }

func (f *fakeProfiles) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func sessionFor(id, email string) *platform.Session {
	now := time.Now()
	return &platform.Session{
		ID:        "sess-" + id,
		ExpiresAt: now.Add(time.Hour),
		User:      platform.User{ID: id, Email: email, EmailConfirmedAt: &now},
	}
}

type harness struct {
	backend  *fakeBackend
	profiles *fakeProfiles
	cache    *sessioncache.MemoryCache
	store    *appstate.Store
	ctrl     *Controller
}

func newHarness(t *testing.T, backend *fakeBackend, profiles *fakeProfiles) *harness {
	t.Helper()
	cfg := DefaultConfig("http://localhost:4000/")
	cfg.RestoreTimeout = 50 * time.Millisecond
	h := &harness{
		backend:  backend,
		profiles: profiles,
		cache:    sessioncache.NewMemoryCache(),
		store:    appstate.NewStore(),
	}
	h.ctrl = NewController(backend, profiles, h.cache, h.store, cfg)
	h.ctrl.Attach()
	t.Cleanup(h.ctrl.Close)
	return h
}

func TestSignInUnconfirmedEmailNeedsVerification(t *testing.T) {
	h := newHarness(t, &fakeBackend{signInErr: platform.ErrEmailNotConfirmed}, newFakeProfiles())

	res, err := h.ctrl.SignIn(context.Background(), "ama@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, res.NeedsVerification)
	assert.Equal(t, MsgVerifyEmailFirst, res.Message)
	assert.Nil(t, h.ctrl.CurrentUser())
}

func TestSignInInvalidCredentials(t *testing.T) {
	h := newHarness(t, &fakeBackend{signInErr: platform.ErrInvalidCredentials}, newFakeProfiles())

	_, err := h.ctrl.SignIn(context.Background(), "ama@example.com", "nope")
	assert.ErrorIs(t, err, platform.ErrInvalidCredentials)
	assert.Equal(t, MsgInvalidLogin, Message(err))

	_, err = h.ctrl.SignIn(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSignInLoadsProfileOnceAndRedirectsAdmins(t *testing.T) {
	profiles := newFakeProfiles(models.Profile{ID: "admin-1", FullName: "Officer Mensah", Role: models.ROLE_ADMIN, BadgeID: "B-17"})
	h := newHarness(t, &fakeBackend{session: sessionFor("admin-1", "officer@example.com")}, profiles)

	loaded := make(chan string, 1)
	h.ctrl.SetDataLoader(func(_ context.Context, p *models.Profile) { loaded <- p.ID })

	res, err := h.ctrl.SignIn(context.Background(), "Officer@Example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "/admin/dashboard", res.RedirectTo)
	assert.Equal(t, "officer@example.com", res.User.Email)
	assert.Equal(t, 1, profiles.getCount(), "SIGNED_IN during sign-in must not fetch again")

	select {
	case id := <-loaded:
		assert.Equal(t, "admin-1", id)
	case <-time.After(time.Second):
		t.Fatal("user data was not loaded")
	}

	entry, ok, err := h.cache.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Officer Mensah", entry.Profile.FullName)
}

func TestSignInFallsBackWhenProfileUnavailable(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.getErr = errNetwork
	backend := &fakeBackend{session: sessionFor("u1", "kofi@example.com")}
	backend.session.User.Metadata = models.IdentityMetadata{VehiclePlate: "ABC123"}
	h := newHarness(t, backend, profiles)

	res, err := h.ctrl.SignIn(context.Background(), "kofi@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "kofi", res.User.FullName)
	assert.Equal(t, models.ROLE_USER, res.User.Role)
	assert.Equal(t, "ABC123", res.User.VehiclePlate)
	assert.Equal(t, "/dashboard", res.RedirectTo)
}

func TestRestoreUsesFreshCacheWithoutFetch(t *testing.T) {
	profiles := newFakeProfiles(models.Profile{ID: "u1", FullName: "Remote Name"})
	h := newHarness(t, &fakeBackend{session: sessionFor("u1", "ama@example.com")}, profiles)
	h.cache.Seed(sessioncache.Entry{Profile: models.Profile{ID: "u1", FullName: "Cached Name"}, CachedAt: time.Now().Add(-2 * time.Minute)})

	res := h.ctrl.Restore(context.Background())
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, "Cached Name", h.ctrl.CurrentUser().FullName)
	assert.Equal(t, 0, profiles.getCount())
	assert.False(t, h.store.Snapshot().AuthLoading)
}

func TestRestoreFetchesWhenCacheIsStale(t *testing.T) {
	profiles := newFakeProfiles(models.Profile{ID: "u1", FullName: "Remote Name"})
	h := newHarness(t, &fakeBackend{session: sessionFor("u1", "ama@example.com")}, profiles)
	h.cache.Seed(sessioncache.Entry{Profile: models.Profile{ID: "u1", FullName: "Cached Name"}, CachedAt: time.Now().Add(-10 * time.Minute)})

	res := h.ctrl.Restore(context.Background())
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, "Remote Name", h.ctrl.CurrentUser().FullName)
	assert.Equal(t, 1, profiles.getCount())
}

func TestRestoreOldCacheAndUnreachableSessionLogsOut(t *testing.T) {
	h := newHarness(t, &fakeBackend{getSessionErr: errNetwork}, newFakeProfiles())
	h.cache.Seed(sessioncache.Entry{Profile: models.Profile{ID: "u1"}, CachedAt: time.Now().Add(-45 * time.Minute)})

	res := h.ctrl.Restore(context.Background())
	assert.Equal(t, SourceNone, res.Source)
	assert.Nil(t, h.ctrl.CurrentUser())

	_, ok, err := h.cache.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, h.store.Snapshot().AuthLoading)
}

func TestRestoreTimesOutToRecentCache(t *testing.T) {
	h := newHarness(t, &fakeBackend{blockSession: true}, newFakeProfiles())
	h.cache.Seed(sessioncache.Entry{Profile: models.Profile{ID: "u1", FullName: "Ama"}, CachedAt: time.Now().Add(-10 * time.Minute)})

	start := time.Now()
	res := h.ctrl.Restore(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, res.TimedOut)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, "Ama", h.ctrl.CurrentUser().FullName)
}

func TestRestoreTimesOutWhileFetchingProfile(t *testing.T) {
	profiles := newFakeProfiles(models.Profile{ID: "u1", FullName: "Remote Name"})
	profiles.hang = make(chan struct{})
	t.Cleanup(func() { close(profiles.hang) })
	h := newHarness(t, &fakeBackend{session: sessionFor("u1", "ama@example.com")}, profiles)

	start := time.Now()
	res := h.ctrl.Restore(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, res.TimedOut)
	assert.Equal(t, SourceNone, res.Source)
	assert.Nil(t, h.ctrl.CurrentUser())
	assert.False(t, h.store.Snapshot().AuthLoading)
}

func TestRestoreProfileTimeoutUsesRecentCache(t *testing.T) {
	profiles := newFakeProfiles(models.Profile{ID: "u1", FullName: "Remote Name"})
	profiles.hang = make(chan struct{})
	t.Cleanup(func() { close(profiles.hang) })
	h := newHarness(t, &fakeBackend{session: sessionFor("u1", "ama@example.com")}, profiles)
	h.cache.Seed(sessioncache.Entry{Profile: models.Profile{ID: "u1", FullName: "Ama"}, CachedAt: time.Now().Add(-10 * time.Minute)})

	start := time.Now()
	res := h.ctrl.Restore(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, res.TimedOut)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, "Ama", h.ctrl.CurrentUser().FullName)
}

func TestRestoreWithoutSession(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, newFakeProfiles())
	h.cache.Seed(sessioncache.Entry{Profile: models.Profile{ID: "u1"}, CachedAt: time.Now()})

	res := h.ctrl.Restore(context.Background())
	assert.Equal(t, SourceNone, res.Source)
	assert.Nil(t, h.ctrl.CurrentUser())
	_, ok, _ := h.cache.Load(context.Background())
	assert.False(t, ok)
}

func TestAuthEventsDeduplicateAndSignOut(t *testing.T) {
	profiles := newFakeProfiles(models.Profile{ID: "u1", FullName: "Ama"})
	backend := &fakeBackend{session: sessionFor("u1", "ama@example.com")}
	h := newHarness(t, backend, profiles)
	ctx := context.Background()
	user := &backend.session.User

	h.ctrl.HandleAuthEvent(ctx, platform.AuthEvent{Type: platform.EventSignedIn, User: user})
	h.ctrl.HandleAuthEvent(ctx, platform.AuthEvent{Type: platform.EventSignedIn, User: user})
	h.ctrl.HandleAuthEvent(ctx, platform.AuthEvent{Type: platform.EventTokenRefreshed, User: user})
	assert.Equal(t, 1, profiles.getCount())
	_, touched, _ := h.cache.TouchedAt(ctx)
	assert.True(t, touched)

	h.ctrl.HandleAuthEvent(ctx, platform.AuthEvent{Type: platform.EventSignedOut})
	assert.Nil(t, h.ctrl.CurrentUser())

	// a later sign-in of the same user fetches again
	h.ctrl.HandleAuthEvent(ctx, platform.AuthEvent{Type: platform.EventInitialSession, User: user})
	assert.Equal(t, 2, profiles.getCount())
}

func TestSignOutIsImmediateAndRevokesInBackground(t *testing.T) {
	profiles := newFakeProfiles(models.Profile{ID: "u1", FullName: "Ama"})
	backend := &fakeBackend{session: sessionFor("u1", "ama@example.com")}
	h := newHarness(t, backend, profiles)
	ctx := context.Background()

	_, err := h.ctrl.SignIn(ctx, "ama@example.com", "correct-horse")
	require.NoError(t, err)
	h.store.Dispatch(appstate.SetComplaints{Complaints: []models.Complaint{{ID: 1}}})

	h.ctrl.SignOut(ctx)
	state := h.store.Snapshot()
	assert.Nil(t, state.CurrentUser)
	assert.Empty(t, state.Complaints)

	h.ctrl.Wait()
	assert.Equal(t, []string{"sess-u1"}, backend.revoked)
}

func TestSignUpCreatesProfileInBackground(t *testing.T) {
	backend := &fakeBackend{}
	profiles := newFakeProfiles()
	h := newHarness(t, backend, profiles)

	res, err := h.ctrl.SignUp(context.Background(), Registration{
		FullName:        "Ama Mensah",
		Email:           "Ama@Example.com",
		Password:        "correct-horse",
		ConfirmPassword: "correct-horse",
		PhoneNumber:     "024-123-4567",
		VehiclePlate:    "gr 1234-20",
	})
	require.NoError(t, err)
	assert.True(t, res.NeedsVerification)
	assert.Equal(t, MsgRegistered, res.Message)
	assert.Equal(t, "http://localhost:4000/email-verified", backend.signUpReq.RedirectTo)
	assert.Equal(t, "GR123420", backend.signUpReq.Metadata.VehiclePlate)
	assert.Equal(t, models.ROLE_USER, backend.signUpReq.Metadata.Role)

	h.ctrl.Wait()
	require.Len(t, profiles.created, 1)
	assert.Equal(t, "new-user", profiles.created[0].ID)
	assert.Equal(t, "ama@example.com", profiles.created[0].Email)
	assert.Nil(t, h.ctrl.CurrentUser())
}

func validRegistration() Registration {
	return Registration{
		FullName:        "Kofi Boateng",
		Email:           "kofi@example.com",
		Password:        "correct-horse",
		ConfirmPassword: "correct-horse",
		PhoneNumber:     "0241234567",
		VehiclePlate:    "ABC123",
	}
}

func TestSignUpUniquenessOrder(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.phoneExists = true
	profiles.plateExists = true
	h := newHarness(t, &fakeBackend{emailExists: true}, profiles)

	_, err := h.ctrl.SignUp(context.Background(), validRegistration())
	assert.Equal(t, MsgEmailTaken, Message(err))

	h.backend.emailExists = false
	_, err = h.ctrl.SignUp(context.Background(), validRegistration())
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "phone_number", dup.Field)
	assert.Equal(t, MsgPhoneTaken, dup.Message)

	profiles.phoneExists = false
	_, err = h.ctrl.SignUp(context.Background(), validRegistration())
	assert.Equal(t, MsgPlateTaken, Message(err))
}

func TestSignUpAllowsRegistrationWhenChecksFail(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.existsErr = errNetwork
	h := newHarness(t, &fakeBackend{emailExistsErr: errNetwork}, profiles)

	res, err := h.ctrl.SignUp(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.True(t, res.NeedsVerification)
}

func TestSignUpValidation(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, newFakeProfiles())
	reg := validRegistration()
	reg.PhoneNumber = "12345"
	reg.VehiclePlate = "AB1"
	reg.ConfirmPassword = "different"

	_, err := h.ctrl.SignUp(context.Background(), reg)
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "phone_number")
	assert.Contains(t, fields, "vehicle_plate")
	assert.Contains(t, fields, "confirm_password")
}

func TestFallbackProfile(t *testing.T) {
	p := FallbackProfile(&platform.User{ID: "u1", Email: "esi@example.com", Metadata: models.IdentityMetadata{FullName: "Esi", Role: models.ROLE_ADMIN, BadgeID: "B-1"}})
	assert.Equal(t, "Esi", p.FullName)
	assert.Equal(t, models.ROLE_ADMIN, p.Role)
	assert.Equal(t, "B-1", p.BadgeID)

	p = FallbackProfile(&platform.User{ID: "u2", Email: "yaw@example.com"})
	assert.Equal(t, "yaw", p.FullName)
	assert.Equal(t, models.ROLE_USER, p.Role)

	p = FallbackProfile(&platform.User{ID: "u3"})
	assert.Equal(t, "User", p.FullName)
}

func TestResetPasswordChecks(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, newFakeProfiles())
	var fields FieldErrors
	require.ErrorAs(t, h.ctrl.ResetPassword(context.Background(), "short", "short"), &fields)
	require.ErrorAs(t, h.ctrl.ResetPassword(context.Background(), "long-enough", "other-pass"), &fields)
	assert.Contains(t, fields, "confirm_password")
	assert.NoError(t, h.ctrl.ResetPassword(context.Background(), "long-enough", "long-enough"))

	assert.Error(t, h.ctrl.RequestPasswordReset(context.Background(), "not-an-email"))
	assert.NoError(t, h.ctrl.RequestPasswordReset(context.Background(), "ama@example.com"))
}
