package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/appstate"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/sessioncache"
)

// Backend is the platform client of one browser session.
type Backend interface {
	SessionKey() string
	GetSession(ctx context.Context) (*platform.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*platform.Session, error)
	SignInWithProvider(ctx context.Context, pu platform.ProviderUser) (*platform.Session, error)
	VerifyRecovery(ctx context.Context, token string) (*platform.Session, error)
	SignUp(ctx context.Context, req platform.SignUpRequest) (*platform.User, error)
	SignOut(ctx context.Context) (string, error)
	Revoke(ctx context.Context, sessionID string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	EmailExists(ctx context.Context, email string) (bool, error)
	ResendConfirmation(ctx context.Context, email, redirectTo string) error
	ConfirmEmail(ctx context.Context, token string) (*platform.User, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	OnAuthStateChange(handler func(platform.AuthEvent)) func()
}

type Config struct {
	// SiteURL is the public base URL used in email links.
	SiteURL        string
	RestoreTimeout time.Duration
	FreshFor       time.Duration
	FallbackFor    time.Duration
	// BackgroundTimeout bounds detached work such as profile creation.
	BackgroundTimeout time.Duration
}

func DefaultConfig(siteURL string) Config {
	return Config{
		SiteURL:           strings.TrimRight(siteURL, "/"),
		RestoreTimeout:    5 * time.Second,
		FreshFor:          sessioncache.FreshFor,
		FallbackFor:       sessioncache.FallbackFor,
		BackgroundTimeout: 15 * time.Second,
	}
}

// Source tells where a restored user came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

type RestoreResult struct {
	User     *models.Profile
	Source   Source
	TimedOut bool
}

type SignInResult struct {
	User              *models.Profile
	NeedsVerification bool
	RedirectTo        string
	Message           string
}

type SignUpResult struct {
	Email             string
	NeedsVerification bool
	Message           string
}

// Controller owns authentication for one browser session: it restores the
// session on first load, signs users in and out and keeps the current user
// in the application state.
type Controller struct {
	backend  Backend
	profiles repository.ProfileRepository
	cache    sessioncache.Cache
	store    *appstate.Store
	cfg      Config
	now      func() time.Time

	mu                sync.Mutex
	lastHandledUserID string
	suppress          int
	loadData          func(ctx context.Context, profile *models.Profile)

	wg          sync.WaitGroup
	unsubscribe func()
}

func NewController(backend Backend, profiles repository.ProfileRepository, cache sessioncache.Cache, store *appstate.Store, cfg Config) *Controller {
	return &Controller{
		backend:  backend,
		profiles: profiles,
		cache:    cache,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetDataLoader registers the loader run in the background after a user
// becomes current.
func (c *Controller) SetDataLoader(fn func(ctx context.Context, profile *models.Profile)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadData = fn
}

// Attach subscribes the controller to auth state changes of its session.
func (c *Controller) Attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		return
	}
	c.unsubscribe = c.backend.OnAuthStateChange(func(evt platform.AuthEvent) {
		c.HandleAuthEvent(context.Background(), evt)
	})
}

// Close detaches from the event bus and waits for background work.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	c.wg.Wait()
}

// Wait blocks until detached work (profile creation, revocation, data loads) is done.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) CurrentUser() *models.Profile {
	return c.store.Snapshot().CurrentUser
}

// begin marks an operation that handles its own SIGNED_IN/INITIAL_SESSION.
func (c *Controller) begin() {
	c.mu.Lock()
	c.suppress++
	c.mu.Unlock()
}

func (c *Controller) end() {
	c.mu.Lock()
	c.suppress--
	c.mu.Unlock()
}

func (c *Controller) markHandled(userID string) {
	c.mu.Lock()
	c.lastHandledUserID = userID
	c.mu.Unlock()
}

func (c *Controller) background(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.BackgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Restore initializes the session on first load. It always completes
// within RestoreTimeout.
func (c *Controller) Restore(ctx context.Context) RestoreResult {
	c.begin()
	defer c.end()
	c.store.Dispatch(appstate.SetAuthLoading{Loading: true})
	defer c.store.Dispatch(appstate.SetAuthLoading{Loading: false})

	entry, hasEntry, err := c.cache.Load(ctx)
	if err != nil {
		log.Warnf("[Auth] Could not read session cache for %s: %v", c.backend.SessionKey(), err)
		hasEntry = false
	}

	type outcome struct {
		session *platform.Session
		profile *models.Profile
		source  Source
		err     error
	}
	restoreCtx, cancel := context.WithTimeout(ctx, c.cfg.RestoreTimeout)
	defer cancel()
	done := make(chan outcome, 1)
	go func() {
		session, err := c.backend.GetSession(restoreCtx)
		if err != nil || session == nil {
			done <- outcome{session: session, err: err}
			return
		}
		user := &session.User
		if hasEntry && entry.Profile.ID == user.ID && entry.Age(c.now()) < c.cfg.FreshFor {
			profile := entry.Profile
			done <- outcome{session: session, profile: &profile, source: SourceCache}
			return
		}
		profile, source := c.fetchProfile(restoreCtx, user)
		if err := restoreCtx.Err(); err != nil {
			done <- outcome{err: err}
			return
		}
		done <- outcome{session: session, profile: profile, source: source}
	}()

	var out outcome
	timedOut := false
	select {
	case out = <-done:
		timedOut = errors.Is(out.err, context.DeadlineExceeded)
	case <-restoreCtx.Done():
		timedOut = true
		out.err = restoreCtx.Err()
	}

	if out.err != nil {
		if hasEntry && entry.Age(c.now()) < c.cfg.FallbackFor {
			log.Warnf("[Auth] Session check failed for %s, using cached profile: %v", c.backend.SessionKey(), out.err)
			profile := entry.Profile
			c.becomeCurrent(&profile, false)
			return RestoreResult{User: &profile, Source: SourceCache, TimedOut: timedOut}
		}
		log.Warnf("[Auth] Session check failed for %s, continuing signed out: %v", c.backend.SessionKey(), out.err)
		c.clearLocal(ctx)
		return RestoreResult{Source: SourceNone, TimedOut: timedOut}
	}

	if out.session == nil {
		c.clearLocal(ctx)
		return RestoreResult{Source: SourceNone}
	}

	c.becomeCurrent(out.profile, out.source != SourceCache)
	return RestoreResult{User: out.profile, Source: out.source}
}

// fetchProfile loads the profile row, falling back to one built from the
// identity when the row is missing or unreachable.
func (c *Controller) fetchProfile(ctx context.Context, user *platform.User) (*models.Profile, Source) {
	profile, err := c.profiles.GetByID(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warnf("[Auth] Could not fetch profile %s, using fallback: %v", user.ID, err)
		}
		return FallbackProfile(user), SourceFallback
	}
	if profile.Email == "" {
		profile.Email = user.Email
	}
	return profile, SourceRemote
}

// becomeCurrent makes profile the current user and starts loading its data.
func (c *Controller) becomeCurrent(profile *models.Profile, save bool) {
	c.markHandled(profile.ID)
	if save {
		if err := c.cache.Save(context.Background(), profile); err != nil {
			log.Warnf("[Auth] Could not cache profile %s: %v", profile.ID, err)
		}
	}
	if err := c.cache.Touch(context.Background()); err != nil {
		log.Warnf("[Auth] Could not record auth state: %v", err)
	}
	c.store.Dispatch(appstate.SetUser{User: profile})

	c.mu.Lock()
	loadData := c.loadData
	c.mu.Unlock()
	if loadData != nil {
		current := *profile
		c.background(func(ctx context.Context) { loadData(ctx, &current) })
	}
}

func (c *Controller) clearLocal(ctx context.Context) {
	c.mu.Lock()
	c.lastHandledUserID = ""
	c.mu.Unlock()
	c.store.Dispatch(appstate.Logout{})
	if err := c.cache.Clear(ctx); err != nil {
		log.Warnf("[Auth] Could not clear session cache: %v", err)
	}
}

// HandleAuthEvent reacts to auth state changes announced by the platform.
func (c *Controller) HandleAuthEvent(ctx context.Context, evt platform.AuthEvent) {
	switch evt.Type {
	case platform.EventSignedIn, platform.EventInitialSession:
		if evt.User == nil {
			return
		}
		c.mu.Lock()
		skip := c.suppress > 0 || c.lastHandledUserID == evt.User.ID
		if !skip {
			c.lastHandledUserID = evt.User.ID
		}
		c.mu.Unlock()
		if skip {
			return
		}
		profile, source := c.fetchProfile(ctx, evt.User)
		log.Infof("[Auth] %s for %s (%s profile)", evt.Type, evt.User.ID, source)
		c.becomeCurrent(profile, true)
	case platform.EventSignedOut:
		c.clearLocal(ctx)
	case platform.EventTokenRefreshed, platform.EventUserUpdated:
		if err := c.cache.Touch(ctx); err != nil {
			log.Warnf("[Auth] Could not record auth state: %v", err)
		}
	}
}

// SignIn validates credentials with the platform and makes the user current.
func (c *Controller) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return SignInResult{}, ErrMissingCredentials
	}

	c.begin()
	defer c.end()

	session, err := c.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, platform.ErrEmailNotConfirmed) {
			return SignInResult{NeedsVerification: true, Message: MsgVerifyEmailFirst}, nil
		}
		return SignInResult{}, err
	}
	return c.completeSignIn(ctx, session), nil
}

// SignInWithProvider completes an OAuth login.
func (c *Controller) SignInWithProvider(ctx context.Context, pu platform.ProviderUser) (SignInResult, error) {
	c.begin()
	defer c.end()

	session, err := c.backend.SignInWithProvider(ctx, pu)
	if err != nil {
		return SignInResult{}, err
	}
	return c.completeSignIn(ctx, session), nil
}

func (c *Controller) completeSignIn(ctx context.Context, session *platform.Session) SignInResult {
	profile, _ := c.fetchProfile(ctx, &session.User)
	c.becomeCurrent(profile, true)
	log.Infof("[Auth] Signed in %s", profile.ID)
	return SignInResult{User: profile, RedirectTo: profile.DashboardPath()}
}

// SignUp registers a new account. The profile row is written in the
// background; the user must confirm the email before signing in.
func (c *Controller) SignUp(ctx context.Context, reg Registration) (SignUpResult, error) {
	reg.normalize()
	if err := reg.Validate(); err != nil {
		return SignUpResult{}, err
	}
	if err := c.checkUnique(ctx, reg); err != nil {
		return SignUpResult{}, err
	}

	user, err := c.backend.SignUp(ctx, platform.SignUpRequest{
		Email:    reg.Email,
		Password: reg.Password,
		Metadata: models.IdentityMetadata{
			FullName:     reg.FullName,
			Role:         models.ROLE_USER,
			PhoneNumber:  reg.PhoneNumber,
			VehiclePlate: reg.VehiclePlate,
		},
		RedirectTo: c.cfg.SiteURL + "/email-verified",
	})
	if err != nil {
		switch {
		case errors.Is(err, platform.ErrEmailTaken):
			return SignUpResult{}, &DuplicateError{Field: "email", Message: MsgEmailTaken}
		case errors.Is(err, platform.ErrWeakPassword):
			return SignUpResult{}, FieldErrors{"password": "Password must be at least 8 characters"}
		}
		return SignUpResult{}, err
	}

	profile := &models.Profile{
		ID:           user.ID,
		FullName:     reg.FullName,
		Email:        reg.Email,
		PhoneNumber:  reg.PhoneNumber,
		VehiclePlate: reg.VehiclePlate,
		Role:         models.ROLE_USER,
	}
	c.background(func(ctx context.Context) {
		if err := c.profiles.Create(ctx, profile); err != nil {
			log.Errorf("[Auth] Could not create profile for %s: %v", profile.ID, err)
		}
	})

	return SignUpResult{Email: reg.Email, NeedsVerification: true, Message: MsgRegistered}, nil
}

// checkUnique checks email, phone and plate. A failing check lets the
// registration through.
func (c *Controller) checkUnique(ctx context.Context, reg Registration) error {
	checks := []struct {
		field   string
		message string
		exists  func() (bool, error)
	}{
		{"email", MsgEmailTaken, func() (bool, error) { return c.backend.EmailExists(ctx, reg.Email) }},
		{"phone_number", MsgPhoneTaken, func() (bool, error) { return c.profiles.ExistsByPhone(ctx, reg.PhoneNumber) }},
		{"vehicle_plate", MsgPlateTaken, func() (bool, error) { return c.profiles.ExistsByPlate(ctx, reg.VehiclePlate) }},
	}
	for _, p := range checks {
		exists, err := p.exists()
		if err != nil {
			log.Warnf("[Auth] Uniqueness check for %s failed, allowing registration: %v", p.field, err)
			continue
		}
		if exists {
			return &DuplicateError{Field: p.field, Message: p.message}
		}
	}
	return nil
}

// SignOut drops the local session immediately and revokes it remotely in
// the background.
func (c *Controller) SignOut(ctx context.Context) {
	c.clearLocal(ctx)

	sessionID, err := c.backend.SignOut(ctx)
	if err != nil {
		log.Warnf("[Auth] Local sign-out for %s failed: %v", c.backend.SessionKey(), err)
	}
	if sessionID == "" {
		return
	}
	c.background(func(ctx context.Context) {
		if err := c.backend.Revoke(ctx, sessionID); err != nil {
			log.Warnf("[Auth] Could not revoke session %s: %v", sessionID, err)
		}
	})
}

// RequestPasswordReset mails a recovery link to email.
func (c *Controller) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := models.Validator().Var(email, "required,email"); err != nil {
		return FieldErrors{"email": "Please enter a valid email address"}
	}
	return c.backend.ResetPasswordForEmail(ctx, email, c.cfg.SiteURL+"/reset-password")
}

// VerifyRecovery signs the browser in with a recovery link so a new
// password can be chosen.
func (c *Controller) VerifyRecovery(ctx context.Context, token string) (*models.Profile, error) {
	c.begin()
	defer c.end()

	session, err := c.backend.VerifyRecovery(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.completeSignIn(ctx, session).User, nil
}

// ResetPassword sets a new password for the signed-in user.
func (c *Controller) ResetPassword(ctx context.Context, newPassword, confirm string) error {
	if len(newPassword) < platform.MinPasswordLength {
		return FieldErrors{"password": "Password must be at least 8 characters"}
	}
	if newPassword != confirm {
		return FieldErrors{"confirm_password": "Passwords do not match"}
	}
	return c.backend.UpdatePassword(ctx, newPassword)
}

func (c *Controller) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := models.Validator().Var(email, "required,email"); err != nil {
		return FieldErrors{"email": "Please enter a valid email address"}
	}
	return c.backend.ResendConfirmation(ctx, email, c.cfg.SiteURL+"/email-verified")
}

func (c *Controller) ConfirmEmail(ctx context.Context, token string) (*platform.User, error) {
	if token == "" {
		return nil, platform.ErrInvalidToken
	}
	return c.backend.ConfirmEmail(ctx, token)
}

// FallbackProfile builds a minimal profile from identity metadata.
func FallbackProfile(user *platform.User) *models.Profile {
	meta := user.Metadata
	name := strings.TrimSpace(meta.FullName)
	if name == "" {
		if at := strings.Index(user.Email, "@"); at > 0 {
			name = user.Email[:at]
		}
	}
	if name == "" {
		name = "User"
	}
	role := meta.Role
	if role == "" {
		role = models.ROLE_USER
	}
	return &models.Profile{
		ID:           user.ID,
		FullName:     name,
		Email:        user.Email,
		PhoneNumber:  meta.PhoneNumber,
		VehiclePlate: meta.VehiclePlate,
		BadgeID:      meta.BadgeID,
		Department:   meta.Department,
		Role:         role,
	}
}
