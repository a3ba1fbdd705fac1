package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// SessionStorage persists one browser session's tokens.
type SessionStorage interface {
	LoadSession(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, session *Session) error
	ClearSession(ctx context.Context) error
}

// refreshThreshold triggers a token refresh when less than this remains.
const refreshThreshold = 5 * time.Minute

// Client is the per-browser-session view of the platform: it keeps the
// session in SessionStorage and announces changes on the event bus.
type Client struct {
	key     string
	auth    *AuthService
	storage SessionStorage
	bus     EventBus
	now     func() time.Time

	mu             sync.Mutex
	initialEmitted bool
}

func NewClient(key string, auth *AuthService, storage SessionStorage, bus EventBus) *Client {
	return &Client{
		key:     key,
		auth:    auth,
		storage: storage,
		bus:     bus,
		now:     time.Now,
	}
}

func (c *Client) SessionKey() string {
	return c.key
}

func (c *Client) emit(ctx context.Context, typ EventType, user *User) {
	evt := AuthEvent{Type: typ, SessionKey: c.key, User: user, At: c.now()}
	if err := c.bus.Publish(ctx, evt); err != nil {
		log.Warnf("[AuthClient] Could not publish %s for %s: %v", typ, c.key, err)
	}
}

// OnAuthStateChange registers handler for events of this browser session.
func (c *Client) OnAuthStateChange(handler func(AuthEvent)) func() {
	return c.bus.Subscribe(func(evt AuthEvent) {
		if evt.SessionKey == c.key {
			handler(evt)
		}
	})
}

// GetSession returns the stored session after verifying it with the
// platform. A nil session with a nil error means signed out.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	stored, err := c.storage.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w: %v", ErrUnavailable, err)
	}
	if stored == nil {
		return nil, nil
	}

	if stored.Expired(c.now()) {
		refreshed, err := c.refresh(ctx, stored)
		if err != nil || refreshed == nil {
			return nil, err
		}
		stored = refreshed
	} else {
		user, err := c.auth.GetUser(ctx, stored.AccessToken)
		if err != nil {
			if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrNotFound) {
				c.dropSession(ctx)
				return nil, nil
			}
			return nil, err
		}
		stored.User = *user
	}

	c.mu.Lock()
	first := !c.initialEmitted
	c.initialEmitted = true
	c.mu.Unlock()
	if first {
		c.emit(ctx, EventInitialSession, &stored.User)
	}
	return stored, nil
}

// AutoRefresh renews the access token shortly before it expires.
func (c *Client) AutoRefresh(ctx context.Context) error {
	stored, err := c.storage.LoadSession(ctx)
	if err != nil || stored == nil {
		return err
	}
	if !stored.ExpiresWithin(c.now(), refreshThreshold) {
		return nil
	}
	_, err = c.refresh(ctx, stored)
	return err
}

func (c *Client) refresh(ctx context.Context, stored *Session) (*Session, error) {
	refreshed, err := c.auth.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotFound) {
			c.dropSession(ctx)
			return nil, nil
		}
		return nil, err
	}
	if err := c.storage.SaveSession(ctx, refreshed); err != nil {
		return nil, fmt.Errorf("save session: %w: %v", ErrUnavailable, err)
	}
	c.emit(ctx, EventTokenRefreshed, &refreshed.User)
	return refreshed, nil
}

func (c *Client) dropSession(ctx context.Context) {
	if err := c.storage.ClearSession(ctx); err != nil {
		log.Warnf("[AuthClient] Could not clear session %s: %v", c.key, err)
	}
	c.emit(ctx, EventSignedOut, nil)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	session, err := c.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.establish(ctx, session)
}

func (c *Client) SignInWithProvider(ctx context.Context, pu ProviderUser) (*Session, error) {
	session, err := c.auth.SignInWithProvider(ctx, pu)
	if err != nil {
		return nil, err
	}
	return c.establish(ctx, session)
}

// VerifyRecovery signs the browser in with a password recovery link.
func (c *Client) VerifyRecovery(ctx context.Context, token string) (*Session, error) {
	session, err := c.auth.VerifyRecovery(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.establish(ctx, session)
}

func (c *Client) establish(ctx context.Context, session *Session) (*Session, error) {
	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w: %v", ErrUnavailable, err)
	}
	c.emit(ctx, EventSignedIn, &session.User)
	return session, nil
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	return c.auth.SignUp(ctx, req)
}

// SignOut forgets the local session and returns its id for remote revocation.
func (c *Client) SignOut(ctx context.Context) (string, error) {
	stored, err := c.storage.LoadSession(ctx)
	if err != nil {
		log.Warnf("[AuthClient] Could not read session %s before sign-out: %v", c.key, err)
	}
	if err := c.storage.ClearSession(ctx); err != nil {
		return "", fmt.Errorf("clear session: %w", err)
	}
	c.emit(ctx, EventSignedOut, nil)
	if stored == nil {
		return "", nil
	}
	return stored.ID, nil
}

func (c *Client) Revoke(ctx context.Context, sessionID string) error {
	return c.auth.Revoke(ctx, sessionID)
}

func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	stored, err := c.storage.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w: %v", ErrUnavailable, err)
	}
	if stored == nil {
		return ErrSessionMissing
	}
	if err := c.auth.UpdatePassword(ctx, stored.AccessToken, newPassword); err != nil {
		return err
	}
	c.emit(ctx, EventUserUpdated, &stored.User)
	return nil
}

func (c *Client) EmailExists(ctx context.Context, email string) (bool, error) {
	return c.auth.EmailExists(ctx, email)
}

func (c *Client) ResendConfirmation(ctx context.Context, email, redirectTo string) error {
	return c.auth.ResendConfirmation(ctx, email, redirectTo)
}

func (c *Client) ConfirmEmail(ctx context.Context, token string) (*User, error) {
	return c.auth.ConfirmEmail(ctx, token)
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return c.auth.ResetPasswordForEmail(ctx, email, redirectTo)
}
