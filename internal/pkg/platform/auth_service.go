package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/app/repository"
)

// Mailer delivers transactional mail (confirmation and recovery links).
type Mailer interface {
	SendMail(to, subject, body string) error
}

type AuthConfig struct {
	Secret      []byte
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ConfirmTTL  time.Duration
	RecoveryTTL time.Duration
}

// SigningSecret checks the token signing secret. The anon key is handed to
// every browser, so it can never sign tokens.
func SigningSecret(secret, anonKey string) (string, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < MinSecretLength || secret == strings.TrimSpace(anonKey) {
		return "", ErrWeakSecret
	}
	return secret, nil
}

func DefaultAuthConfig(secret string) AuthConfig {
	return AuthConfig{
		Secret:      []byte(secret),
		AccessTTL:   time.Hour,
		RefreshTTL:  30 * 24 * time.Hour,
		ConfirmTTL:  24 * time.Hour,
		RecoveryTTL: time.Hour,
	}
}

// AuthService owns identities and sessions. It is shared by every client.
type AuthService struct {
	identities repository.IdentityRepository
	mailer     Mailer
	cfg        AuthConfig
	now        func() time.Time
}

func NewAuthService(identities repository.IdentityRepository, mailer Mailer, cfg AuthConfig) *AuthService {
	return &AuthService{
		identities: identities,
		mailer:     mailer,
		cfg:        cfg,
		now:        time.Now,
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	exists, err := s.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	identity := &models.Identity{
		ID:       uuid.NewString(),
		Email:    req.Email,
		Metadata: req.Metadata,
	}
	if err := identity.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, unavailable("create identity", err)
	}

	if err := s.sendConfirmation(identity, req.RedirectTo); err != nil {
		log.Warnf("[Auth] Could not send confirmation mail to %s: %v", identity.Email, err)
	}

	return toUser(identity), nil
}

func (s *AuthService) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.identities.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, unavailable("lookup email", err)
}

func (s *AuthService) sendConfirmation(identity *models.Identity, redirectTo string) error {
	token, err := s.signToken(purposeConfirm, identity.ID, "", s.cfg.ConfirmTTL)
	if err != nil {
		return err
	}
	link := withToken(redirectTo, token)
	body := fmt.Sprintf(`<p>Welcome to TrafficWatch!</p><p>Please confirm your email address by following <a href="%s">this link</a>.</p>`, link)
	return s.mailer.SendMail(identity.Email, "Confirm your TrafficWatch account", body)
}

func withToken(redirectTo, token string) string {
	sep := "?"
	if strings.Contains(redirectTo, "?") {
		sep = "&"
	}
	return redirectTo + sep + "token=" + url.QueryEscape(token)
}

func (s *AuthService) ResendConfirmation(ctx context.Context, email, redirectTo string) error {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return unavailable("lookup email", err)
	}
	if identity.IsConfirmed() {
		return nil
	}
	return s.sendConfirmation(identity, redirectTo)
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*User, error) {
	claims, err := s.parseToken(token, purposeConfirm)
	if err != nil {
		return nil, err
	}
	identity, err := s.identity(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if !identity.IsConfirmed() {
		now := s.now()
		identity.EmailConfirmedAt = &now
		if err := s.identities.Update(ctx, identity); err != nil {
			return nil, unavailable("confirm email", err)
		}
	}
	return toUser(identity), nil
}

// SignInWithPassword checks the password before the confirmation state so the
// unconfirmed result is only revealed to the account owner.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, unavailable("lookup email", err)
	}
	if !identity.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !identity.IsConfirmed() {
		return nil, ErrEmailNotConfirmed
	}
	return s.issueSession(ctx, identity)
}

func (s *AuthService) SignInWithProvider(ctx context.Context, pu ProviderUser) (*Session, error) {
	now := s.now()
	var identity *models.Identity

	account, err := s.identities.GetProviderAccount(ctx, pu.Provider, pu.ProviderUserID)
	switch {
	case err == nil:
		if identity, err = s.identity(ctx, account.IdentityID); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		account = &models.ProviderAccount{Provider: pu.Provider, ProviderUserID: pu.ProviderUserID}
		if pu.Email != "" {
			identity, err = s.identities.GetByEmail(ctx, pu.Email)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, unavailable("lookup email", err)
			}
		}
		if identity == nil {
			if identity, err = s.createProviderIdentity(ctx, pu); err != nil {
				return nil, err
			}
		}
		account.IdentityID = identity.ID
	default:
		return nil, unavailable("lookup provider account", err)
	}

	account.AccessToken = pu.AccessToken
	account.RefreshToken = pu.RefreshToken
	account.ExpiresAt = pu.ExpiresAt
	if err := s.identities.SaveProviderAccount(ctx, account); err != nil {
		return nil, unavailable("link provider", err)
	}

	// The provider has verified the address.
	if !identity.IsConfirmed() {
		identity.EmailConfirmedAt = &now
		if err := s.identities.Update(ctx, identity); err != nil {
			return nil, unavailable("confirm email", err)
		}
	}

	return s.issueSession(ctx, identity)
}

func (s *AuthService) createProviderIdentity(ctx context.Context, pu ProviderUser) (*models.Identity, error) {
	email := pu.Email
	if email == "" {
		email = fmt.Sprintf("%s_%s@%s.oauth.local", pu.Provider, pu.ProviderUserID, pu.Provider)
	}
	placeholder, err := models.GenerateToken(24)
	if err != nil {
		return nil, err
	}
	identity := &models.Identity{
		ID:    uuid.NewString(),
		Email: email,
		Metadata: models.IdentityMetadata{
			FullName: pu.Name,
			Role:     models.ROLE_USER,
		},
	}
	if err := identity.SetPassword(placeholder); err != nil {
		return nil, err
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, unavailable("create identity", err)
	}
	return identity, nil
}

func (s *AuthService) issueSession(ctx context.Context, identity *models.Identity) (*Session, error) {
	now := s.now()
	refresh, err := models.GenerateToken(32)
	if err != nil {
		return nil, err
	}
	record := &models.AuthSession{
		ID:               uuid.NewString(),
		IdentityID:       identity.ID,
		RefreshTokenHash: models.HashToken(refresh),
		ExpiresAt:        now.Add(s.cfg.RefreshTTL),
	}
	if err := s.identities.CreateSession(ctx, record); err != nil {
		return nil, unavailable("create session", err)
	}
	access, err := s.signToken(purposeAccess, identity.ID, record.ID, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	identity.LastSignInAt = &now
	if err := s.identities.Update(ctx, identity); err != nil {
		log.Warnf("[Auth] Could not record sign-in for %s: %v", identity.ID, err)
	}

	return &Session{
		ID:           record.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.cfg.AccessTTL),
		User:         *toUser(identity),
	}, nil
}

// GetUser resolves an access token to its identity, rejecting revoked sessions.
func (s *AuthService) GetUser(ctx context.Context, accessToken string) (*User, error) {
	identity, _, err := s.authorize(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return toUser(identity), nil
}

func (s *AuthService) authorize(ctx context.Context, accessToken string) (*models.Identity, *models.AuthSession, error) {
	claims, err := s.parseToken(accessToken, purposeAccess)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.identities.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionExpired
		}
		return nil, nil, unavailable("lookup session", err)
	}
	if !record.IsActive(s.now()) {
		return nil, nil, ErrSessionExpired
	}
	identity, err := s.identity(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	return identity, record, nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	record, err := s.identities.GetSessionByRefreshHash(ctx, models.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, unavailable("lookup session", err)
	}
	now := s.now()
	if !record.IsActive(now) {
		return nil, ErrSessionExpired
	}
	identity, err := s.identity(ctx, record.IdentityID)
	if err != nil {
		return nil, err
	}

	next, err := models.GenerateToken(32)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.cfg.RefreshTTL)
	if err := s.identities.RotateRefreshHash(ctx, record.ID, models.HashToken(next), expiresAt); err != nil {
		return nil, unavailable("rotate session", err)
	}
	access, err := s.signToken(purposeAccess, identity.ID, record.ID, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:           record.ID,
		AccessToken:  access,
		RefreshToken: next,
		ExpiresAt:    now.Add(s.cfg.AccessTTL),
		User:         *toUser(identity),
	}, nil
}

func (s *AuthService) Revoke(ctx context.Context, sessionID string) error {
	if err := s.identities.RevokeSession(ctx, sessionID, s.now()); err != nil {
		return unavailable("revoke session", err)
	}
	return nil
}

// ResetPasswordForEmail mails a recovery link. Unknown addresses succeed silently.
func (s *AuthService) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return unavailable("lookup email", err)
	}
	token, err := s.signToken(purposeRecovery, identity.ID, "", s.cfg.RecoveryTTL)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(`<p>We received a request to reset your TrafficWatch password.</p><p><a href="%s">Choose a new password</a>. The link expires in one hour.</p>`, withToken(redirectTo, token))
	return s.mailer.SendMail(identity.Email, "Reset your TrafficWatch password", body)
}

// VerifyRecovery exchanges a recovery token for a signed-in session.
func (s *AuthService) VerifyRecovery(ctx context.Context, token string) (*Session, error) {
	claims, err := s.parseToken(token, purposeRecovery)
	if err != nil {
		return nil, err
	}
	identity, err := s.identity(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	fresh, err := s.identities.ConsumeToken(ctx, &models.ConsumedToken{
		ID:         claims.ID,
		IdentityID: identity.ID,
		ExpiresAt:  claims.ExpiresAt.Time,
	})
	if err != nil {
		return nil, unavailable("consume recovery token", err)
	}
	if !fresh {
		return nil, ErrInvalidToken
	}
	if !identity.IsConfirmed() {
		now := s.now()
		identity.EmailConfirmedAt = &now
	}
	return s.issueSession(ctx, identity)
}

func (s *AuthService) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	identity, record, err := s.authorize(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := identity.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.identities.Update(ctx, identity); err != nil {
		return unavailable("update password", err)
	}
	// the session that changed the password stays signed in
	if err := s.identities.RevokeOtherSessions(ctx, identity.ID, record.ID, s.now()); err != nil {
		return unavailable("revoke sessions", err)
	}
	return nil
}

func (s *AuthService) identity(ctx context.Context, id string) (*models.Identity, error) {
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("lookup identity", err)
	}
	return identity, nil
}
