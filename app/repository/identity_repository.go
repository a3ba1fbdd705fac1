package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// identityRepository implements the IdentityRepository interface
type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new identity repository instance
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) Create(ctx context.Context, identity *models.Identity) error {
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	return r.db.WithContext(ctx).Create(identity).Error
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) Update(ctx context.Context, identity *models.Identity) error {
	return r.db.WithContext(ctx).Save(identity).Error
}

func (r *identityRepository) CreateSession(ctx context.Context, session *models.AuthSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *identityRepository) GetSession(ctx context.Context, id string) (*models.AuthSession, error) {
	var session models.AuthSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *identityRepository) GetSessionByRefreshHash(ctx context.Context, hash string) (*models.AuthSession, error) {
	var session models.AuthSession
	err := r.db.WithContext(ctx).Where("refresh_token_hash = ?", hash).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *identityRepository) RotateRefreshHash(ctx context.Context, id, hash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AuthSession{}).Where("id = ?", id).Updates(map[string]any{
		"refresh_token_hash": hash,
		"expires_at":         expiresAt,
	}).Error
}

func (r *identityRepository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (r *identityRepository) RevokeOtherSessions(ctx context.Context, identityID, keepID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("identity_id = ? AND id <> ? AND revoked_at IS NULL", identityID, keepID).
		Update("revoked_at", at).Error
}

func (r *identityRepository) ConsumeToken(ctx context.Context, token *models.ConsumedToken) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(token)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *identityRepository) GetProviderAccount(ctx context.Context, provider, providerUserID string) (*models.ProviderAccount, error) {
	var account models.ProviderAccount
	err := r.db.WithContext(ctx).Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *identityRepository) SaveProviderAccount(ctx context.Context, account *models.ProviderAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}
