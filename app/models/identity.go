package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// IdentityMetadata is the profile data captured at sign-up and kept on the
// identity record so a profile can be rebuilt when its row is missing.
type IdentityMetadata struct {
	FullName     string `json:"full_name,omitempty"`
	Role         string `json:"role,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
	BadgeID      string `json:"badge_id,omitempty"`
	Department   string `json:"department,omitempty"`
}

// Identity is the authentication record owned by the platform.
type Identity struct {
	ID               string           `gorm:"primaryKey;type:char(36)" json:"id"`
	Email            string           `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Password         string           `gorm:"type:text" json:"-"`
	EmailConfirmedAt *time.Time       `gorm:"default:null" json:"email_confirmed_at,omitempty"`
	Metadata         IdentityMetadata `gorm:"type:text;serializer:json" json:"user_metadata"`
	LastSignInAt     *time.Time       `gorm:"default:null" json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Identity) TableName() string {
	return "auth_identities"
}

func (i *Identity) IsConfirmed() bool {
	return i.EmailConfirmedAt != nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (i *Identity) CheckPassword(password string) bool {
	return CheckPasswordHash(password, i.Password)
}

// SetPassword hashes and sets a new password
func (i *Identity) SetPassword(password string) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	i.Password = hashed
	return nil
}

// AuthSession is a revocable refresh session. Only the token hash is stored.
type AuthSession struct {
	ID               string     `gorm:"primaryKey;type:char(36)" json:"id"`
	IdentityID       string     `gorm:"type:char(36);index" json:"identity_id"`
	RefreshTokenHash string     `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RevokedAt        *time.Time `gorm:"default:null" json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuthSession) TableName() string {
	return "auth_sessions"
}

func (s *AuthSession) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// ConsumedToken records a single-use token (by its jti) once it was redeemed.
type ConsumedToken struct {
	ID         string    `gorm:"primaryKey;type:char(36)"`
	IdentityID string    `gorm:"type:char(36)"`
	ExpiresAt  time.Time `gorm:"index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ConsumedToken) TableName() string {
	return "auth_consumed_tokens"
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// GenerateToken returns a random hex token of n bytes.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is used for refresh tokens at rest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
