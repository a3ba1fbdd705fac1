package platform

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeAccess   = "access"
	purposeConfirm  = "email_confirm"
	purposeRecovery = "recovery"
)

type tokenClaims struct {
	Purpose   string `json:"purpose"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

func (s *AuthService) signToken(purpose, subject, sessionID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Purpose:   purpose,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.Secret)
}

func (s *AuthService) parseToken(tokenString, purpose string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.cfg.Secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && purpose == purposeAccess {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
