package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dhalloran/scrawl/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager mints and validates the short-lived verification tokens a
// challenge session earns on passing. The token is the upstream "ready to
// submit" signal: the contact endpoint refuses submissions that do not
// carry a valid one.
type TokenManager struct {
	secret string
	expiry time.Duration
}

// NewTokenManager creates a TokenManager signing with the given HMAC secret.
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: secret,
		expiry: expiry,
	}
}

// GenerateVerificationToken creates a token bound to a verified session.
func (tm *TokenManager) GenerateVerificationToken(sessionID string) (string, error) {
	claims := &models.CaptchaClaims{
		Type:      "captcha",
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign verification token: %w", err)
	}

	return signed, nil
}

// ValidateVerificationToken parses a token and returns the session ID it is
// bound to. Expired tokens map to models.ErrTokenExpired, everything else
// invalid to models.ErrTokenInvalid.
func (tm *TokenManager) ValidateVerificationToken(tokenString string) (string, error) {
	claims := &models.CaptchaClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", models.ErrTokenExpired
		}
		return "", models.ErrTokenInvalid
	}

	if !token.Valid || claims.Type != "captcha" || claims.SessionID == "" {
		return "", models.ErrTokenInvalid
	}

	return claims.SessionID, nil
}
