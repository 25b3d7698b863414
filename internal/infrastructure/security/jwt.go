package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/golang-jwt/jwt/v4"
)

// IdentityClaims asserts the identity an envelope was emitted under
type IdentityClaims struct {
	AnonymousID     string `json:"anonymousId"`
	CohortID        string `json:"cohortId,omitempty"`
	DeviceID        string `json:"deviceId"`
	DeviceSessionID string `json:"deviceSessionId,omitempty"`
	jwt.RegisteredClaims
}

// GenerateIdentityToken signs a short-lived HS256 token for snap
func GenerateIdentityToken(snap identity.Snapshot, secret string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	claims := IdentityClaims{
		AnonymousID:     snap.AnonymousID,
		CohortID:        snap.CohortID,
		DeviceID:        snap.DeviceID,
		DeviceSessionID: snap.DeviceSessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GenerateULID(),
			Subject:   snap.AnonymousID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}

// ValidateIdentityToken parses and verifies a token produced by GenerateIdentityToken
func ValidateIdentityToken(tokenString, secret string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
