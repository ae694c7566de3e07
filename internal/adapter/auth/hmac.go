package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/plugin-gateway/internal/domain"
)

// Claims are the custom claims carried by self-issued service tokens.
type Claims struct {
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HMACVerifier validates HS256-signed compact tokens against a shared
// secret. The payload must carry a non-empty subject; an expiry, when
// present, must not have elapsed.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier for the given shared secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, returning the identity encoded in
// its claims.
func (v *HMACVerifier) Verify(ctx context.Context, tokenString string) (*domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, domain.Unauthorized("invalid token")
	}
	if !token.Valid {
		return nil, domain.Unauthorized("invalid token")
	}
	if claims.Subject == "" {
		return nil, domain.Unauthorized("token has no subject")
	}

	return &domain.Identity{
		ID:     claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Scopes: claims.Scopes,
	}, nil
}

// GenerateToken creates a signed compact token for a user. Used by service
// tooling and tests; the gateway itself only verifies.
func GenerateToken(identity domain.Identity, secret string, expiry time.Duration) (string, error) {
	claims := &Claims{
		Email:  identity.Email,
		Name:   identity.Name,
		Scopes: identity.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
