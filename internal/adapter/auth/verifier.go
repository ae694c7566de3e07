// Package auth verifies bearer credentials and resolves them to an
// authenticated identity. Two strategies are supported: HMAC-signed compact
// tokens issued by the service itself, and federated identity tokens
// verified against an external provider.
package auth

import (
	"context"
	"log/slog"

	"github.com/user/plugin-gateway/internal/domain"
)

// Verifier validates a bearer token and yields the identity it represents.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// ChainVerifier tries each verifier in order; the first to succeed wins.
// Callers never need to disambiguate which kind of token they hold.
type ChainVerifier struct {
	verifiers []Verifier
	logger    *slog.Logger
}

// NewChainVerifier creates a ChainVerifier over the given strategies.
func NewChainVerifier(logger *slog.Logger, verifiers ...Verifier) *ChainVerifier {
	return &ChainVerifier{verifiers: verifiers, logger: logger}
}

// Verify returns the identity from the first succeeding strategy, or
// Unauthorized when the token is empty or every strategy rejects it.
func (c *ChainVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.Unauthorized("missing bearer token")
	}

	for _, v := range c.verifiers {
		identity, err := v.Verify(ctx, token)
		if err == nil {
			return identity, nil
		}
		c.logger.Debug("credential strategy rejected token", "strategy", strategyName(v), "error", err)
	}

	return nil, domain.Unauthorized("invalid or expired credential")
}

func strategyName(v Verifier) string {
	switch v.(type) {
	case *HMACVerifier:
		return "hmac"
	case *FederatedVerifier:
		return "federated"
	default:
		return "unknown"
	}
}
