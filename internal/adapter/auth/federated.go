package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/user/plugin-gateway/internal/domain"
)

// FederatedVerifier validates provider-issued identity tokens by calling the
// provider's userinfo endpoint. The call carries a bounded timeout; a
// timeout is treated as verification failure, never as success.
type FederatedVerifier struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// NewFederatedVerifier creates a verifier against the given userinfo
// endpoint.
func NewFederatedVerifier(endpoint string, timeout time.Duration) *FederatedVerifier {
	return &FederatedVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
	}
}

type userinfoResponse struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Scopes  []string `json:"scopes"`
}

// Verify presents the token to the identity provider and maps the userinfo
// response to an identity.
func (v *FederatedVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, domain.Unauthorized("federated verification failed")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, domain.Unauthorized(fmt.Sprintf("identity provider unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Unauthorized("identity provider rejected token")
	}

	var info userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, domain.Unauthorized("malformed identity provider response")
	}
	if info.Subject == "" {
		return nil, domain.Unauthorized("identity provider returned no subject")
	}

	return &domain.Identity{
		ID:     info.Subject,
		Email:  info.Email,
		Name:   info.Name,
		Scopes: info.Scopes,
	}, nil
}
