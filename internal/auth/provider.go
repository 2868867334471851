package auth

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/eventdesk/internal/config"
)

// Provider bundles the token verifier and password sign-in of one auth backend.
type Provider struct {
	verifier TokenVerifier
	signIn   PasswordAuthenticator
}

func NewProvider(verifier TokenVerifier, signIn PasswordAuthenticator) *Provider {
	return &Provider{verifier: verifier, signIn: signIn}
}

// NewProviderFromConfig wires the verifier selected by cfg.TokenVerifier.
// Password sign-in always goes through the provider's GoTrue API.
func NewProviderFromConfig(ctx context.Context, cfg config.AuthConfig) (*Provider, error) {
	client := NewGoTrueClient(cfg.ProviderURL, cfg.APIKey, cfg.Timeout)

	var verifier TokenVerifier
	switch cfg.TokenVerifier {
	case "jwt":
		verifier = NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience)
	case "oidc":
		oidcVerifier, err := NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return nil, err
		}
		verifier = oidcVerifier
	case "remote":
		verifier = client
	default:
		return nil, fmt.Errorf("unsupported token verifier %q", cfg.TokenVerifier)
	}

	return NewProvider(verifier, client), nil
}

func (p *Provider) VerifyToken(ctx context.Context, token string) (Identity, error) {
	return p.verifier.VerifyToken(ctx, token)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (Identity, Session, error) {
	return p.signIn.SignIn(ctx, email, password)
}
