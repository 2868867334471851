package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/metrics"
)

// PrincipalResolver joins a verified identity with its user profile.
// A missing profile yields a Principal without UserID, not an error.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, identity auth.Identity) (auth.Principal, error)
}

type contextKeyAuth string

const principalKey contextKeyAuth = "principal"

const (
	msgMissingAuthorization = "Missing or invalid authorization header"
	msgInvalidToken         = "Invalid or expired token"
	msgAdminRequired        = "Unauthorized. Admin access required."
)

type authMode int

const (
	modeRequired authMode = iota
	modeOptional
	modeAdmin
)

// Authenticate requires a bearer token, verifies it and stores the caller's
// Principal in the request context.
func Authenticate(verifier auth.TokenVerifier, resolver PrincipalResolver) func(http.Handler) http.Handler {
	return authenticate(verifier, resolver, modeRequired)
}

// AuthenticateAdmin is Authenticate for admin-only routes. A caller whose
// profile cannot be loaded is denied with 403 instead of a server error.
func AuthenticateAdmin(verifier auth.TokenVerifier, resolver PrincipalResolver) func(http.Handler) http.Handler {
	return authenticate(verifier, resolver, modeAdmin)
}

// OptionalAuthenticate resolves the caller when a valid bearer token is
// present. Requests without one, or with a malformed or rejected token, pass
// through anonymously.
func OptionalAuthenticate(verifier auth.TokenVerifier, resolver PrincipalResolver) func(http.Handler) http.Handler {
	return authenticate(verifier, resolver, modeOptional)
}

func authenticate(verifier auth.TokenVerifier, resolver PrincipalResolver, mode authMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" && mode == modeOptional {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.TokenFromHeader(header)
			if err != nil || token == "" {
				metrics.AuthFailures.WithLabelValues("missing_header").Inc()
				if mode == modeOptional {
					next.ServeHTTP(w, r)
					return
				}
				envelope.Error(w, r, http.StatusUnauthorized, msgMissingAuthorization, err)
				return
			}

			identity, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrMissingToken) {
					metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
					if mode == modeOptional {
						next.ServeHTTP(w, r)
						return
					}
					envelope.Error(w, r, http.StatusUnauthorized, msgInvalidToken, err)
					return
				}
				metrics.AuthFailures.WithLabelValues("provider_error").Inc()
				envelope.Error(w, r, http.StatusInternalServerError, "An error occurred while verifying the token", err)
				return
			}

			principal, err := resolver.ResolvePrincipal(r.Context(), identity)
			if err != nil {
				if mode == modeAdmin {
					metrics.AuthFailures.WithLabelValues("profile_lookup").Inc()
					envelope.Error(w, r, http.StatusForbidden, msgAdminRequired, err)
					return
				}
				envelope.Error(w, r, http.StatusInternalServerError, "An error occurred while fetching user data", err)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), &principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ContextWithPrincipal(ctx context.Context, principal *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFrom returns the authenticated caller, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *auth.Principal {
	if principal, ok := ctx.Value(principalKey).(*auth.Principal); ok {
		return principal
	}
	return nil
}
