package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/platinummonkey/panelhub/pkg/auth"
	"github.com/platinummonkey/panelhub/pkg/contextkeys"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/sirupsen/logrus"
)

// IdentityResolver turns a bearer token into an identity
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Identity, error)
}

const (
	gateMandatory = "mandatory"
	gateOptional  = "optional"
	gateRole      = "role"
)

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	resolver IdentityResolver
	optional bool // If true, allow requests without auth
	logger   logrus.FieldLogger
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver IdentityResolver, optional bool, logger logrus.FieldLogger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		optional: optional,
		logger:   logger,
		metrics:  metrics,
	}
}

// RequireAuth returns the mandatory gate: requests without a resolvable
// identity are rejected with 401 and never reach next.
func RequireAuth(resolver IdentityResolver, logger logrus.FieldLogger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return NewAuthMiddleware(resolver, false, logger, metrics).Handler
}

// OptionalAuth returns the optional gate: it attaches an identity when one
// resolves and otherwise proceeds anonymously.
func OptionalAuth(resolver IdentityResolver, logger logrus.FieldLogger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return NewAuthMiddleware(resolver, true, logger, metrics).Handler
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.optional {
			m.serveOptional(w, r, next)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w, "missing authorization header")
			return
		}

		token, ok := auth.BearerToken(authHeader)
		if !ok {
			m.reject(w, "invalid authorization header format")
			return
		}

		identity, err := m.resolver.Resolve(r.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrInvalidToken):
			m.reject(w, "invalid or expired token")
			return
		case errors.Is(err, auth.ErrIdentityNotFound):
			m.reject(w, "user not found")
			return
		default:
			// Store faults are still an authentication failure for the caller
			m.logger.WithError(err).Error("identity lookup failed")
			m.reject(w, "not authorized")
			return
		}

		m.metrics.AuthDecision(gateMandatory, "allowed")
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

func (m *AuthMiddleware) serveOptional(w http.ResponseWriter, r *http.Request, next http.Handler) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok || token == "" {
		m.metrics.AuthDecision(gateOptional, "anonymous")
		next.ServeHTTP(w, r)
		return
	}

	identity, err := m.resolver.Resolve(r.Context(), token)
	if err != nil {
		m.logger.WithError(err).Debug("optional auth ignored credential")
		m.metrics.AuthDecision(gateOptional, "anonymous")
		next.ServeHTTP(w, r)
		return
	}

	m.metrics.AuthDecision(gateOptional, "identified")
	next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, message string) {
	m.logger.WithField("reason", message).Debug("authentication rejected")
	m.metrics.AuthDecision(gateMandatory, "rejected")
	httputil.WriteUnauthorized(w, message)
}

func withIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	ctx = contextkeys.WithIdentity(ctx, identity)
	return contextkeys.WithUserID(ctx, strconv.FormatInt(identity.ID, 10))
}

// IdentityFrom extracts the resolved identity from the context.
// ok is false for anonymous requests.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// GetIdentity extracts the resolved identity from the request
func GetIdentity(r *http.Request) *auth.Identity {
	identity, _ := IdentityFrom(r.Context())
	return identity
}

// RequireRole creates middleware that checks the attached identity's platform role.
// It must run after RequireAuth and does not re-verify the token.
func RequireRole(role auth.Role, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				metrics.AuthDecision(gateRole, "rejected")
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !identity.HasRole(role) {
				metrics.AuthDecision(gateRole, "forbidden")
				httputil.WriteForbidden(w, "insufficient role permissions")
				return
			}

			metrics.AuthDecision(gateRole, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}
