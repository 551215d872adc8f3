package groups

import (
	"context"
	"errors"
	"net/http"

	"github.com/platinummonkey/panelhub/pkg/contextkeys"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/middleware"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Middleware resolves group scope and enforces group roles on HTTP routes.
// All handlers expect the identity attached by middleware.RequireAuth.
type Middleware struct {
	scope   *ScopeResolver
	gate    *Gate
	logger  logrus.FieldLogger
	metrics *observability.Metrics
}

// NewMiddleware creates group middleware over the given store
func NewMiddleware(store Store, logger logrus.FieldLogger, metrics *observability.Metrics) *Middleware {
	return &Middleware{
		scope:   NewScopeResolver(store),
		gate:    NewGate(store),
		logger:  logger,
		metrics: metrics,
	}
}

// ScopeFromPath takes the group id directly from the named path variable
func (m *Middleware) ScopeFromPath(param string) func(http.Handler) http.Handler {
	return m.scopeFrom(param, func(_ context.Context, id int64) (int64, error) {
		return id, nil
	})
}

// ScopeFromComic resolves the group that owns the comic in the named path variable
func (m *Middleware) ScopeFromComic(param string) func(http.Handler) http.Handler {
	return m.scopeFrom(param, m.scope.FromComic)
}

// ScopeFromChapter resolves the group that owns the chapter in the named path variable
func (m *Middleware) ScopeFromChapter(param string) func(http.Handler) http.Handler {
	return m.scopeFrom(param, m.scope.FromChapter)
}

func (m *Middleware) scopeFrom(param string, resolve func(context.Context, int64) (int64, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := httputil.ParsePathInt64OrError(w, r, param)
			if !ok {
				return
			}

			groupID, err := resolve(r.Context(), id)
			if err != nil {
				m.writeError(w, r, "scope", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextkeys.WithGroupID(r.Context(), groupID)))
		})
	}
}

// BelongsToGroup admits members of the scoped group and its owner.
// It attaches the group and the caller's Authorization to the request.
func (m *Middleware) BelongsToGroup(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		groupID, ok := contextkeys.GetGroupID(r.Context())
		if !ok {
			m.logger.WithField("path", r.URL.Path).Error("group scope missing from request")
			httputil.WriteInternalError(w)
			return
		}

		group, authz, err := m.gate.Authorize(r.Context(), groupID, identity.ID)
		if err != nil {
			m.writeError(w, r, "member", err)
			return
		}

		m.metrics.GroupDecision("member", "allowed")
		ctx := contextkeys.WithGroup(r.Context(), group)
		ctx = contextkeys.WithGroupAuthorization(ctx, authz)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLeader must run after BelongsToGroup. It passes leaders and the group owner.
func (m *Middleware) RequireLeader(next http.Handler) http.Handler {
	return m.RequireAction(ActionManage, "leader")(next)
}

// RequireAction must run after BelongsToGroup and checks the action against the decision table
func (m *Middleware) RequireAction(action Action, gate string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz, ok := AuthorizationFrom(r.Context())
			if !ok {
				m.logger.WithField("path", r.URL.Path).Error("group authorization missing from request")
				httputil.WriteInternalError(w)
				return
			}

			if !authz.Allows(action) {
				m.metrics.GroupDecision(gate, "forbidden")
				httputil.WriteForbidden(w, "you are not the leader of this group")
				return
			}

			m.metrics.GroupDecision(gate, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) writeError(w http.ResponseWriter, r *http.Request, gate string, err error) {
	switch {
	case errors.Is(err, ErrResourceNotFound):
		m.metrics.GroupDecision(gate, "not_found")
		httputil.WriteNotFoundError(w, "resource not found")
	case errors.Is(err, ErrGroupNotFound):
		m.metrics.GroupDecision(gate, "not_found")
		httputil.WriteNotFoundError(w, "group not found")
	case errors.Is(err, ErrForbidden):
		m.metrics.GroupDecision(gate, "forbidden")
		httputil.WriteForbidden(w, "you are not a member of this group")
	default:
		m.metrics.GroupDecision(gate, "error")
		m.logger.WithError(err).WithField("path", r.URL.Path).Error("group authorization failed")
		httputil.WriteInternalError(w)
	}
}

// AuthorizationFrom returns the caller's group authorization attached by BelongsToGroup
func AuthorizationFrom(ctx context.Context) (*Authorization, bool) {
	authz, ok := ctx.Value(contextkeys.GroupAuthorizationKey).(*Authorization)
	return authz, ok && authz != nil
}

// GroupFrom returns the group attached by BelongsToGroup
func GroupFrom(ctx context.Context) (*Group, bool) {
	group, ok := ctx.Value(contextkeys.GroupKey).(*Group)
	return group, ok && group != nil
}
