package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/panelhub/pkg/accounts"
	"github.com/platinummonkey/panelhub/pkg/auth"
	"github.com/platinummonkey/panelhub/pkg/groups"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/middleware"
	"github.com/platinummonkey/panelhub/pkg/notifications"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/platinummonkey/panelhub/pkg/quests"
	"github.com/sirupsen/logrus"
)

// RealtimePath is where the realtime gateway accepts handshakes
const RealtimePath = "/ws"

// Dependencies holds everything the server mounts. Feature handlers left nil
// are not registered.
type Dependencies struct {
	Resolver middleware.IdentityResolver

	Accounts      *accounts.Handlers
	Groups        *groups.Handlers
	Quests        *quests.Handlers
	Notifications *notifications.Handlers
	Realtime      http.Handler

	// APILimiter applies to every route; CodeLimiter only to the routes that
	// send or check verification codes.
	APILimiter  middleware.Limiter
	CodeLimiter middleware.Limiter

	AllowedOrigins []string
	MaxBodyBytes   int64

	Logger    logrus.FieldLogger
	Metrics   *observability.Metrics
	Telemetry *observability.Telemetry
}

// Server is the panelhub HTTP handler
type Server struct {
	router  *mux.Router
	handler http.Handler
	deps    Dependencies
}

// NewServer creates a server with all routes and middleware set up
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(deps.Logger),
		httputil.LoggingMiddleware(deps.Logger),
		httputil.CORSMiddleware(deps.AllowedOrigins),
	}
	if deps.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(deps.MaxBodyBytes))
	}
	if deps.APILimiter != nil {
		chain = append(chain, middleware.RateLimit(deps.APILimiter, "api", deps.Logger))
	}
	s.handler = deps.Telemetry.Handler(httputil.Chain(chain...)(s.router), "panelhub")

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "route not found")
	})

	// Public routes
	if s.deps.Accounts != nil {
		var codeLimit func(http.Handler) http.Handler
		if s.deps.CodeLimiter != nil {
			codeLimit = middleware.RateLimit(s.deps.CodeLimiter, "otp", s.deps.Logger)
		}
		s.deps.Accounts.RegisterRoutes(s.router, codeLimit)
	}

	if s.deps.Resolver == nil {
		return
	}

	session := middleware.OptionalAuth(s.deps.Resolver, s.deps.Logger, s.deps.Metrics)
	s.router.Handle("/auth/session", session(http.HandlerFunc(s.session))).Methods("GET")

	// The gateway verifies its own handshake credential before upgrading
	if s.deps.Realtime != nil {
		s.router.Handle(RealtimePath, s.deps.Realtime).Methods("GET")
	}

	// Authenticated routes
	authed := s.router.NewRoute().Subrouter()
	authed.Use(middleware.RequireAuth(s.deps.Resolver, s.deps.Logger, s.deps.Metrics))

	if s.deps.Groups != nil {
		s.deps.Groups.RegisterRoutes(authed)
	}
	if s.deps.Quests != nil {
		s.deps.Quests.RegisterRoutes(authed)
	}
	if s.deps.Notifications != nil {
		s.deps.Notifications.RegisterRoutes(authed)
	}

	// Admin routes
	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.Use(
		middleware.RequireAuth(s.deps.Resolver, s.deps.Logger, s.deps.Metrics),
		middleware.RequireRole(auth.RoleAdmin, s.deps.Metrics),
	)

	if s.deps.Notifications != nil {
		s.deps.Notifications.RegisterAdminRoutes(admin)
	}
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the route table, mainly for tests and route listings
func (s *Server) Router() *mux.Router {
	return s.router
}
