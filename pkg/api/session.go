package api

import (
	"net/http"

	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/middleware"
)

// sessionResponse describes the caller as the optional gate sees them
type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        int64  `json:"userId,omitempty"`
	Role          string `json:"role,omitempty"`
}

// session handles GET /auth/session
func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteSuccess(w, sessionResponse{})
		return
	}

	httputil.WriteSuccess(w, sessionResponse{
		Authenticated: true,
		UserID:        identity.ID,
		Role:          string(identity.Role),
	})
}
