package accounts

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/sirupsen/logrus"
)

// Handlers serves the registration routes
type Handlers struct {
	service *Service
	logger  logrus.FieldLogger
}

// NewHandlers creates account handlers
func NewHandlers(service *Service, logger logrus.FieldLogger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// RegisterRoutes registers the public registration routes. codeLimit, when
// not nil, wraps the routes that send or check codes.
func (h *Handlers) RegisterRoutes(router *mux.Router, codeLimit func(http.Handler) http.Handler) {
	limited := func(f http.HandlerFunc) http.Handler {
		if codeLimit == nil {
			return f
		}
		return codeLimit(f)
	}

	router.Handle("/auth/register", limited(h.register)).Methods("POST")
	router.Handle("/auth/resend-otp", limited(h.resend)).Methods("POST")
	router.Handle("/auth/verify-otp", limited(h.verify)).Methods("POST")
}

// register handles POST /auth/register
func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	account, err := h.service.Register(r.Context(), req)
	if err != nil && account == nil {
		h.writeError(w, err)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("user_id", account.ID).Error("failed to deliver verification code")
	}

	httputil.WriteCreated(w, map[string]interface{}{
		"message": "registration successful, verify the code sent to your email within 5 minutes",
		"account": account,
	})
}

// resend handles POST /auth/resend-otp
func (h *Handlers) resend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	if err := h.service.ResendCode(r.Context(), req.Email); err != nil {
		h.writeError(w, err)
		return
	}

	httputil.WriteMessage(w, "a new code has been sent to your email")
}

// verify handles POST /auth/verify-otp
func (h *Handlers) verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"otp"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") || !httputil.RequireNonEmpty(w, req.Code, "otp") {
		return
	}

	if err := h.service.Verify(r.Context(), req.Email, req.Code); err != nil {
		h.writeError(w, err)
		return
	}

	httputil.WriteMessage(w, "account verified")
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCode), errors.Is(err, ErrAlreadyVerified):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, ErrUserNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		h.logger.WithError(err).Error("account request failed")
		httputil.WriteInternalError(w)
	}
}
