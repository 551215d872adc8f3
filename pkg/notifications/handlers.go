package notifications

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/middleware"
	"github.com/sirupsen/logrus"
)

// Handlers serves the notification routes
type Handlers struct {
	service *Service
	logger  logrus.FieldLogger
}

// NewHandlers creates notification handlers
func NewHandlers(service *Service, logger logrus.FieldLogger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// RegisterRoutes registers the reader routes. The router must already run middleware.RequireAuth.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notifications", h.list).Methods("GET")
	router.HandleFunc("/notifications/read-all", h.markAllRead).Methods("PUT")
	router.HandleFunc("/notifications/{notificationId}/read", h.markRead).Methods("PUT")
}

// RegisterAdminRoutes registers the broadcast route. The router must already
// run middleware.RequireAuth and middleware.RequireRole(auth.RoleAdmin).
func (h *Handlers) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/admin/notifications", h.broadcast).Methods("POST")
}

// list handles GET /notifications
func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var opts ListOptions
	for key, dest := range map[string]*int{"sinceDays": &opts.SinceDays, "limit": &opts.Limit, "page": &opts.Page} {
		val, err := httputil.ParseQueryInt(r, key, 0)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		*dest = val
	}

	page, err := h.service.List(r.Context(), identity.ID, opts)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", identity.ID).Error("failed to list notifications")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, page)
}

// markRead handles PUT /notifications/{notificationId}/read
func (h *Handlers) markRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	notificationID, ok := httputil.ParsePathInt64OrError(w, r, "notificationId")
	if !ok {
		return
	}

	err := h.service.MarkRead(r.Context(), identity.ID, notificationID)
	if errors.Is(err, ErrNotificationNotFound) {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("notification_id", notificationID).Error("failed to mark notification read")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteMessage(w, "notification marked as read")
}

// markAllRead handles PUT /notifications/read-all
func (h *Handlers) markAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	if _, err := h.service.MarkAllRead(r.Context(), identity.ID); err != nil {
		h.logger.WithError(err).WithField("user_id", identity.ID).Error("failed to mark notifications read")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteMessage(w, "all notifications marked as read")
}

// broadcastRequest is the body of POST /admin/notifications. Either All or
// UserIDs selects the audience.
type broadcastRequest struct {
	UserIDs  []int64  `json:"userIds"`
	All      bool     `json:"all"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// broadcast handles POST /admin/notifications
func (h *Handlers) broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.All && len(req.UserIDs) > 0 {
		httputil.WriteBadRequest(w, "userIds and all are mutually exclusive")
		return
	}

	template := Notification{Category: req.Category, Title: req.Title, Message: req.Message}
	var (
		sent int
		err  error
	)
	if req.All {
		sent, err = h.service.BroadcastAll(r.Context(), template)
	} else {
		sent, err = h.service.Broadcast(r.Context(), req.UserIDs, template)
	}

	switch {
	case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrMissingContent), errors.Is(err, ErrNoRecipients):
		httputil.WriteBadRequest(w, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).WithField("sent", sent).Error("notification broadcast failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteCreated(w, map[string]int{"sent": sent})
}
