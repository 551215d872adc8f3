package quests

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/middleware"
	"github.com/sirupsen/logrus"
)

// Handlers serves the quest routes
type Handlers struct {
	service *Service
	tracker *Tracker
	logger  logrus.FieldLogger
}

// NewHandlers creates quest handlers
func NewHandlers(service *Service, tracker *Tracker, logger logrus.FieldLogger) *Handlers {
	return &Handlers{service: service, tracker: tracker, logger: logger}
}

// RegisterRoutes registers quest routes. The router must already run middleware.RequireAuth.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/quests/daily", h.daily).Methods("GET")
	router.HandleFunc("/quests/progress", h.progress).Methods("PUT")
	router.HandleFunc("/quests/checkin", h.checkin).Methods("POST")
	router.HandleFunc("/quests/{userQuestId}/claim", h.claim).Methods("POST")
}

// daily handles GET /quests/daily
func (h *Handlers) daily(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	assignments, err := h.service.Daily(r.Context(), identity.ID)
	if errors.Is(err, ErrNoTemplates) {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("user_id", identity.ID).Error("failed to load daily quests")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, assignments)
}

// progress handles PUT /quests/progress
func (h *Handlers) progress(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req struct {
		Category Category `json:"category"`
		Amount   *int     `json:"amount"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	amount := 1
	if req.Amount != nil {
		amount = *req.Amount
	}

	result, err := h.tracker.Increment(r.Context(), identity.ID, req.Category, amount)
	switch {
	case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidAmount):
		httputil.WriteBadRequest(w, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).WithField("user_id", identity.ID).Error("failed to update quest progress")
		httputil.WriteInternalError(w)
		return
	case result == nil:
		httputil.WriteNotFoundError(w, "no open quest for this category today")
		return
	}

	httputil.WriteSuccess(w, result)
}

// checkin handles POST /quests/checkin. The check-in quest is advanced in the
// background, so the response does not wait on the database.
func (h *Handlers) checkin(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	h.tracker.Track(r.Context(), identity.ID, CategoryCheckin, 1)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"message": "check-in recorded"})
}

// claim handles POST /quests/{userQuestId}/claim
func (h *Handlers) claim(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	userQuestID, ok := httputil.ParsePathInt64OrError(w, r, "userQuestId")
	if !ok {
		return
	}

	result, err := h.service.Claim(r.Context(), identity.ID, userQuestID)
	switch {
	case errors.Is(err, ErrQuestNotFound), errors.Is(err, ErrWalletNotFound):
		httputil.WriteNotFoundError(w, err.Error())
		return
	case errors.Is(err, ErrAlreadyClaimed), errors.Is(err, ErrNotCompleted):
		httputil.WriteBadRequest(w, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).WithField("user_quest_id", userQuestID).Error("failed to claim quest")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, result)
}
