package groups

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/middleware"
	"github.com/sirupsen/logrus"
)

// Emitter delivers live events to an identity's connections
type Emitter interface {
	Emit(identityID int64, event string, payload any)
}

// Handlers serves the translator group routes
type Handlers struct {
	store   Store
	mw      *Middleware
	emitter Emitter
	logger  logrus.FieldLogger
}

// NewHandlers creates group handlers. emitter may be nil.
func NewHandlers(store Store, mw *Middleware, emitter Emitter, logger logrus.FieldLogger) *Handlers {
	return &Handlers{
		store:   store,
		mw:      mw,
		emitter: emitter,
		logger:  logger,
	}
}

// RegisterRoutes registers group routes. The router must already run middleware.RequireAuth.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	member := httputil.Chain(h.mw.ScopeFromPath("groupId"), h.mw.BelongsToGroup)
	leader := httputil.Chain(h.mw.ScopeFromPath("groupId"), h.mw.BelongsToGroup, h.mw.RequireLeader)

	router.Handle("/groups/{groupId}/members", member(http.HandlerFunc(h.listMembers))).Methods("GET")
	router.Handle("/groups/{groupId}/members", leader(http.HandlerFunc(h.addMember))).Methods("POST")
	router.Handle("/groups/{groupId}/members/{userId}", leader(http.HandlerFunc(h.removeMember))).Methods("DELETE")
	router.Handle("/groups/{groupId}/leader", leader(http.HandlerFunc(h.transferLeadership))).Methods("PUT")

	comicScope := httputil.Chain(h.mw.ScopeFromComic("comicId"), h.mw.BelongsToGroup)
	chapterScope := httputil.Chain(h.mw.ScopeFromChapter("chapterId"), h.mw.BelongsToGroup)

	router.Handle("/translator/comics/{comicId}/scope", comicScope(http.HandlerFunc(h.scope))).Methods("GET")
	router.Handle("/translator/chapters/{chapterId}/scope", chapterScope(http.HandlerFunc(h.scope))).Methods("GET")
}

// listMembers handles GET /groups/{groupId}/members
func (h *Handlers) listMembers(w http.ResponseWriter, r *http.Request) {
	group, _ := GroupFrom(r.Context())

	members, err := h.store.ListMembers(r.Context(), group.ID)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", group.ID).Error("failed to list members")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"groupId": group.ID,
		"members": members,
	})
}

// addMember handles POST /groups/{groupId}/members
func (h *Handlers) addMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"userId"`
		Role   Role  `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.UserID, "userId") {
		return
	}
	if req.Role == "" {
		req.Role = RoleMember
	}
	if !req.Role.IsValid() {
		httputil.WriteBadRequest(w, "role must be leader or member")
		return
	}

	group, _ := GroupFrom(r.Context())
	membership, err := h.store.AddMember(r.Context(), group.ID, req.UserID, req.Role)
	if errors.Is(err, ErrDuplicateMembership) {
		httputil.WriteConflict(w, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("group_id", group.ID).Error("failed to add member")
		httputil.WriteInternalError(w)
		return
	}

	h.emit(req.UserID, "group:joined", map[string]interface{}{
		"groupId":   group.ID,
		"groupName": group.Name,
		"role":      membership.Role,
	})
	httputil.WriteCreated(w, membership)
}

// removeMember handles DELETE /groups/{groupId}/members/{userId}
func (h *Handlers) removeMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	group, _ := GroupFrom(r.Context())
	if userID == group.OwnerID {
		httputil.WriteBadRequest(w, "the group owner cannot be removed")
		return
	}

	err := h.store.RemoveMember(r.Context(), group.ID, userID)
	if errors.Is(err, ErrMembershipNotFound) {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("group_id", group.ID).Error("failed to remove member")
		httputil.WriteInternalError(w)
		return
	}

	h.emit(userID, "group:removed", map[string]interface{}{"groupId": group.ID})
	httputil.WriteNoContent(w)
}

// transferLeadership handles PUT /groups/{groupId}/leader
func (h *Handlers) transferLeadership(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"userId"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.UserID, "userId") {
		return
	}

	group, _ := GroupFrom(r.Context())
	err := h.store.TransferLeadership(r.Context(), group.ID, req.UserID)
	if errors.Is(err, ErrMembershipNotFound) {
		httputil.WriteNotFoundError(w, "new leader must already be a member")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("group_id", group.ID).Error("failed to transfer leadership")
		httputil.WriteInternalError(w)
		return
	}

	h.emit(req.UserID, "group:leader", map[string]interface{}{"groupId": group.ID})
	httputil.WriteMessage(w, "leadership transferred")
}

// scope handles the translator scope lookups and reports the caller's standing
func (h *Handlers) scope(w http.ResponseWriter, r *http.Request) {
	group, _ := GroupFrom(r.Context())
	authz, _ := AuthorizationFrom(r.Context())
	identity, _ := middleware.IdentityFrom(r.Context())

	httputil.WriteSuccess(w, map[string]interface{}{
		"groupId":       group.ID,
		"groupName":     group.Name,
		"userId":        identity.ID,
		"isOwner":       authz.IsOwner,
		"role":          authz.Role,
		"canContribute": authz.Allows(ActionContribute),
		"canManage":     authz.Allows(ActionManage),
	})
}

func (h *Handlers) emit(userID int64, event string, payload any) {
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(userID, event, payload)
}
