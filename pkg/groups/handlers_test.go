package groups

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/panelhub/pkg/auth"
	"github.com/platinummonkey/panelhub/pkg/contextkeys"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asIdentity stands in for middleware.RequireAuth by attaching the identity in X-Test-User
func asIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-Test-User"); raw != "" {
			id, _ := strconv.ParseInt(raw, 10, 64)
			r = r.WithContext(contextkeys.WithIdentity(r.Context(), &auth.Identity{ID: id, Role: auth.RoleUser}))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestRouter(t *testing.T, store Store) (*mux.Router, *recordingEmitter) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	emitter := &recordingEmitter{}
	router := mux.NewRouter()
	router.Use(asIdentity)
	NewHandlers(store, NewMiddleware(store, logger, nil), emitter, logger).RegisterRoutes(router)
	return router, emitter
}

func doRequest(router http.Handler, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatInt(userID, 10))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterRoutes(t *testing.T) {
	router, _ := newTestRouter(t, newMemoryStore())

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/groups/1/members"},
		{"POST", "/groups/1/members"},
		{"DELETE", "/groups/1/members/2"},
		{"PUT", "/groups/1/leader"},
		{"GET", "/translator/comics/1/scope"},
		{"GET", "/translator/chapters/1/scope"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var match mux.RouteMatch
			assert.True(t, router.Match(httptest.NewRequest(tt.method, tt.path, nil), &match))
		})
	}
}

func TestScopeEndpoints(t *testing.T) {
	store := seedStore()
	store.chapters[51] = &Chapter{ID: 51, ComicID: 6}
	router, _ := newTestRouter(t, store)

	tests := []struct {
		name       string
		path       string
		userID     int64
		wantStatus int
	}{
		{"member via comic", "/translator/comics/5/scope", 20, http.StatusOK},
		{"member via chapter", "/translator/chapters/50/scope", 20, http.StatusOK},
		{"owner via chapter", "/translator/chapters/50/scope", 100, http.StatusOK},
		{"outsider", "/translator/chapters/50/scope", 999, http.StatusForbidden},
		{"missing comic", "/translator/comics/404/scope", 20, http.StatusNotFound},
		{"missing chapter", "/translator/chapters/404/scope", 20, http.StatusNotFound},
		{"orphaned chapter", "/translator/chapters/51/scope", 20, http.StatusNotFound},
		{"invalid id", "/translator/comics/abc/scope", 20, http.StatusBadRequest},
		{"anonymous", "/translator/comics/5/scope", 0, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, tt.path, tt.userID, nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, float64(1), body["groupId"])
			} else {
				assert.NotEmpty(t, body["message"])
			}
		})
	}

	t.Run("owner standing", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/translator/comics/5/scope", 100, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["isOwner"])
		assert.Nil(t, body["role"])
		assert.Equal(t, true, body["canManage"])
	})
}

func TestLeaderOnlyRoutes(t *testing.T) {
	t.Run("owner without membership passes", func(t *testing.T) {
		store := seedStore()
		router, emitter := newTestRouter(t, store)

		rec := doRequest(router, http.MethodPost, "/groups/1/members", 100, map[string]interface{}{"userId": 30})
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, RoleMember, store.role(1, 30))

		require.Len(t, emitter.events, 1)
		assert.Equal(t, int64(30), emitter.events[0].identityID)
		assert.Equal(t, "group:joined", emitter.events[0].event)
	})

	t.Run("leader passes", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPost, "/groups/1/members", 10, map[string]interface{}{"userId": 30, "role": "member"})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("member fails", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPost, "/groups/1/members", 20, map[string]interface{}{"userId": 30})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"message":"you are not the leader of this group"}`, rec.Body.String())
	})

	t.Run("outsider fails at membership", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPost, "/groups/1/members", 999, map[string]interface{}{"userId": 30})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"message":"you are not a member of this group"}`, rec.Body.String())
	})

	t.Run("missing group", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPost, "/groups/2/members", 10, map[string]interface{}{"userId": 30})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store failure is a generic 500", func(t *testing.T) {
		store := seedStore()
		store.err = errors.New("pq: connection refused")
		router, _ := newTestRouter(t, store)

		rec := doRequest(router, http.MethodGet, "/groups/1/members", 10, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestMemberHandlers(t *testing.T) {
	t.Run("list members", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodGet, "/groups/1/members", 20, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			GroupID int64     `json:"groupId"`
			Members []*Member `json:"members"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, int64(1), body.GroupID)
		assert.Len(t, body.Members, 2)
	})

	t.Run("duplicate member", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPost, "/groups/1/members", 10, map[string]interface{}{"userId": 20})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPost, "/groups/1/members", 10, map[string]interface{}{"userId": 30, "role": "owner"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing user id", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPost, "/groups/1/members", 10, map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("remove member", func(t *testing.T) {
		store := seedStore()
		router, emitter := newTestRouter(t, store)
		rec := doRequest(router, http.MethodDelete, "/groups/1/members/20", 10, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, Role(""), store.role(1, 20))
		require.Len(t, emitter.events, 1)
		assert.Equal(t, "group:removed", emitter.events[0].event)
	})

	t.Run("remove unknown member", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodDelete, "/groups/1/members/77", 10, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodDelete, "/groups/1/members/100", 10, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("transfer leadership", func(t *testing.T) {
		store := seedStore()
		router, _ := newTestRouter(t, store)
		rec := doRequest(router, http.MethodPut, "/groups/1/leader", 10, map[string]interface{}{"userId": 20})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, RoleLeader, store.role(1, 20))
		assert.Equal(t, RoleMember, store.role(1, 10))
	})

	t.Run("transfer to non member", func(t *testing.T) {
		router, _ := newTestRouter(t, seedStore())
		rec := doRequest(router, http.MethodPut, "/groups/1/leader", 10, map[string]interface{}{"userId": 77})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
