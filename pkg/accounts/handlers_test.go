package accounts

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/panelhub/pkg/middleware"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, limit func(http.Handler) http.Handler) (*mux.Router, *fixture) {
	t.Helper()
	f := newFixture(t)
	logger, _ := test.NewNullLogger()
	router := mux.NewRouter()
	NewHandlers(f.service, logger).RegisterRoutes(router, limit)
	return router, f
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{"username":"reader_one","email":"reader@example.com","password":"correct horse","confirmPassword":"correct horse"}`

func TestHandlers_RegisterAndVerify(t *testing.T) {
	router, f := newTestRouter(t, nil)

	rec := post(router, "/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"reader@example.com"`)
	assert.NotContains(t, rec.Body.String(), "correct horse")

	rec = post(router, "/auth/register", registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"email already registered"}`, rec.Body.String())

	rec = post(router, "/auth/verify-otp", `{"email":"reader@example.com","otp":"000000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"invalid or expired code"}`, rec.Body.String())

	code := f.mailer.last("reader@example.com")
	rec = post(router, "/auth/verify-otp", `{"email":"reader@example.com","otp":"`+code+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"account verified"}`, rec.Body.String())

	rec = post(router, "/auth/resend-otp", `{"email":"reader@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"account already verified"}`, rec.Body.String())
}

func TestHandlers_Errors(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"invalid json", "/auth/register", `{`, http.StatusBadRequest},
		{"invalid input", "/auth/register", `{"username":"x","email":"bad"}`, http.StatusBadRequest},
		{"resend unknown", "/auth/resend-otp", `{"email":"nobody@example.com"}`, http.StatusNotFound},
		{"resend missing email", "/auth/resend-otp", `{}`, http.StatusBadRequest},
		{"verify missing code", "/auth/verify-otp", `{"email":"reader@example.com"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(router, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandlers_CodeRateLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute})
	router, _ := newTestRouter(t, middleware.RateLimit(limiter, "otp", logger))

	for i := 0; i < 2; i++ {
		rec := post(router, "/auth/verify-otp", `{"email":"reader@example.com","otp":"000000"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := post(router, "/auth/verify-otp", `{"email":"reader@example.com","otp":"000000"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
