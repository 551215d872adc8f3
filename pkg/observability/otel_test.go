package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	tel, err := InitTelemetry(context.Background(), OTelConfig{Enabled: false}, NewLogger(ErrorLevel, &bytes.Buffer{}))
	require.NoError(t, err)
	assert.Nil(t, tel)

	// nil telemetry is a no-op
	assert.NoError(t, tel.Shutdown(context.Background()))

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	w := httptest.NewRecorder()
	tel.Handler(h, "test").ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
