package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/chat", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSExplicitOriginGetsCredentials(t *testing.T) {
	rec := serveCORS([]string{"https://companion.example"}, http.MethodGet, "https://companion.example")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "https://companion.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Companion-Session-ID")
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	rec := serveCORS([]string{"*"}, http.MethodGet, "https://elsewhere.example")

	assert.Equal(t, "https://elsewhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	rec := serveCORS([]string{"https://companion.example"}, http.MethodGet, "https://evil.example")

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	rec := serveCORS([]string{"*"}, http.MethodOptions, "https://companion.example")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, AllowedOrigins("", false))
	assert.Equal(t, []string{"*"}, AllowedOrigins("http://localhost:5173", true))
	assert.Equal(t, []string{"https://companion.example"}, AllowedOrigins("https://companion.example/", false))
}
