package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWrapWithCorrelationID_PropagatesIncomingHeader(t *testing.T) {
	var seen string
	handler := WrapWithCorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Correlation-ID"))
}

func TestWrapWithCorrelationID_GeneratesWhenMissing(t *testing.T) {
	handler := WrapWithCorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, rec.Header().Get("X-Correlation-ID"), 36)
}

func TestWithCORS_OnlyAllowedOrigins(t *testing.T) {
	opts := DefaultCORSOptions([]string{"https://portal.example.org"}, true)
	pattern, handler := WithCORS("GET /x", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, opts)
	assert.Equal(t, "GET /x", pattern)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://portal.example.org")
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, "https://portal.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(DefaultCORSOptions(nil, false)))
	r.POST("/portal/consent", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/portal/consent", nil)
	req.Header.Set("Origin", "https://any.example.org")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://any.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}
