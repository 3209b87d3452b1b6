package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestTracing(), APIKeyAuth(cfg, nil))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKeys: []string{"secret-key-0001"}}

	tests := []struct {
		name    string
		cfg     AuthConfig
		headers map[string]string
		code    int
	}{
		{"未启用认证放行", AuthConfig{}, nil, http.StatusOK},
		{"缺少Key", cfg, nil, http.StatusUnauthorized},
		{"无效Key", cfg, map[string]string{"X-API-Key": "wrong"}, http.StatusForbidden},
		{"X-API-Key", cfg, map[string]string{"X-API-Key": "secret-key-0001"}, http.StatusOK},
		{"Bearer", cfg, map[string]string{"Authorization": "Bearer secret-key-0001"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(tt.cfg)
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			require.NoError(t, err)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestRequestTracing(t *testing.T) {
	r := newEngine(AuthConfig{})

	t.Run("沿用调用方ID", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Body.String())
		assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("缺省时生成", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Len(t, w.Body.String(), 36)
		assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))
	})
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd****6789", maskAPIKey("abcdef0123456789"))
}
