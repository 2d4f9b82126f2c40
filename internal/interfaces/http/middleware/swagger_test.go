package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/courselibrary/backend/internal/infrastructure/auth"
	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/courselibrary/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSwaggerRouter(cfg config.SwaggerConfig, authenticate gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/swagger/*any", SwaggerProtection(cfg, authenticate), func(c *gin.Context) {
		c.String(http.StatusOK, "swagger")
	})
	return router
}

func getSwagger(router *gin.Engine, remoteAddr, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if token != "" {
		req.Header.Set(AuthHeaderKey, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection_Disabled(t *testing.T) {
	router := newSwaggerRouter(config.SwaggerConfig{Enabled: false}, nil)

	w := getSwagger(router, "", "")

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}

func TestSwaggerProtection_IPWhitelist(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		remoteAddr string
		want       int
	}{
		{"no whitelist allows everyone", nil, "203.0.113.9:1234", http.StatusOK},
		{"exact address", []string{"127.0.0.1"}, "127.0.0.1:12345", http.StatusOK},
		{"address outside list", []string{"127.0.0.1"}, "192.168.1.100:12345", http.StatusForbidden},
		{"CIDR range", []string{"10.0.0.0/8"}, "10.20.30.40:12345", http.StatusOK},
		{"outside CIDR range", []string{"10.0.0.0/8"}, "11.0.0.1:12345", http.StatusForbidden},
		{"IPv6 range", []string{"2001:db8::/32"}, "[2001:db8::1]:12345", http.StatusOK},
		{"unparsable entries are ignored", []string{"not-an-ip", "10.0.0.0/99"}, "10.0.0.1:12345", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newSwaggerRouter(config.SwaggerConfig{Enabled: true, AllowedIPs: tt.allowed}, nil)
			assert.Equal(t, tt.want, getSwagger(router, tt.remoteAddr, "").Code)
		})
	}
}

func TestSwaggerProtection_RequireAuth(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	authenticate := JWTAuth(JWTMiddlewareConfig{JWTService: svc})
	token, _, err := svc.Generate("reader", []string{auth.ScopeRead})
	require.NoError(t, err)

	t.Run("missing token is rejected", func(t *testing.T) {
		router := newSwaggerRouter(config.SwaggerConfig{Enabled: true, RequireAuth: true}, authenticate)
		assert.Equal(t, http.StatusUnauthorized, getSwagger(router, "", "").Code)
	})

	t.Run("valid token passes", func(t *testing.T) {
		router := newSwaggerRouter(config.SwaggerConfig{Enabled: true, RequireAuth: true}, authenticate)
		w := getSwagger(router, "", token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "swagger", w.Body.String())
	})

	t.Run("whitelist is checked before the token", func(t *testing.T) {
		router := newSwaggerRouter(config.SwaggerConfig{
			Enabled:     true,
			RequireAuth: true,
			AllowedIPs:  []string{"127.0.0.1"},
		}, authenticate)
		assert.Equal(t, http.StatusForbidden, getSwagger(router, "192.168.1.1:1234", token).Code)
	})
}

func TestSwaggerProtection_RelaxesContentSecurityPolicy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Secure())
	router.GET("/swagger/*any", SwaggerProtection(config.SwaggerConfig{Enabled: true}, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := getSwagger(router, "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, swaggerCSP, w.Header().Get("Content-Security-Policy"))
}
