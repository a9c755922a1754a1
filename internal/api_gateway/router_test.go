package api_gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doorstep-banking/internal/api_gateway/middleware"
	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct{ err error }

func (s stubChecker) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{
		Application: config.ApplicationConfig{Env: "test", Name: "doorstep-banking"},
		Server: config.ServerConfig{
			Port:            8080,
			ShutdownTimeout: time.Second,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
		},
		Auth: config.AuthConfig{JWTSecret: "router-secret"},
	}
}

// The lifecycle services are nil: every request below is decided by middleware
func newTestServer(checks map[string]HealthChecker) *Server {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewServer(logger, testConfig(), nil, nil, nil, checks)
}

func bearer(t *testing.T, role shared.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Name: "tester",
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("router-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRouter_Health(t *testing.T) {
	t.Run("AllUp", func(t *testing.T) {
		srv := newTestServer(map[string]HealthChecker{"mongo": stubChecker{}, "postgres": stubChecker{}})

		rr := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		srv.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("ComponentDown", func(t *testing.T) {
		srv := newTestServer(map[string]HealthChecker{"mongo": stubChecker{err: errors.New("no primary")}})

		rr := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		srv.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body struct {
			Status     string            `json:"status"`
			Components map[string]string `json:"components"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "down", body.Components["mongo"])
	})
}

func TestRouter_AccessControl(t *testing.T) {
	srv := newTestServer(nil)

	cases := []struct {
		name       string
		method     string
		path       string
		role       shared.Role
		wantStatus int
	}{
		{"NoToken", http.MethodGet, "/api/v1/services", "", http.StatusUnauthorized},
		{"CustomerListAll", http.MethodGet, "/api/v1/services/all", shared.RoleCustomer, http.StatusForbidden},
		{"AgentAssigns", http.MethodPost, "/api/v1/services/svc-1/assign", shared.RoleAgent, http.StatusForbidden},
		{"CustomerRoster", http.MethodGet, "/api/v1/agents", shared.RoleCustomer, http.StatusForbidden},
		{"AgentRegistersAgent", http.MethodPost, "/api/v1/agents", shared.RoleAgent, http.StatusForbidden},
		{"AgentResync", http.MethodPost, "/api/v1/admin/resync-services", shared.RoleAgent, http.StatusForbidden},
		{"CustomerResyncRuns", http.MethodGet, "/api/v1/admin/resync-runs", shared.RoleCustomer, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(tc.method, tc.path, nil)
			if tc.role != "" {
				req.Header.Set("Authorization", bearer(t, tc.role))
			}
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.NotEmpty(t, rr.Header().Get(middleware.CorrelationIDHeader))
		})
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	srv := newTestServer(nil)
	assert.NoError(t, srv.Stop(context.Background()))
}
