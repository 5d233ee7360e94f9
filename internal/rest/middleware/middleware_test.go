package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitclub/billing/internal/auth"
	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Configuration {
	cfg := config.GetDefaultConfig()
	cfg.Auth.Secret = "test-secret"
	cfg.Cron.Secret = "cron-secret"
	return cfg
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ierr.ErrorResponse {
	t.Helper()
	var resp ierr.ErrorResponse
	require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNoopLogger()))
	r.GET("/conflict", func(c *gin.Context) {
		c.Error(ierr.NewError("dup").WithHint("Already there").Mark(ierr.ErrAlreadyExists))
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Error(ierr.NewError("pq: connection refused").Mark(ierr.ErrDatabase))
	})
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeError(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "Already there", resp.Error.Display)
	assert.Equal(t, ierr.ErrCodeAlreadyExists, resp.Error.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, types.GetRequestID(c.Request.Context()))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(types.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(types.HeaderRequestID, "req_given")
	w = serve(r, req)
	assert.Equal(t, "req_given", w.Body.String())
}

func TestAuthenticateMiddleware(t *testing.T) {
	cfg := testConfig()
	r := gin.New()
	r.Use(AuthenticateMiddleware(auth.NewProvider(cfg), logger.NewNoopLogger()))
	r.GET("/me", func(c *gin.Context) {
		ctx := c.Request.Context()
		if types.GetJWT(ctx) == "" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, types.GetUserID(ctx))
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user_1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.Auth.Secret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, "user_1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(types.HeaderAuthorization, tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestCronSecretMiddleware(t *testing.T) {
	handler := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	r := gin.New()
	r.Use(CronSecretMiddleware(testConfig(), logger.NewNoopLogger()))
	r.POST("/sweep", handler)

	req := httptest.NewRequest(http.MethodPost, "/sweep", nil)
	req.Header.Set(types.HeaderCronSecret, "cron-secret")
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/sweep", nil)
	req.Header.Set(types.HeaderCronSecret, "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	unset := testConfig()
	unset.Cron.Secret = ""
	closed := gin.New()
	closed.Use(CronSecretMiddleware(unset, logger.NewNoopLogger()))
	closed.POST("/sweep", handler)

	req = httptest.NewRequest(http.MethodPost, "/sweep", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(closed, req).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Billing.CheckoutRateLimit = 1
	cfg.Billing.CheckoutRateBurst = 2

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(types.SetUserID(c.Request.Context(), c.GetHeader("X-User")))
		c.Next()
	})
	r.Use(RateLimitMiddleware(cfg))
	r.POST("/checkout", func(c *gin.Context) { c.Status(http.StatusCreated) })

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-User", user)
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusCreated, call("user_1"))
	assert.Equal(t, http.StatusCreated, call("user_1"))
	assert.Equal(t, http.StatusTooManyRequests, call("user_1"))

	// limits are per member
	assert.Equal(t, http.StatusCreated, call("user_2"))
}
