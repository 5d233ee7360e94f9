package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/fitclub/billing/internal/auth"
	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/types"
	"github.com/gin-gonic/gin"
)

// AuthenticateMiddleware verifies the bearer token and puts the member id in the request context
func AuthenticateMiddleware(provider auth.Provider, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(types.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			abort(c, ierr.NewError("missing bearer token").
				WithHint("Authorization header with a bearer token is required").
				Mark(ierr.ErrUnauthorized))
			return
		}

		claims, err := provider.ValidateToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			log.WithContext(c.Request.Context()).Debugw("rejected token", "error", err)
			abort(c, err)
			return
		}

		ctx := types.SetUserID(c.Request.Context(), claims.UserID)
		ctx = types.SetJWT(ctx, token)
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

// CronSecretMiddleware guards the sweep routes with the shared X-Cron-Secret.
// With no secret configured every call is rejected.
func CronSecretMiddleware(cfg *config.Configuration, log *logger.Logger) gin.HandlerFunc {
	secret := cfg.Cron.Secret
	if secret == "" {
		log.Warnw("cron secret is not configured, cron routes will reject every call")
	}

	return func(c *gin.Context) {
		given := c.GetHeader(types.HeaderCronSecret)
		if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			abort(c, ierr.NewError("invalid cron secret").
				WithHint("A valid cron secret is required").
				Mark(ierr.ErrUnauthorized))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
}
