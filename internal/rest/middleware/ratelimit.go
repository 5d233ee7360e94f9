package middleware

import (
	"sync"
	"time"

	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware throttles checkout-opening routes per member (per client IP when anonymous).
// Idle limiters are dropped after ten minutes.
func RateLimitMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	limit := rate.Limit(cfg.Billing.CheckoutRateLimit / 60)
	burst := max(1, cfg.Billing.CheckoutRateBurst)
	if cfg.Billing.CheckoutRateLimit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := cache.New(10*time.Minute, 20*time.Minute)
	var mu sync.Mutex

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Get(key); ok {
			limiters.SetDefault(key, l)
			return l.(*rate.Limiter)
		}
		l := rate.NewLimiter(limit, burst)
		limiters.SetDefault(key, l)
		return l
	}

	return func(c *gin.Context) {
		key := types.GetUserID(c.Request.Context())
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		if !get(key).Allow() {
			c.Header("Retry-After", "60")
			abort(c, ierr.NewError("rate limit exceeded").
				WithHint("Too many checkout attempts, please try again in a minute").
				Mark(ierr.ErrRateLimited))
			return
		}
		c.Next()
	}
}
