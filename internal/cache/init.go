package cache

import (
	"github.com/fitclub/billing/internal/config"
	"github.com/fitclub/billing/internal/logger"
)

// Initialize builds the cache selected by configuration
func Initialize(config *config.Configuration, log *logger.Logger) Cache {
	if !config.Cache.Enabled {
		log.Infow("cache disabled")
		return NoopCache{}
	}

	ttl := config.Cache.TTL
	if ttl <= 0 {
		ttl = ExpiryDefaultInMemory
	}

	log.Infow("initializing in-memory cache", "ttl", ttl.String())
	return NewInMemoryCache(ttl, 2*ttl)
}
