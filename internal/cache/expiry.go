package cache

import "time"

const (
	ExpiryDefaultInMemory = 10 * time.Minute
	// ExpiryPlan is long since plans do not change once memberships reference them
	ExpiryPlan = time.Hour
)
