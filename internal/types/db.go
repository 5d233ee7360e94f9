package types

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeMembership serializes membership creation for a single user
	LockScopeMembership LockScope = "membership"
	// LockScopeCheckout serializes checkout creation for a (user, plan) pair
	LockScopeCheckout LockScope = "checkout"
)

const defaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock to take inside a transaction.
// A nil Timeout means the default, zero or negative means fail fast.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return defaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey generates a deterministic lock key from a scope and parameters.
// Postgres hashes the key with hashtext().
func GenerateLockKey(ctx context.Context, scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNamePlans       TableName = "plans"
	TableNameMemberships TableName = "memberships"
	TableNamePayments    TableName = "payments"
	TableNameUsers       TableName = "users"
)
