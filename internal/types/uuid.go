package types

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_PLAN       = "plan"
	UUID_PREFIX_MEMBERSHIP = "mem"
	UUID_PREFIX_PAYMENT    = "pay"
	UUID_PREFIX_USER       = "user"
	UUID_PREFIX_REQUEST    = "req"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier with a prefix ex: mem_01h...
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
