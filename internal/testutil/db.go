package testutil

import (
	"context"
	"sync"

	"github.com/fitclub/billing/internal/postgres"
	"github.com/fitclub/billing/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient runs transactions inline and records the advisory locks taken
type MockPostgresClient struct {
	mu    sync.Mutex
	locks []string
	// TxErr, when set, is returned by WithTx without running fn
	TxErr error
}

func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.TxErr != nil {
		return c.TxErr
	}
	return fn(ctx)
}

func (c *MockPostgresClient) LockKey(ctx context.Context, req types.LockRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locks = append(c.locks, req.Key)
	return nil
}

// Locks returns the keys locked so far
func (c *MockPostgresClient) Locks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.locks...)
}
