package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/fitclub/billing/internal/types"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// IClient is what services need from the database: transactions and advisory locks.
// Repositories work with the concrete Client.
type IClient interface {
	// WithTx runs fn in a transaction. Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockKey takes a transaction scoped advisory lock
	LockKey(ctx context.Context, req types.LockRequest) error
}

type txKey struct{}

// Client wraps the gorm handle and carries transactions through the context
type Client struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *logger.Logger
}

// NewDB opens a lib/pq connection pool, retrying with exponential backoff until the
// configured connect timeout elapses
func NewDB(cfg *config.Configuration, log *logger.Logger) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.Postgres.ConnectTimeout

	err = backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}, b, func(err error, next time.Duration) {
		log.Warnw("postgres not reachable, retrying", "error", err, "retry_in", next.String())
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	log.Infow("connected to postgres")
	return sqlDB, nil
}

// NewClient wraps an open connection pool with gorm
func NewClient(sqlDB *sql.DB, cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	level := gormlogger.Warn
	if cfg.Logging.Level == types.LogLevelDebug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.New(log.GetGormWriter(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Client{db: db, sqlDB: sqlDB, logger: log}, nil
}

// DB returns the transaction bound to ctx, or the pool when there is none
func (c *Client) DB(ctx context.Context) *gorm.DB {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return c.db.WithContext(ctx)
}

// TxFromContext returns the transaction bound to ctx, nil outside a transaction
func (c *Client) TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		c.logger.WithContext(ctx).Debugw("transaction rolled back", "error", err)
	}
	return err
}

// Close closes the underlying pool
func (c *Client) Close() error {
	return c.sqlDB.Close()
}

// Ping is used by the health check
func (c *Client) Ping(ctx context.Context) error {
	if err := c.sqlDB.PingContext(ctx); err != nil {
		return ierr.WithError(err).
			WithHint("Database is not reachable").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
