// Package store connects to the database a migration is applied to.
//
// Open pins a single connection and begins a transaction on it, so statements
// executed through the returned Conn become visible only after Commit. Engines
// that commit DDL implicitly (MySQL) keep their own semantics.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/loykin/sqlapply/internal/common"
	"github.com/loykin/sqlapply/internal/retry"
	"github.com/loykin/sqlapply/internal/runner"
)

var (
	ErrConnClosed   = errors.New("connection is closed")
	ErrCursorClosed = errors.New("cursor is closed")
)

// Conn implements runner.Conn over database/sql.
type Conn struct {
	db     *sql.DB
	conn   *sql.Conn
	tx     *sql.Tx
	driver string
	logger *common.Logger

	mu        sync.Mutex
	committed bool
	closed    bool
}

// Open validates p, connects with the matching dialect and begins the
// transaction statements will run in.
func Open(ctx context.Context, p Params) (*Conn, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d, err := lookupDialect(p.DriverName())
	if err != nil {
		return nil, err
	}
	logger := common.GetLogger().WithComponent("store").WithDriver(d.DriverName())
	logger.Debug("connecting", "target", p)

	db, err := d.Connect(ctx, d.DSN(p))
	if err != nil {
		return nil, err
	}
	c, err := newConn(ctx, db, d.DriverName(), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established", "target", p)
	return c, nil
}

func newConn(ctx context.Context, db *sql.DB, driver string, logger *common.Logger) (*Conn, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquire %s connection: %w", driver, err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("begin %s transaction: %w", driver, err)
	}
	return &Conn{db: db, conn: conn, tx: tx, driver: driver, logger: logger}, nil
}

// Driver returns the dialect name the connection was opened with.
func (c *Conn) Driver() string { return c.driver }

// Cursor returns a handle executing on the connection's transaction.
func (c *Conn) Cursor(_ context.Context) (runner.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnClosed
	}
	return &cursor{tx: c.tx}, nil
}

// Commit commits the transaction.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("commit %s transaction: %w", c.driver, err)
	}
	c.committed = true
	return nil
}

// Close rolls back uncommitted work and releases the connection and its
// pool. Calling Close again is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if !c.committed {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("rollback: %w", err))
		} else if err == nil {
			c.logger.Warn("transaction rolled back")
		}
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type cursor struct {
	tx     *sql.Tx
	mu     sync.Mutex
	closed bool
}

func (c *cursor) Exec(ctx context.Context, statement string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCursorClosed
	}
	_, err := c.tx.ExecContext(ctx, statement)
	return err
}

// Close marks the cursor unusable. The transaction stays owned by Conn.
func (c *cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Dialer opens a Conn for Params. It implements runner.Dialer.
// A nil Retry connects once.
type Dialer struct {
	Params Params
	Retry  *retry.Config
}

func (d Dialer) Dial(ctx context.Context) (runner.Conn, error) {
	c, err := retry.Do(ctx, d.Retry, func(ctx context.Context) (*Conn, error) {
		return Open(ctx, d.Params)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
