// Package runner applies loaded statements over one connection and commits once.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/loykin/sqlapply/internal/common"
)

// Cursor executes statements on an open connection.
type Cursor interface {
	Exec(ctx context.Context, statement string) error
	io.Closer
}

// Conn is a single database connection with an implicit open transaction.
// Closing a Conn that was not committed discards its work.
type Conn interface {
	Cursor(ctx context.Context) (Cursor, error)
	Commit() error
	io.Closer
}

// Dialer opens the connection a run executes on.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context) (Conn, error)

func (f DialFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// StatementError reports the statement that stopped a run.
type StatementError struct {
	Index     int // 1-based position in the migration
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.Index, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Result summarises a committed run.
type Result struct {
	Executed int
	Duration time.Duration
}

type Runner struct {
	Dialer Dialer
	Logger *common.Logger
}

func New(d Dialer, logger *common.Logger) *Runner {
	return &Runner{Dialer: d, Logger: logger}
}

func (r *Runner) logger() *common.Logger {
	if r.Logger != nil {
		return r.Logger.WithComponent("runner")
	}
	return common.GetLogger().WithComponent("runner")
}

// Run executes statements in order on one connection and one cursor, then
// commits once. The first failing statement aborts the run without commit.
// The cursor and the connection are closed exactly once on every path.
func (r *Runner) Run(ctx context.Context, statements []string) (res Result, err error) {
	logger := r.logger()
	start := time.Now()

	conn, err := r.Dialer.Dial(ctx)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		return res, fmt.Errorf("connect: %w", err)
	}
	defer closeOnExit(logger, "connection", conn, &err)

	cur, err := conn.Cursor(ctx)
	if err != nil {
		logger.Error("failed to open cursor", "error", err)
		return res, fmt.Errorf("open cursor: %w", err)
	}
	defer closeOnExit(logger, "cursor", cur, &err)

	logger.Info("applying migration", "statements", len(statements))
	for i, stmt := range statements {
		sl := logger.WithStatement(i + 1)
		sl.Debug("executing statement", "sql", stmt)
		if execErr := cur.Exec(ctx, stmt); execErr != nil {
			sl.Error("statement failed, nothing committed", "error", execErr)
			return res, &StatementError{Index: i + 1, Statement: stmt, Err: execErr}
		}
		res.Executed++
	}

	if err := conn.Commit(); err != nil {
		logger.Error("commit failed", "error", err)
		return res, fmt.Errorf("commit: %w", err)
	}
	res.Duration = time.Since(start)
	logger.Info("migration committed", "statements", res.Executed, "elapsed", res.Duration)
	return res, nil
}

// closeOnExit closes c and reports its error through errp unless an earlier
// error is already being returned.
func closeOnExit(logger *common.Logger, what string, c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil {
		logger.Warn("close failed", "resource", what, "error", cerr)
		if *errp == nil {
			*errp = fmt.Errorf("close %s: %w", what, cerr)
		}
	}
}
