// Package sqlapply applies a SQL migration file to a database in one pass.
package sqlapply

import (
	"context"
	"io/fs"

	"github.com/loykin/sqlapply/internal/common"
	"github.com/loykin/sqlapply/internal/loader"
	"github.com/loykin/sqlapply/internal/retry"
	"github.com/loykin/sqlapply/internal/runner"
	"github.com/loykin/sqlapply/internal/store"
)

// Re-export commonly used types for public API

// Params identifies the target database.
type Params = store.Params

// Result summarises a committed run.
type Result = runner.Result

// StatementError reports the statement that stopped a run.
type StatementError = runner.StatementError

var (
	ErrUnknownDriver   = store.ErrUnknownDriver
	ErrMissingParams   = store.ErrMissingParams
	ErrInvalidEncoding = loader.ErrInvalidEncoding
)

// Parse splits migration text into statements.
func Parse(text string) []string { return loader.Parse(text) }

// Load reads and parses the migration file at path.
func Load(path string) ([]string, error) { return loader.Load(path) }

// LoadFS reads and parses a migration from fsys, e.g. an embed.FS.
func LoadFS(fsys fs.FS, name string) ([]string, error) { return loader.LoadFS(fsys, name) }

// Drivers lists the supported database drivers.
func Drivers() []string { return store.Drivers() }

type applyConfig struct {
	retry *retry.Config
}

// ApplyOption configures Apply.
type ApplyOption func(*applyConfig)

// WithConnectRetries retries a failed connect up to n times with exponential
// backoff when the error looks transient. Statements are never retried.
func WithConnectRetries(n int) ApplyOption {
	return func(c *applyConfig) {
		if n > 0 {
			c.retry = retry.WithMaxRetries(n)
		}
	}
}

// Apply executes statements against the database described by p on a single
// connection and commits once. Nothing is committed if a statement fails.
func Apply(ctx context.Context, p Params, statements []string, opts ...ApplyOption) (Result, error) {
	var cfg applyConfig
	for _, o := range opts {
		o(&cfg)
	}
	d := store.Dialer{Params: p, Retry: cfg.retry}
	return runner.New(d, common.GetLogger()).Run(ctx, statements)
}

// ApplyFile loads path and applies it. The file is read before connecting.
func ApplyFile(ctx context.Context, p Params, path string, opts ...ApplyOption) (Result, error) {
	stmts, err := Load(path)
	if err != nil {
		return Result{}, err
	}
	return Apply(ctx, p, stmts, opts...)
}
