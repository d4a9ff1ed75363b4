package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loykin/sqlapply/internal/constants"
	_ "modernc.org/sqlite"
)

// Dialect opens SQLite databases through modernc.org/sqlite.
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

func (s *Dialect) GetDriverName() string {
	return constants.DriverSQLite
}

// Connect opens the database and pings it. SQLite allows a single writer.
func (s *Dialect) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	db.SetMaxOpenConns(constants.MaxOpenConns)
	db.SetMaxIdleConns(constants.MaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}
