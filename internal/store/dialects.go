package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/loykin/sqlapply/internal/constants"
	"github.com/loykin/sqlapply/internal/store/mysql"
	"github.com/loykin/sqlapply/internal/store/postgresql"
	"github.com/loykin/sqlapply/internal/store/sqlite"
)

// Dialect knows how to reach one kind of database.
type Dialect interface {
	DriverName() string
	DSN(p Params) string
	Connect(ctx context.Context, dsn string) (*sql.DB, error)
}

type mysqlAdapter struct{ d *mysql.Dialect }

func (a mysqlAdapter) DriverName() string { return a.d.GetDriverName() }

func (a mysqlAdapter) DSN(p Params) string {
	c := mysql.Config{Host: p.Host, Port: p.Port, User: p.User, Password: p.Password, DBName: p.Database, Params: p.Options}
	return c.DSN()
}

func (a mysqlAdapter) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	return a.d.Connect(ctx, dsn)
}

type postgresAdapter struct{ d *postgresql.Dialect }

func (a postgresAdapter) DriverName() string { return a.d.GetDriverName() }

func (a postgresAdapter) DSN(p Params) string {
	c := postgresql.Config{Host: p.Host, Port: p.Port, User: p.User, Password: p.Password, DBName: p.Database, Params: p.Options}
	return c.DSN()
}

func (a postgresAdapter) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	return a.d.Connect(ctx, dsn)
}

type sqliteAdapter struct{ d *sqlite.Dialect }

func (a sqliteAdapter) DriverName() string { return a.d.GetDriverName() }

func (a sqliteAdapter) DSN(p Params) string {
	c := sqlite.Config{Path: p.Database, Params: p.Options}
	return c.DSN()
}

func (a sqliteAdapter) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	return a.d.Connect(ctx, dsn)
}

var dialects = map[string]Dialect{
	constants.DriverMySQL:    mysqlAdapter{d: mysql.NewDialect()},
	constants.DriverPostgres: postgresAdapter{d: postgresql.NewDialect()},
	constants.DriverSQLite:   sqliteAdapter{d: sqlite.NewDialect()},
}

func lookupDialect(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownDriver, name, strings.Join(Drivers(), ", "))
	}
	return d, nil
}

// Drivers lists the supported driver names.
func Drivers() []string {
	out := make([]string, 0, len(dialects))
	for name := range dialects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
