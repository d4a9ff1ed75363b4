package store

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/loykin/sqlapply/internal/constants"
	"github.com/loykin/sqlapply/internal/util"
)

var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrMissingParams = errors.New("missing connection parameters")
)

// Params identifies the target database. For sqlite, Database is the file
// path and the network fields are ignored.
type Params struct {
	Driver   string            `mapstructure:"driver" yaml:"driver"`
	Host     string            `mapstructure:"host" yaml:"host"`
	Port     int               `mapstructure:"port" yaml:"port"`
	User     string            `mapstructure:"user" yaml:"user"`
	Password string            `mapstructure:"password" yaml:"password"`
	Database string            `mapstructure:"database" yaml:"database"`
	Options  map[string]string `mapstructure:"options" yaml:"options"`
}

// DriverName returns the normalized driver, defaulting to mysql.
// "postgresql" and "pg" are accepted for postgres, "sqlite3" for sqlite.
func (p Params) DriverName() string {
	switch d := util.TrimAndLower(p.Driver); d {
	case "":
		return constants.DefaultDriver
	case "postgresql", "pg":
		return constants.DriverPostgres
	case "sqlite3":
		return constants.DriverSQLite
	case "mariadb":
		return constants.DriverMySQL
	default:
		return d
	}
}

// Validate reports an unknown driver or every missing required field.
// An empty password is allowed.
func (p Params) Validate() error {
	driver := p.DriverName()
	if _, err := lookupDialect(driver); err != nil {
		return err
	}
	var missing []string
	if driver == constants.DriverSQLite {
		missing = util.MissingFields("database", p.Database)
	} else {
		missing = util.MissingFields("host", p.Host, "user", p.User, "database", p.Database)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParams, strings.Join(missing, ", "))
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	return nil
}

// String renders the target without the password, e.g. mysql://app@db:3306/clinic.
func (p Params) String() string {
	driver := p.DriverName()
	if driver == constants.DriverSQLite {
		return driver + ":" + p.Database
	}
	port := p.Port
	if port == 0 {
		port = defaultPort(driver)
	}
	var b strings.Builder
	b.WriteString(driver)
	b.WriteString("://")
	if p.User != "" {
		b.WriteString(p.User)
		b.WriteByte('@')
	}
	b.WriteString(net.JoinHostPort(p.Host, strconv.Itoa(port)))
	b.WriteByte('/')
	b.WriteString(p.Database)
	return b.String()
}

// LogValue keeps the password out of structured logs.
func (p Params) LogValue() slog.Value {
	return slog.StringValue(p.String())
}

func defaultPort(driver string) int {
	switch driver {
	case constants.DriverPostgres:
		return constants.DefaultPostgresPort
	case constants.DriverMySQL:
		return constants.DefaultMySQLPort
	default:
		return 0
	}
}
