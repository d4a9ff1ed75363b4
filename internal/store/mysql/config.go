package mysql

import (
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"
	"github.com/loykin/sqlapply/internal/constants"
)

type Config struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	DBName   string            `mapstructure:"dbname"`
	Params   map[string]string `mapstructure:"params"`
}

// DSN renders the config in go-sql-driver form: user:pass@tcp(host:port)/db?k=v.
// User, password and database name are passed through unchanged.
func (c *Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = constants.DefaultMySQLPort
	}
	cfg := driver.NewConfig()
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = c.DBName
	if len(c.Params) > 0 {
		cfg.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}
