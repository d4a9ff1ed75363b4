package postgresql

import (
	"net"
	"net/url"
	"strconv"

	"github.com/loykin/sqlapply/internal/constants"
	"github.com/loykin/sqlapply/internal/util"
)

type Config struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	DBName   string            `mapstructure:"dbname"`
	SSLMode  string            `mapstructure:"sslmode"`
	Params   map[string]string `mapstructure:"params"`
}

// DSN builds a postgres:// URL accepted by pgx stdlib. User info and the
// database name are escaped but otherwise unchanged. sslmode defaults to "disable".
func (c *Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = constants.DefaultPostgresPort
	}
	q := url.Values{}
	for k, v := range c.Params {
		q.Set(k, v)
	}
	sslmode := util.TrimWithDefault(c.SSLMode, q.Get("sslmode"))
	q.Set("sslmode", util.TrimWithDefault(sslmode, constants.DefaultPostgresSSLMode))

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(util.TrimWithDefault(c.Host, "localhost"), strconv.Itoa(port)),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	return u.String()
}
