package sqlite

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/loykin/sqlapply/internal/constants"
)

// Config points at a database file. ":memory:" opens a private in-memory database.
type Config struct {
	Path   string            `mapstructure:"path"`
	Params map[string]string `mapstructure:"params"`
}

// DSN renders a modernc.org/sqlite file: URI with a busy timeout and foreign
// keys enabled.
func (c *Config) DSN() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", constants.SQLiteBusyTimeoutMS))
	q.Add("_pragma", "foreign_keys(1)")
	for k, v := range c.Params {
		q.Add(k, v)
	}
	return "file:" + strings.TrimSpace(c.Path) + "?" + q.Encode()
}
