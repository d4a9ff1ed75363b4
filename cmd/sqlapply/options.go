package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/sqlapply"
	"github.com/loykin/sqlapply/internal/constants"
	"github.com/spf13/viper"
)

var ErrMissingFlags = errors.New("required flags not set")

// Options is the resolved command configuration (flag > env > config file > default).
type Options struct {
	Driver    string            `mapstructure:"driver"`
	Host      string            `mapstructure:"host"`
	Port      int               `mapstructure:"port"`
	User      string            `mapstructure:"user"`
	Password  string            `mapstructure:"password"`
	Database  string            `mapstructure:"database"`
	Params    map[string]string `mapstructure:"params"`
	File      string            `mapstructure:"file"`
	Config    string            `mapstructure:"config"`
	LogLevel  string            `mapstructure:"log_level"`
	LogFormat string            `mapstructure:"log_format"`
	DryRun    bool              `mapstructure:"dry_run"`

	ConnectRetries int `mapstructure:"connect_retries"`
}

func decodeOptions(v *viper.Viper) (Options, error) {
	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return opts, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}

// requiredKeys lists the connection settings a driver needs. An empty
// password counts as set.
func requiredKeys(driver string) []string {
	p := sqlapply.Params{Driver: driver}
	if p.DriverName() == constants.DriverSQLite {
		return []string{"database"}
	}
	return []string{"host", "user", "password", "database"}
}

// checkRequired reports every required key that no flag, env var or config
// file supplied.
func checkRequired(v *viper.Viper, driver string) error {
	var missing []string
	for _, key := range requiredKeys(driver) {
		if !v.IsSet(key) {
			missing = append(missing, "--"+key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFlags, strings.Join(missing, ", "))
	}
	return nil
}

// ConnParams returns the connection parameters for the target database.
func (o Options) ConnParams() sqlapply.Params {
	return sqlapply.Params{
		Driver:   o.Driver,
		Host:     o.Host,
		Port:     o.Port,
		User:     o.User,
		Password: o.Password,
		Database: o.Database,
		Options:  o.Params,
	}
}
