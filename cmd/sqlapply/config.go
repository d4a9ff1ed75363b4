package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/loykin/sqlapply"
	"github.com/loykin/sqlapply/internal/util"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver" yaml:"driver"`
	Host     string            `mapstructure:"host" yaml:"host"`
	Port     int               `mapstructure:"port" yaml:"port"`
	User     string            `mapstructure:"user" yaml:"user"`
	Password *string           `mapstructure:"password" yaml:"password"` // nil = not given; "" is a valid password
	Name     string            `mapstructure:"name" yaml:"name"`
	Params   map[string]string `mapstructure:"params" yaml:"params"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

type ConfigDoc struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	File     string         `mapstructure:"file" yaml:"file"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the operator; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Settings flattens the document into viper keys. Only values present in
// the file are returned so flags, env and defaults keep their precedence.
func (c *ConfigDoc) Settings() map[string]any {
	out := map[string]any{}
	put := func(key, val string) {
		if s, ok := util.TrimEmptyCheck(val); ok {
			out[key] = s
		}
	}
	db := c.Database
	put("driver", db.Driver)
	put("host", db.Host)
	put("user", db.User)
	put("database", db.Name)
	put("file", c.File)
	put("log_level", c.Logging.Level)
	put("log_format", c.Logging.Format)
	if db.Port != 0 {
		out["port"] = db.Port
	}
	if db.Password != nil {
		out["password"] = *db.Password
	}
	if len(db.Params) > 0 {
		params := make(map[string]any, len(db.Params))
		for k, v := range db.Params {
			params[k] = v
		}
		out["params"] = params
	}
	return out
}

// SetupLogging builds the logger for a run and installs it as the default.
// Level and format come from the resolved options; color and masking from
// the config file.
func (c *ConfigDoc) SetupLogging(w io.Writer, levelStr, formatStr string) (*sqlapply.Logger, error) {
	level, err := sqlapply.ParseLogLevel(levelStr)
	if err != nil {
		return nil, err
	}
	format, err := sqlapply.ParseLogFormat(formatStr)
	if err != nil {
		return nil, err
	}
	if c.Logging.Color != nil {
		switch {
		case *c.Logging.Color && format == sqlapply.LogFormatText:
			format = sqlapply.LogFormatColor
		case !*c.Logging.Color && format == sqlapply.LogFormatColor:
			format = sqlapply.LogFormatText
		}
	}

	logger := sqlapply.NewLoggerTo(w, level, format)

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	sqlapply.SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", string(format),
		"mask_sensitive", maskingEnabled)
	return logger, nil
}
