package main

import (
	"github.com/joho/godotenv"
	"github.com/loykin/sqlapply/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = newRootCmd(viper.GetViper())

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sqlapply",
		Short:         "Apply a SQL migration file to a database in a single transaction",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, v)
		},
	}

	// Defaults. Connection keys and file get none so IsSet reports only real values.
	v.SetDefault("driver", constants.DefaultDriver)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("dry_run", false)
	v.SetDefault("connect_retries", 0)

	// Environment variables support: SQLAPPLY_HOST, SQLAPPLY_PASSWORD, ...
	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()

	f := cmd.Flags()
	f.String("host", "", "database host (required)")
	f.String("user", "", "database user (required)")
	f.String("password", "", "database password (required, may be empty)")
	f.String("database", "", "database name, or file path for sqlite (required)")
	f.String("file", constants.DefaultMigrationFile, "migration file to apply; the copy built into the binary is used when unset")
	f.String("driver", v.GetString("driver"), "database driver: mysql, postgres or sqlite")
	f.Int("port", 0, "database port (0 = driver default)")
	f.String("config", "", "optional config yaml with database and logging sections")
	f.String("log-level", v.GetString("log_level"), "log level: error, warn, info, debug")
	f.String("log-format", v.GetString("log_format"), "log format: text, json, color")
	f.Bool("dry-run", v.GetBool("dry_run"), "load and list statements without connecting")
	f.Int("connect-retries", v.GetInt("connect_retries"), "retry a refused or reset connect up to N times (statements are never retried)")

	for _, name := range []string{"host", "user", "password", "database", "file", "driver", "port", "config"} {
		_ = v.BindPFlag(name, f.Lookup(name))
	}
	_ = v.BindPFlag("log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("log_format", f.Lookup("log-format"))
	_ = v.BindPFlag("dry_run", f.Lookup("dry-run"))
	_ = v.BindPFlag("connect_retries", f.Lookup("connect-retries"))

	return cmd
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "migration failed")
	}
}
