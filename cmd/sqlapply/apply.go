package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/loykin/sqlapply"
	"github.com/loykin/sqlapply/database"
	"github.com/loykin/sqlapply/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func runApply(cmd *cobra.Command, v *viper.Viper) error {
	var doc ConfigDoc
	if path := v.GetString("config"); path != "" {
		if err := doc.Load(path); err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if err := v.MergeConfigMap(doc.Settings()); err != nil {
			return fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	opts, err := decodeOptions(v)
	if err != nil {
		return err
	}
	logger, err := doc.SetupLogging(cmd.ErrOrStderr(), opts.LogLevel, opts.LogFormat)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger = logger.WithRunID(runID)
	sqlapply.SetDefaultLogger(logger)

	if !opts.DryRun {
		if err := checkRequired(v, opts.Driver); err != nil {
			return err
		}
	}

	// The file is read before any connection is attempted.
	source, stmts, err := loadMigration(v, opts.File)
	if err != nil {
		return err
	}
	logger.Info("migration loaded", "file", source, "statements", len(stmts))

	if opts.DryRun {
		return printStatements(cmd.OutOrStdout(), stmts)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := sqlapply.Apply(ctx, opts.ConnParams(), stmts, sqlapply.WithConnectRetries(opts.ConnectRetries)); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), constants.SuccessMessage)
	return err
}

// loadMigration reads the file given by flag, env or config, or the migration
// embedded in the binary when none was given.
func loadMigration(v *viper.Viper, file string) (string, []string, error) {
	if v.IsSet("file") {
		stmts, err := sqlapply.Load(file)
		return file, stmts, err
	}
	stmts, err := sqlapply.LoadFS(database.Migrations, database.DefaultMigration)
	return "embedded:" + database.DefaultMigration, stmts, err
}

func printStatements(w io.Writer, stmts []string) error {
	for i, s := range stmts {
		if _, err := fmt.Fprintf(w, "-- statement %d\n%s\n", i+1, s); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "-- %d statement(s), dry run: nothing applied\n", len(stmts))
	return err
}
