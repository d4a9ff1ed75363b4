// Package database embeds the migrations shipped with sqlapply.
package database

import "embed"

// DefaultMigration is the name of the shipped migration inside Migrations.
const DefaultMigration = "migrations/20241109_add_patient_auth.sql"

//go:embed migrations/*.sql
var Migrations embed.FS
