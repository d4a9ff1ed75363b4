package constants

import "time"

// Drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultDriver = DriverMySQL
)

// Connection defaults
const (
	DefaultMySQLPort       = 3306
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	// One process, one connection.
	MaxOpenConns = 1
	MaxIdleConns = 1

	DefaultConnMaxLifetime = 10 * time.Minute
	SQLiteBusyTimeoutMS    = 5000
)

// CLI defaults
const (
	// DefaultMigrationFile is the migration shipped with the repository,
	// relative to the working directory.
	DefaultMigrationFile = "database/migrations/20241109_add_patient_auth.sql"

	EnvPrefix = "SQLAPPLY"

	SuccessMessage = "Migration applied successfully"
)
