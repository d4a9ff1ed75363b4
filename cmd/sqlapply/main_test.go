package main

import (
	"bytes"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/sqlapply/internal/constants"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd(viper.New())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

const patientMigration = `-- patient auth
CREATE TABLE patients (
  id INTEGER PRIMARY KEY,
  email TEXT NOT NULL
);
ALTER TABLE patients ADD COLUMN password_hash TEXT;
`

func TestCLI_AppliesSQLiteMigration(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "001.sql", patientMigration)
	dbPath := filepath.Join(dir, "clinic.db")

	out, _, err := execute(t, "--driver", "sqlite", "--database", dbPath, "--file", file)
	require.NoError(t, err)
	assert.Equal(t, constants.SuccessMessage+"\n", out)

	db, err := sql.Open("sqlite", "file:"+dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	_, err = db.Exec("INSERT INTO patients (email, password_hash) VALUES ('a@example.com', 'x')")
	assert.NoError(t, err)
}

func TestCLI_FailedStatementPrintsNoSuccess(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "001.sql", "CREATE TABLE a (id INTEGER);\nALTER TABLE missing ADD COLUMN x TEXT;\n")

	out, stderr, err := execute(t, "--driver", "sqlite", "--database", filepath.Join(dir, "clinic.db"), "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2 failed")
	assert.Empty(t, out)
	assert.Contains(t, stderr, "statement failed")
}

func TestCLI_MissingRequiredFlagsReportedTogether(t *testing.T) {
	_, _, err := execute(t, "--host", "db.internal")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingFlags))
	assert.Contains(t, err.Error(), "--user, --password, --database")
	assert.NotContains(t, err.Error(), "--host")
}

func TestCLI_EmptyPasswordCountsAsSet(t *testing.T) {
	dir := t.TempDir()
	// Load fails after the required check passes, so no connection is tried.
	_, _, err := execute(t, "--host", "127.0.0.1", "--user", "root", "--password", "", "--database", "clinic",
		"--file", filepath.Join(dir, "missing.sql"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingFlags))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCLI_LoadErrorBeforeConnect(t *testing.T) {
	dir := t.TempDir()
	// Port 1 is unreachable; the file error must win.
	_, _, err := execute(t, "--host", "127.0.0.1", "--port", "1", "--user", "root", "--password", "pw",
		"--database", "clinic", "--file", filepath.Join(dir, "nope.sql"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestCLI_DryRunListsStatements(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "001.sql", patientMigration)

	out, _, err := execute(t, "--dry-run", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "-- statement 1\nCREATE TABLE patients (")
	assert.Contains(t, out, "-- statement 2\nALTER TABLE patients ADD COLUMN password_hash TEXT\n")
	assert.Contains(t, out, "2 statement(s)")
	assert.NotContains(t, out, constants.SuccessMessage)
}

func TestCLI_ConfigFileSuppliesConnection(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "001.sql", patientMigration)
	dbPath := filepath.Join(dir, "clinic.db")
	cfg := writeFile(t, dir, "sqlapply.yaml", `database:
  driver: sqlite
  name: `+dbPath+`
file: `+file+`
logging:
  level: debug
  format: json
`)

	out, stderr, err := execute(t, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, constants.SuccessMessage+"\n", out)
	assert.Contains(t, stderr, `"run_id"`)
}

func TestCLI_FlagOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "001.sql", "SELECT 1;\n")
	cfg := writeFile(t, dir, "sqlapply.yaml", "file: "+filepath.Join(dir, "other.sql")+"\n")

	out, _, err := execute(t, "--config", cfg, "--dry-run", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT 1")
}

func TestCLI_LogsDoNotLeakPassword(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "001.sql", "SELECT 1;\n")

	_, stderr, err := execute(t, "--host", "127.0.0.1", "--port", "1", "--user", "root",
		"--password", "s3cr3t-pw", "--database", "clinic", "--file", file, "--log-level", "debug")
	require.Error(t, err)
	assert.NotContains(t, stderr, "s3cr3t-pw")
	assert.NotContains(t, err.Error(), "s3cr3t-pw")
}

func TestCLI_InvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "--dry-run", "--log-level", "loud")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid logging level"))
}

func TestConfigDoc_Settings(t *testing.T) {
	empty := ""
	doc := ConfigDoc{Database: DatabaseConfig{Host: " db ", Port: 3307, Password: &empty, Params: map[string]string{"charset": "utf8mb4"}}}
	s := doc.Settings()
	assert.Equal(t, "db", s["host"])
	assert.Equal(t, 3307, s["port"])
	assert.Equal(t, "", s["password"])
	assert.NotContains(t, s, "user")
	assert.Equal(t, map[string]any{"charset": "utf8mb4"}, s["params"])
}

func TestConfigDoc_LoadRejectsDirectory(t *testing.T) {
	var doc ConfigDoc
	assert.Error(t, doc.Load(t.TempDir()))
}

type fakeExit struct{ code int }

func (f *fakeExit) Exit(code int) { f.code = code }
func (f *fakeExit) LogFatalError(err error, msg string, keyvals ...any) {
	logFatal(f, err, msg, keyvals...)
}

func TestExitHandler_ExitsWithOne(t *testing.T) {
	f := &fakeExit{code: -1}
	prev := exitHandler
	exitHandler = f
	defer func() { exitHandler = prev }()

	exitHandler.LogFatalError(errors.New("boom"), "migration failed")
	assert.Equal(t, 1, f.code)
}

func TestCLI_DefaultMigrationFromAnyDirectory(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "-- statement 1\nALTER TABLE patients")
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS patient_auth_tokens")
	assert.Contains(t, out, "3 statement(s)")
}

func TestCLI_ExplicitDefaultPathReadsDisk(t *testing.T) {
	t.Chdir(t.TempDir())

	// The same path given explicitly is resolved against the working directory.
	_, _, err := execute(t, "--dry-run", "--file", constants.DefaultMigrationFile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
}

func TestOptions_ConnParams(t *testing.T) {
	v := viper.New()
	newRootCmd(v)
	v.Set("driver", "postgres")
	v.Set("host", "db")
	v.Set("port", "6543")
	v.Set("user", "app")
	v.Set("password", "")
	v.Set("database", "clinic")
	v.Set("params", map[string]any{"sslmode": "require"})

	opts, err := decodeOptions(v)
	require.NoError(t, err)
	p := opts.ConnParams()
	assert.Equal(t, "postgres", p.Driver)
	assert.Equal(t, "db", p.Host)
	assert.Equal(t, 6543, p.Port)
	assert.Equal(t, "app", p.User)
	assert.Equal(t, "clinic", p.Database)
	assert.Equal(t, map[string]string{"sslmode": "require"}, p.Options)
}
