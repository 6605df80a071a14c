package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xerocraft/backend/internal/infrastructure/config"
	"github.com/xerocraft/backend/internal/infrastructure/migration"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Name: "xerocraft-backend", Env: "development", TimeZone: "America/Chicago"},
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			Path:         filepath.Join(dir, "xerocraft.db"),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Log:    config.LogConfig{Level: "error", Format: "console", Output: "stderr"},
		Ledger: config.LedgerConfig{MigrationsDir: filepath.Join(dir, "src"), ExportDir: filepath.Join(dir, "export")},
	}
}

// run executes the CLI against cfg and returns what it printed.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	e := &env{
		loadConfig: func() (*config.Config, error) { return cfg, nil },
		out:        &out,
	}
	cmd := newRootCommand(e)
	cmd.SetArgs(args)
	cmd.SetErr(&out)
	err := cmd.Execute()
	e.close()
	return out.String(), err
}

func TestUpShowDown(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, cfg, "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "apply auth.0001_initial")

	_, err = run(t, cfg, "up")
	require.NoError(t, err)

	out, err = run(t, cfg, "plan")
	require.NoError(t, err)
	assert.Equal(t, "No planned migration operations.\n", out)

	out, err = run(t, cfg, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "books\n")
	assert.Contains(t, out, " [X] 0001_initial\n")
	assert.NotContains(t, out, "[ ]")

	_, err = run(t, cfg, "down", "tasks", "0041_class")
	require.NoError(t, err)

	out, err = run(t, cfg, "show")
	require.NoError(t, err)
	assert.Contains(t, out, " [ ] 0042_class_rsvp_period\n")

	out, err = run(t, cfg, "plan")
	require.NoError(t, err)
	assert.Equal(t, "apply tasks.0042_class_rsvp_period\n", out)
}

func TestUp_Target(t *testing.T) {
	cfg := sqliteConfig(t)

	_, err := run(t, cfg, "up", "books", "0001_initial")
	require.NoError(t, err)

	out, err := run(t, cfg, "plan", "books", "0002_auto_20160218_1143")
	require.NoError(t, err)
	assert.Equal(t, "apply books.0002_auto_20160218_1143\n", out)

	_, err = run(t, cfg, "up", "books", "9999_missing")
	assert.Error(t, err)
}

func TestSQL(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, cfg, "sql", "books", "0001_initial", "--dialect", "postgres")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE "books_donation"`)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.True(t, strings.HasSuffix(line, ";"), line)
	}

	out, err = run(t, cfg, "sql", "books", "0001_initial", "--backwards")
	require.NoError(t, err)
	assert.Contains(t, out, "DROP TABLE")

	_, err = run(t, cfg, "sql", "books", "0001_initial", "--dialect", "mysql")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	out, err := run(t, sqliteConfig(t), "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestCreate(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, cfg, "create", "books", "sale notes")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, cfg.Ledger.MigrationsDir, filepath.Dir(path))
	assert.FileExists(t, path)

	_, err = run(t, cfg, "create", "books")
	assert.Error(t, err)
}

func TestExportAndList(t *testing.T) {
	cfg := sqliteConfig(t)

	out, err := run(t, cfg, "list")
	require.NoError(t, err)
	assert.Equal(t, "No exported migrations.\n", out)

	_, err = run(t, cfg, "export")
	require.NoError(t, err)

	out, err = run(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_ledger_recorder")
}

func TestApplyExport_RequiresPostgres(t *testing.T) {
	_, err := run(t, sqliteConfig(t), "apply-export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a postgres database")
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Up() error { return m.Called().Error(0) }

func (m *mockRunner) Steps(n int) error { return m.Called(n).Error(0) }

func (m *mockRunner) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *mockRunner) Force(version int) error { return m.Called(version).Error(0) }

var _ exportRunner = (*migration.ExportRunner)(nil)

func TestRunExport(t *testing.T) {
	r := new(mockRunner)
	r.On("Up").Return(nil).Once()
	r.On("Steps", -2).Return(nil).Once()
	r.On("Version").Return(uint(7), true, nil).Once()
	r.On("Force", 6).Return(errors.New("locked")).Once()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, runExport(cmd, r, nil))
	require.NoError(t, runExport(cmd, r, []string{"steps", "-2"}))
	require.NoError(t, runExport(cmd, r, []string{"version"}))
	assert.Equal(t, "version 7 dirty=true\n", out.String())
	assert.EqualError(t, runExport(cmd, r, []string{"force", "6"}), "locked")

	assert.EqualError(t, runExport(cmd, r, []string{"steps"}), "steps needs a number")
	assert.EqualError(t, runExport(cmd, r, []string{"steps", "x"}), `invalid number "x"`)
	assert.EqualError(t, runExport(cmd, r, []string{"drop"}), `unknown apply-export action "drop"`)

	r.AssertExpectations(t)
}

func TestUp_WithDatabaseTracing(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Telemetry = config.TelemetryConfig{DBTraceEnabled: true, DBSlowQueryThresh: time.Millisecond}

	_, err := run(t, cfg, "up")
	require.NoError(t, err)

	out, err := run(t, cfg, "plan")
	require.NoError(t, err)
	assert.Equal(t, "No planned migration operations.\n", out)
}
