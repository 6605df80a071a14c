package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sale deposit date", "sale_deposit_date"},
		{"Sale-Deposit-Date", "sale_deposit_date"},
		{"SALE_DEPOSIT_DATE", "sale_deposit_date"},
		{"sale__deposit__date", "sale_deposit_date"},
		{"Class RSVP 2", "class_rsvp_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_DependsOnLeaf(t *testing.T) {
	g, err := migrations.Graph()
	require.NoError(t, err)
	dir := t.TempDir()

	mf, err := CreateMigration(dir, g, "tasks", "Class location")
	require.NoError(t, err)

	assert.Equal(t, 43, mf.Number)
	assert.Equal(t, "0043_class_location", mf.Name)
	require.NotNil(t, mf.Dependency)
	assert.Equal(t, ledger.Key{App: "tasks", Name: "0042_class_rsvp_period"}, *mf.Dependency)
	assert.Equal(t, filepath.Join(dir, "tasks_0043_class_location.go"), mf.Path)

	content, err := os.ReadFile(mf.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "package migrations")
	assert.Contains(t, string(content), `Name: "0043_class_location",`)
	assert.Contains(t, string(content), `Dependencies: []ledger.Key{dep("tasks", "0042_class_rsvp_period")},`)

	_, err = CreateMigration(dir, g, "tasks", "Class location")
	assert.Error(t, err, "an existing file must not be overwritten")
}

func TestCreateMigration_FirstMigrationOfApp(t *testing.T) {
	g, err := migrations.Graph()
	require.NoError(t, err)

	mf, err := CreateMigration(t.TempDir(), g, "Shop", "initial")
	require.NoError(t, err)
	assert.Equal(t, "shop", mf.App)
	assert.Equal(t, "0001_initial", mf.Name)
	assert.Nil(t, mf.Dependency)

	content, err := os.ReadFile(mf.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "Dependencies")
}

func TestCreateMigration_ConflictingLeaves(t *testing.T) {
	g, err := ledger.NewGraph([]*ledger.Migration{
		shopInitial(),
		shopMigration("0002_a", ledger.RunSQL{SQL: []string{"SELECT 1"}}),
		shopMigration("0002_b", ledger.RunSQL{SQL: []string{"SELECT 1"}}),
	})
	require.NoError(t, err)

	_, err = CreateMigration(t.TempDir(), g, "shop", "next")
	assert.ErrorIs(t, err, ledger.ErrConflictingLeaves)
}

func TestCreateMigration_RequiresNames(t *testing.T) {
	g, err := migrations.Graph()
	require.NoError(t, err)
	_, err = CreateMigration(t.TempDir(), g, "books", "!!!")
	assert.Error(t, err)
}
