package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "create usage records")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(mf.UpPath, "_create_usage_records.up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, "_create_usage_records.down.sql"))

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "create usage records")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(dir, "init")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "add_grants_table", sanitizeName("Add Grants Table"))
	assert.Equal(t, "fix_plan_limits", sanitizeName("fix-plan-limits"))
	assert.Equal(t, "v2_schema", sanitizeName("v2 schema!"))
}
