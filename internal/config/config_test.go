package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PG_DATABASE", "nemsis")
	t.Setenv("PG_USER", "ingest")
	t.Setenv("PG_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PG_HOST", "")
	t.Setenv("PG_PORT", "")
	t.Setenv("PG_SCHEMA", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "public", cfg.Schema)
	assert.Equal(t, DefaultArchiveDir, cfg.ArchiveDir)
	assert.Equal(t, DefaultErrorDir, cfg.ErrorDir)
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_PORT", "6432")
	t.Setenv("PG_SCHEMA", "staging")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "6432", cfg.Port)
	assert.Equal(t, "staging", cfg.Schema)
	assert.Equal(t, "nemsis", cfg.Database)
	assert.Equal(t, "ingest", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("PG_DATABASE", "")
	t.Setenv("PG_USER", "")
	t.Setenv("PG_PASSWORD", "")
	t.Chdir(t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PG_DATABASE")
	assert.Contains(t, err.Error(), "PG_USER")
	assert.Contains(t, err.Error(), "PG_PASSWORD")
}

func TestLoadRejectsBadSchemaName(t *testing.T) {
	setRequiredEnv(t)
	t.Chdir(t.TempDir())

	for _, schema := range []string{"bad-schema", "1numeric", `sneaky"; DROP TABLE x`, "has space"} {
		t.Setenv("PG_SCHEMA", schema)
		_, err := Load()
		assert.Error(t, err, "schema %q should be rejected", schema)
	}
}

func TestValidateSchemaShapes(t *testing.T) {
	base := Config{Database: "d", User: "u", Password: "p"}

	for _, ok := range []string{"public", "staging", "_private", "s2", "Mixed_Case"} {
		cfg := base
		cfg.Schema = ok
		assert.NoError(t, cfg.Validate(), "schema %q", ok)
	}
	for _, bad := range []string{"", "2start", "dash-ed", "dot.ted"} {
		cfg := base
		cfg.Schema = bad
		assert.Error(t, cfg.Validate(), "schema %q", bad)
	}
}
