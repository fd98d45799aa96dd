package ssvm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.False(t, cfg.ReferenceTypes)
	assert.False(t, cfg.BulkMemory)
	assert.Equal(t, defaultMaxCallDepth, cfg.MaxCallDepth)
	assert.NoError(t, cfg.Validate())
}

func TestConfigWithers(t *testing.T) {
	base := NewConfig()
	cfg := base.WithReferenceTypes(true).WithMaxCallDepth(64).WithInstructionTrace(true)
	assert.True(t, cfg.ReferenceTypes)
	assert.Equal(t, 64, cfg.MaxCallDepth)
	assert.True(t, cfg.TraceInstructions)
	// The base config is unchanged.
	assert.False(t, base.ReferenceTypes)
	assert.Equal(t, defaultMaxCallDepth, base.MaxCallDepth)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, NewConfig().WithMaxCallDepth(0).Validate())
	assert.Error(t, NewConfig().WithBulkMemory(true).Validate())
	// Both failures are reported together.
	err := NewConfig().WithMaxCallDepth(-1).WithBulkMemory(true).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-call-depth")
	assert.Contains(t, err.Error(), "bulk-memory")
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reference-types: true\nmax-call-depth: 128\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.ReferenceTypes)
	assert.Equal(t, 128, cfg.MaxCallDepth)
	// Unset keys keep defaults.
	assert.False(t, cfg.TraceInstructions)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max-call-depth: 128\n"), 0o600))
	t.Setenv("SSVM_MAX_CALL_DEPTH", "256")
	t.Setenv("SSVM_TRACE_INSTRUCTIONS", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.MaxCallDepth)
	assert.True(t, cfg.TraceInstructions)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
