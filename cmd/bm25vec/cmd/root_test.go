package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: every subcommand is registered
	for _, name := range []string{"fit", "transform", "search", "vocab", "models", "config", "logs", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"debug", "config", "store-dir", "backend", "cpuprofile", "memprofile", "trace"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmd_ExplicitConfigMissing(t *testing.T) {
	corpusPath, storeDir := testEnv(t)
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir, "--config", filepath.Join(storeDir, "nope.yaml"))
	assert.Error(t, err)
}

func TestRootCmd_ExplicitConfigUsed(t *testing.T) {
	// Given: a config file outside the working directory
	corpusPath, storeDir := testEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("vectorizer:\n  max_features: 2\n"), 0o644))

	// When: fitting with --config
	out, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir, "--config", cfgPath, "--format", "json")

	// Then: its settings apply
	require.NoError(t, err)
	assert.Contains(t, out, `"features":2`)
}

func TestRootCmd_Profiles(t *testing.T) {
	// Given: profiling flags
	corpusPath, storeDir := testEnv(t)
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")

	// When: fitting
	_, err := runCLI(t, "fit", corpusPath, "--store-dir", storeDir, "--cpuprofile", cpu, "--memprofile", heap)

	// Then: both profiles are written
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, heap)
}
