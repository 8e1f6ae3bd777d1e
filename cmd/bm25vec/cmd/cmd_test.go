package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCorpus = "the quick brown fox\nthe lazy dog\nquick quick fox jumps\n"

// testEnv isolates a CLI run: HOME, XDG_CONFIG_HOME and the working
// directory point into a temp dir and BM25VEC_* variables are cleared.
// It returns the corpus path and the store directory.
func testEnv(t *testing.T) (corpusPath, storeDir string) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	for _, name := range []string{
		"BM25VEC_K1", "BM25VEC_B", "BM25VEC_IDF", "BM25VEC_TOKENIZER",
		"BM25VEC_WORKERS", "BM25VEC_STORE_BACKEND", "BM25VEC_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	corpusPath = filepath.Join(tmp, "corpus.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(testCorpus), 0o644))
	return corpusPath, filepath.Join(tmp, "models")
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root := NewRootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.Execute()
	_ = stopCommand(nil, nil)
	return stdout.String(), err
}
