package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func burn() int {
	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i % 7
	}
	return sum
}

func TestSession_WritesAllOutputs(t *testing.T) {
	// Given: a session writing every output
	dir := t.TempDir()
	opts := Options{
		CPUProfile:  filepath.Join(dir, "cpu.prof"),
		HeapProfile: filepath.Join(dir, "heap.prof"),
		Trace:       filepath.Join(dir, "trace.out"),
	}
	require.True(t, opts.Enabled())

	// When: running some work between Start and Stop
	s, err := Start(opts)
	require.NoError(t, err)
	_ = burn()
	require.NoError(t, s.Stop())

	// Then: every file has content
	for _, path := range []string{opts.CPUProfile, opts.HeapProfile, opts.Trace} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
}

func TestSession_StopTwice(t *testing.T) {
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.prof")

	s, err := Start(Options{HeapProfile: heap})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, os.Remove(heap))

	// The second Stop must not rewrite the heap profile.
	require.NoError(t, s.Stop())
	assert.NoFileExists(t, heap)
}

func TestSession_NilStop(t *testing.T) {
	var s *Session
	assert.NoError(t, s.Stop())
}

func TestStart_BadPath(t *testing.T) {
	_, err := Start(Options{CPUProfile: filepath.Join(t.TempDir(), "missing", "cpu.prof")})
	assert.Error(t, err)
}

func TestOptions_Enabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, Options{Trace: "t.out"}.Enabled())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.bytes))
	}
}

func TestHeapInUse(t *testing.T) {
	assert.Greater(t, HeapInUse(), uint64(0))
}
