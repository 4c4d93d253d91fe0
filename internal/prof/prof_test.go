package prof

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionWritesEveryProfile(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Heap:  filepath.Join(dir, "heap.pprof"),
		Trace: filepath.Join(dir, "run.trace"),
	}
	s, err := Start(opts)
	require.NoError(t, err)
	assert.True(t, s.Active())

	sum := 0
	for i := range 100000 {
		sum += i % 7
	}
	require.NotZero(t, sum)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	for _, p := range []string{opts.CPU, opts.Heap, opts.Trace} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.NotZero(t, info.Size(), p)
	}
}

func TestEmptySession(t *testing.T) {
	s, err := Start(Options{})
	require.NoError(t, err)
	assert.False(t, s.Active())
	assert.NoError(t, s.Stop())

	var nilSession *Session
	assert.False(t, nilSession.Active())
	assert.NoError(t, nilSession.Stop())
}

func TestStartFailsOnBadPath(t *testing.T) {
	_, err := Start(Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.pprof")})
	assert.Error(t, err)
}
