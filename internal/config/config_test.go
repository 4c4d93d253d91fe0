package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := write(t, root, "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = Find(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, `
[grammar]
path = "grammars/expr.yaml"
max_height = 12

[fuzz]
seed = 7
count = -1
strategy = "uncov(random, smallest)"

[output]
pattern = "out/#{BATCH}/p_#{INDEX}.txt"

[triage]
command = "./check.sh"
jobs = 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, filepath.Join(dir, "grammars", "expr.yaml"), cfg.Grammar.Path)
	assert.Equal(t, 12, cfg.Grammar.MaxHeight)
	assert.True(t, cfg.Fuzz.HasSeed)
	assert.Equal(t, uint64(7), cfg.Fuzz.Seed)
	assert.Equal(t, -1, cfg.Fuzz.Count)
	assert.Equal(t, "uncov(random, smallest)", cfg.Fuzz.Strategy)
	assert.Equal(t, ModeTree, cfg.Fuzz.Mode)
	assert.Equal(t, 1000, cfg.Output.BatchSize)
	assert.Equal(t, " ", cfg.Output.Separator)
	assert.Equal(t, 4, cfg.Triage.Jobs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := write(t, t.TempDir(), "[fuzz]\ncuont = 3\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDiscoverWithoutFile(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.Fuzz.HasSeed)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingGrammar)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Grammar.Path = "g.yaml"
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Fuzz.Mode = "forest"
	bad.Triage.Jobs = 0
	err := bad.Validate()
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "forest")
	assert.Contains(t, err.Error(), "jobs 0")

	bad = cfg
	bad.Triage.Command = "true"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidValue)
}

func TestValidateOutputIgnoresGrammar(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.ValidateOutput())
	cfg.Output.BatchSize = 0
	assert.ErrorIs(t, cfg.ValidateOutput(), ErrInvalidValue)
}
