package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, 4000, s.Limits.Normalize)
	assert.Equal(t, 2000, s.Limits.Render)
	assert.False(t, s.Reload.Auto)
	assert.Equal(t, 200*time.Millisecond, s.Reload.Interval())
	assert.Equal(t, 200*time.Millisecond, s.Reload.Debounce())
	assert.Equal(t, DefaultCacheSize, s.Worker.CacheSize)
	assert.Equal(t, DefaultMeshCells, s.Worker.MeshCells)
	assert.Equal(t, "sdfx", s.Worker.Kernel)
	assert.Empty(t, s.Path)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
[limits]
normalize = 100

[reload]
auto = true
interval_ms = 50

[log]
verbosity = 2
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Limits.Normalize)
	assert.Equal(t, DefaultRenderLimit, s.Limits.Render, "missing keys take defaults")
	assert.True(t, s.Reload.Auto)
	assert.Equal(t, 50*time.Millisecond, s.Reload.Interval())
	assert.Equal(t, 2, s.Log.Verbosity)
	assert.Equal(t, path, s.Path)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "cannot read")

	bad := filepath.Join(dir, FileName)
	writeFile(t, bad, "[limits\nnormalize = ")
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse error")
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	writeFile(t, filepath.Join(root, FileName), "[limits]\nrender = 7\n")

	s, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Limits.Render)
	assert.Equal(t, filepath.Join(root, FileName), s.Path)

	path, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), path)
}

func TestStatic(t *testing.T) {
	s := Static{Limits: Limits{Normalize: 5}}.Settings()
	assert.Equal(t, 5, s.Limits.Normalize)
	assert.Equal(t, DefaultRenderLimit, s.Limits.Render)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	src := NewFileSource(path)
	assert.Equal(t, path, src.Path())

	assert.Equal(t, Default(), src.Settings(), "missing file gives defaults")

	writeFile(t, path, "[limits]\nnormalize = 10\n")
	assert.Equal(t, 10, src.Settings().Limits.Normalize)

	writeFile(t, path, "[limits]\nnormalize = 12345\n")
	assert.Equal(t, 12345, src.Settings().Limits.Normalize, "changed file is re-read")

	writeFile(t, path, "[limits\n")
	assert.Equal(t, 12345, src.Settings().Limits.Normalize, "bad file keeps last settings")

	require.NoError(t, os.Remove(path))
	assert.Equal(t, DefaultNormalizeLimit, src.Settings().Limits.Normalize)
}
