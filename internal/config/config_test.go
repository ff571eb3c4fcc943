package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &ProjectConfig{}, cfg)
}

func TestLoad_YAML(t *testing.T) {
	tests := []string{"codekg.yml", "codekg.yaml"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`
store: kuzu
kuzuPath: /tmp/g.kuzu
workers: 3
excludeDirs: [fixtures, testdata]
languages: [go]
logLevel: debug
tier: code
`), 0o644))

			cfg, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, "kuzu", cfg.Store)
			assert.Equal(t, "/tmp/g.kuzu", cfg.KuzuPath)
			assert.Equal(t, 3, cfg.Workers)
			assert.Equal(t, []string{"fixtures", "testdata"}, cfg.ExcludeDirs)
			assert.Equal(t, []string{"go"}, cfg.Languages)
			assert.Equal(t, "debug", cfg.LogLevel)
			assert.Equal(t, "code", cfg.Tier)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codekg.yml"), []byte("workers: [1"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	p := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(p, []byte("uri: neo4j://db:7687\ndatabase: graph\n"), 0o644))
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "neo4j://db:7687", cfg.URI)
	assert.Equal(t, "graph", cfg.Database)
}

func TestWithDefaults(t *testing.T) {
	cfg := ProjectConfig{}.WithDefaults()
	assert.Equal(t, DefaultStore, cfg.Store)
	assert.Equal(t, DefaultKuzuPath, cfg.KuzuPath)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultTier, cfg.Tier)

	set := ProjectConfig{Store: "memory", Workers: 2, BatchSize: 10}.WithDefaults()
	assert.Equal(t, "memory", set.Store)
	assert.Equal(t, 2, set.Workers)
	assert.Equal(t, 10, set.BatchSize)
}

func TestTemplate(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteTemplate(dir, false)
	require.NoError(t, err)
	assert.True(t, written)

	// The template parses and matches the defaults.
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultStore, cfg.Store)
	assert.Equal(t, DefaultKuzuPath, cfg.KuzuPath)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultTier, cfg.Tier)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Languages)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("store: memory\n"), 0o644))
	written, err = WriteTemplate(dir, false)
	require.NoError(t, err)
	assert.False(t, written)
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)

	written, err = WriteTemplate(dir, true)
	require.NoError(t, err)
	assert.True(t, written)
}
