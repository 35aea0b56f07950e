package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoSettingsFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "local-hash-v1", cfg.Embedding.ModelID)
	assert.True(t, cfg.Index.WatchMode)
	assert.NotEmpty(t, cfg.Project.ID)
}

func TestLoadAppliesSettingsTOMLOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, settingsDir), 0o755))
	toml := `
include = ["**/*.go"]
exclude = ["**/gen/**"]

[project]
name = "widgetize"

[index]
watch_mode = false
watch_debounce_ms = 750

[embedding]
model_id = "custom-v2"
dimensions = 128
`
	require.NoError(t, os.WriteFile(filepath.Join(root, settingsDir, settingsFile), []byte(toml), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "widgetize", cfg.Project.Name)
	assert.False(t, cfg.Index.WatchMode)
	assert.Equal(t, 750, cfg.Index.WatchDebounceMs)
	assert.Equal(t, "custom-v2", cfg.Embedding.ModelID)
	assert.Equal(t, 128, cfg.Embedding.Dimensions)
	assert.Contains(t, cfg.Include, "**/*.go")
	assert.Contains(t, cfg.Exclude, "**/gen/**")
}

func TestLoadMintsProjectIDOnceAndReusesIt(t *testing.T) {
	root := t.TempDir()

	first, err := Load(root)
	require.NoError(t, err)
	require.NotEmpty(t, first.Project.ID)

	second, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, first.Project.ID, second.Project.ID)
}

func TestLoadHonorsGitignoreWhenRespected(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("vendor/\n*.generated.go\n"), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Contains(t, cfg.Exclude, "**/vendor/**")
	assert.Contains(t, cfg.Exclude, "**/*.generated.go")
}

func TestLoadSkipsGitignoreWhenNotRespected(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, settingsDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, settingsDir, settingsFile), []byte("[index]\nrespect_gitignore = false\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\n"), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.NotContains(t, cfg.Exclude, "**/generated/**")
}

func TestSetSmartDefaultsFillsWorkerCount(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Performance.ParallelFileWorkers = 0

	SetSmartDefaults(cfg)

	assert.GreaterOrEqual(t, cfg.Performance.ParallelFileWorkers, 1)
}
