// Package config holds the index's settings values and how they are loaded
// from disk. Parsing the settings file and minting a project id are the only
// concerns here; watching the settings file for changes, CLI flag merging,
// and env var overlays belong to the command layer, not this package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full set of settings an index run needs, in one value so it
// can be loaded once and passed down instead of read from globals.
type Config struct {
	Version     int
	Project     Project
	Index       Index
	Performance Performance
	Embedding   Embedding
	Include     []string
	Exclude     []string
}

type Project struct {
	Root string
	Name string
	ID   string // from .codanna/.project-id, minted on first load
}

type Index struct {
	MaxFileSize      int64
	MaxFileCount     int
	FollowSymlinks   bool
	RespectGitignore bool
	WatchMode        bool
	WatchDebounceMs  int
}

type Performance struct {
	ParallelFileWorkers int // 0 = auto-detect (NumCPU-1)
	IndexingTimeoutSec  int
}

// Embedding configures the embedding pipeline (internal/embed). ModelID and
// Dimensions are loaded and validated here only; vectorstore.Open checks a
// store's header against the Embedder it is given, not against these values.
type Embedding struct {
	Enabled    bool
	ModelID    string
	Dimensions int
}

// settingsFile is the name of the TOML settings file inside the project's
// .codanna directory, replacing the teacher's .lci.kdl.
const settingsFile = "settings.toml"
const settingsDir = ".codanna"
const projectIDFile = ".project-id"

// tomlConfig mirrors Config's shape for decoding: pelletier/go-toml/v2
// decodes into exported struct fields directly, but zero values would
// otherwise silently overwrite defaults, so raw fields are optional
// pointers where "unset" must be distinguishable from "set to zero".
type tomlConfig struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Index struct {
		MaxFileSize      *int64 `toml:"max_file_size"`
		MaxFileCount     *int   `toml:"max_file_count"`
		FollowSymlinks   *bool  `toml:"follow_symlinks"`
		RespectGitignore *bool  `toml:"respect_gitignore"`
		WatchMode        *bool  `toml:"watch_mode"`
		WatchDebounceMs  *int   `toml:"watch_debounce_ms"`
	} `toml:"index"`
	Performance struct {
		ParallelFileWorkers *int `toml:"parallel_file_workers"`
		IndexingTimeoutSec  *int `toml:"indexing_timeout_sec"`
	} `toml:"performance"`
	Embedding struct {
		Enabled    *bool   `toml:"enabled"`
		ModelID    *string `toml:"model_id"`
		Dimensions *int    `toml:"dimensions"`
	} `toml:"embedding"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// Load reads settings for the project rooted at root, applying defaults for
// anything settings.toml omits or does not exist at all, then ensures a
// project id is on disk and mirrored into Config.Project.ID.
func Load(root string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("config: resolving project root %q: %w", root, err)
	}

	cfg := Default(absRoot)

	path := filepath.Join(absRoot, settingsDir, settingsFile)
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// no settings.toml: defaults stand
	case err != nil:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		var tc tomlConfig
		if err := toml.Unmarshal(raw, &tc); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		applyTOML(cfg, &tc)
	}

	id, err := ensureProjectID(absRoot)
	if err != nil {
		return nil, err
	}
	cfg.Project.ID = id

	cfg.Exclude = append(cfg.Exclude, NewBuildArtifactDetector(cfg.Project.Root).DetectOutputDirectories()...)

	if cfg.Index.RespectGitignore {
		gi := newGitignoreParser()
		if err := gi.loadGitignore(absRoot); err != nil {
			return nil, err
		}
		cfg.Exclude = append(cfg.Exclude, gi.exclusionPatterns()...)
	}

	cfg.Exclude = DeduplicatePatterns(cfg.Exclude)

	return cfg, nil
}

func applyTOML(cfg *Config, tc *tomlConfig) {
	if tc.Project.Name != "" {
		cfg.Project.Name = tc.Project.Name
	}
	if tc.Index.MaxFileSize != nil {
		cfg.Index.MaxFileSize = *tc.Index.MaxFileSize
	}
	if tc.Index.MaxFileCount != nil {
		cfg.Index.MaxFileCount = *tc.Index.MaxFileCount
	}
	if tc.Index.FollowSymlinks != nil {
		cfg.Index.FollowSymlinks = *tc.Index.FollowSymlinks
	}
	if tc.Index.RespectGitignore != nil {
		cfg.Index.RespectGitignore = *tc.Index.RespectGitignore
	}
	if tc.Index.WatchMode != nil {
		cfg.Index.WatchMode = *tc.Index.WatchMode
	}
	if tc.Index.WatchDebounceMs != nil {
		cfg.Index.WatchDebounceMs = *tc.Index.WatchDebounceMs
	}
	if tc.Performance.ParallelFileWorkers != nil {
		cfg.Performance.ParallelFileWorkers = *tc.Performance.ParallelFileWorkers
	}
	if tc.Performance.IndexingTimeoutSec != nil {
		cfg.Performance.IndexingTimeoutSec = *tc.Performance.IndexingTimeoutSec
	}
	if tc.Embedding.Enabled != nil {
		cfg.Embedding.Enabled = *tc.Embedding.Enabled
	}
	if tc.Embedding.ModelID != nil {
		cfg.Embedding.ModelID = *tc.Embedding.ModelID
	}
	if tc.Embedding.Dimensions != nil {
		cfg.Embedding.Dimensions = *tc.Embedding.Dimensions
	}
	if len(tc.Include) > 0 {
		cfg.Include = tc.Include
	}
	if len(tc.Exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, tc.Exclude...)
	}
}

// ensureProjectID reads .codanna/.project-id under root, minting a fresh
// UUID and writing it on first run. A project id survives re-index and
// lets a caller distinguish one project's vectorstore/symbol-store files
// from another's when several are open in the same process.
func ensureProjectID(root string) (string, error) {
	dir := filepath.Join(root, settingsDir)
	path := filepath.Join(dir, projectIDFile)

	if raw, err := os.ReadFile(path); err == nil {
		id := string(raw)
		if id != "" {
			return id, nil
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: creating %s: %w", dir, err)
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("config: writing %s: %w", path, err)
	}
	return id, nil
}

// Default returns the built-in configuration for a project rooted at root,
// before any settings.toml is applied.
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Index: Index{
			MaxFileSize:      10 * 1024 * 1024,
			MaxFileCount:     50000,
			FollowSymlinks:   false,
			RespectGitignore: true,
			WatchMode:        true,
			WatchDebounceMs:  300,
		},
		Performance: Performance{
			ParallelFileWorkers: 0, // resolved by SetSmartDefaults
			IndexingTimeoutSec:  120,
		},
		Embedding: Embedding{
			Enabled:    true,
			ModelID:    "local-hash-v1",
			Dimensions: 256,
		},
		Include: []string{},
		Exclude: append([]string{}, defaultExcludes...),
	}
}

// SetSmartDefaults resolves zero-value settings that depend on the runtime
// environment (worker count) rather than being fixed defaults.
func SetSmartDefaults(cfg *Config) {
	if cfg.Performance.ParallelFileWorkers == 0 {
		cfg.Performance.ParallelFileWorkers = max(1, runtime.NumCPU()-1)
	}
}

var defaultExcludes = []string{
	"**/.git/**",
	"**/.*/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/dist/**",
	"**/build/**",
	"**/out/**",
	"**/target/**",
	"**/bin/**",
	"**/obj/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/*_test.go",
	"**/testdata/**",
	"**/__pycache__/**",
	"**/*.pyc",
}
