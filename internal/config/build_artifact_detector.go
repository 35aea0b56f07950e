package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector scans a project root for language-specific build
// config files (package.json, tsconfig.json, Cargo.toml, pyproject.toml) and
// turns any custom output directory they declare into a glob exclusion
// pattern, so a custom "outDir" gets excluded from indexing the same as the
// conventional dist/build/target directories already in defaultExcludes.
type BuildArtifactDetector struct {
	root string
}

// NewBuildArtifactDetector creates a detector rooted at root.
func NewBuildArtifactDetector(root string) *BuildArtifactDetector {
	return &BuildArtifactDetector{root: root}
}

// DetectOutputDirectories returns exclusion glob patterns for every custom
// output directory found across the project's build config files.
func (d *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string
	patterns = append(patterns, d.javascriptOutputs()...)
	patterns = append(patterns, d.rustOutputs()...)
	patterns = append(patterns, d.pythonOutputs()...)
	return patterns
}

// readJSON decodes path as JSON into a generic map, returning nil if the
// file is absent or malformed — a project's build config is optional input,
// not something config loading should fail over.
func readJSON(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var v map[string]any
	if json.Unmarshal(data, &v) != nil {
		return nil
	}
	return v
}

func readTOML(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var v map[string]any
	if toml.Unmarshal(data, &v) != nil {
		return nil
	}
	return v
}

// dig walks a chain of map keys, returning the value at the end of the
// chain and whether every key along the way resolved to a nested map.
func dig(m map[string]any, keys ...string) (any, bool) {
	var cur any = m
	for _, k := range keys {
		asMap, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = asMap[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func digString(m map[string]any, keys ...string) (string, bool) {
	v, ok := dig(m, keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func excludeGlob(dir string) string { return "**/" + dir + "/**" }

// javascriptOutputs checks package.json's "build.outDir" and any script
// invoking a CLI with an explicit --outDir/-outDir flag, tsconfig.json's
// compilerOptions.outDir, and vite.config.{js,ts}'s outDir string literal
// (config files are JS, not data, so this is a substring heuristic rather
// than a parse).
func (d *BuildArtifactDetector) javascriptOutputs() []string {
	var patterns []string

	if pkg := readJSON(filepath.Join(d.root, "package.json")); pkg != nil {
		if outDir, ok := digString(pkg, "build", "outDir"); ok {
			patterns = append(patterns, excludeGlob(outDir))
		}
		if scripts, ok := dig(pkg, "scripts"); ok {
			if m, ok := scripts.(map[string]any); ok {
				for _, script := range m {
					s, ok := script.(string)
					if !ok {
						continue
					}
					if dir, ok := outDirFlag(s); ok {
						patterns = append(patterns, excludeGlob(dir))
					}
				}
			}
		}
	}

	if ts := readJSON(filepath.Join(d.root, "tsconfig.json")); ts != nil {
		if outDir, ok := digString(ts, "compilerOptions", "outDir"); ok {
			patterns = append(patterns, excludeGlob(outDir))
		}
	}

	for _, name := range []string{"vite.config.js", "vite.config.ts"} {
		if dir, ok := viteOutDir(filepath.Join(d.root, name)); ok {
			patterns = append(patterns, excludeGlob(dir))
		}
	}

	return patterns
}

// outDirFlag extracts the argument to a command line's --outDir/-outDir flag.
func outDirFlag(script string) (string, bool) {
	if !strings.Contains(script, "outDir") {
		return "", false
	}
	parts := strings.Fields(script)
	for i, part := range parts {
		if (part == "--outDir" || part == "-outDir") && i+1 < len(parts) {
			return strings.Trim(parts[i+1], `"'`), true
		}
	}
	return "", false
}

// viteOutDir pulls a quoted outDir value out of a vite config file by
// substring search — the config is executable JS, not data, so this is a
// heuristic, not a parser.
func viteOutDir(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	content := string(data)
	idx := strings.Index(content, "outDir")
	if idx == -1 {
		return "", false
	}
	rest := content[idx+len("outDir"):]
	colon := strings.Index(rest, ":")
	if colon == -1 {
		return "", false
	}
	rest = rest[colon+1:]
	for _, quote := range []string{"'", `"`} {
		if parts := strings.SplitN(rest, quote, 3); len(parts) >= 3 {
			if dir := strings.TrimSpace(parts[1]); dir != "" {
				return dir, true
			}
		}
	}
	return "", false
}

// rustOutputs checks Cargo.toml's profile.release.target-dir; Rust's
// conventional target/ is already in defaultExcludes.
func (d *BuildArtifactDetector) rustOutputs() []string {
	cargo := readTOML(filepath.Join(d.root, "Cargo.toml"))
	if cargo == nil {
		return nil
	}
	if dir, ok := digString(cargo, "profile", "release", "target-dir"); ok {
		return []string{excludeGlob(dir)}
	}
	return nil
}

// pythonOutputs checks pyproject.toml's Poetry-specific build.target-dir.
func (d *BuildArtifactDetector) pythonOutputs() []string {
	pyproject := readTOML(filepath.Join(d.root, "pyproject.toml"))
	if pyproject == nil {
		return nil
	}
	if dir, ok := digString(pyproject, "tool", "poetry", "build", "target-dir"); ok {
		return []string{excludeGlob(dir)}
	}
	return nil
}

// DeduplicatePatterns removes duplicate exclusion patterns, preserving the
// order of first occurrence.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
