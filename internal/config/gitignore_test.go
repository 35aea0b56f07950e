package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitignoreLine_Modifiers(t *testing.T) {
	tests := []struct {
		line      string
		pattern   string
		negate    bool
		directory bool
		absolute  bool
	}{
		{"README.md", "README.md", false, false, false},
		{"node_modules/", "node_modules", false, true, false},
		{"/build", "build", false, false, true},
		{"!important.log", "important.log", true, false, false},
		{"/dist/", "dist", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			p := parseGitignoreLine(tt.line)
			assert.Equal(t, tt.pattern, p.Pattern)
			assert.Equal(t, tt.negate, p.Negate)
			assert.Equal(t, tt.directory, p.Directory)
			assert.Equal(t, tt.absolute, p.Absolute)
		})
	}
}

func TestToGlobPattern(t *testing.T) {
	tests := []struct {
		name string
		p    gitignorePattern
		want string
	}{
		{"relative file", gitignorePattern{Pattern: "*.log"}, "**/*.log"},
		{"relative dir", gitignorePattern{Pattern: "node_modules", Directory: true}, "**/node_modules/**"},
		{"absolute file", gitignorePattern{Pattern: "build", Absolute: true}, "build"},
		{"absolute dir", gitignorePattern{Pattern: "dist", Directory: true, Absolute: true}, "dist/**"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toGlobPattern(tt.p))
		})
	}
}

func TestGitignoreParser_ExclusionPatternsDropsNegations(t *testing.T) {
	gp := newGitignoreParser()
	gp.patterns = []gitignorePattern{
		parseGitignoreLine("node_modules/"),
		parseGitignoreLine("*.log"),
		parseGitignoreLine("!important.log"),
	}

	got := gp.exclusionPatterns()
	assert.Contains(t, got, "**/node_modules/**")
	assert.Contains(t, got, "**/*.log")
	for _, p := range got {
		assert.False(t, p == "important.log" || p == "**/important.log")
	}
}

func TestGitignoreParser_LoadGitignore(t *testing.T) {
	dir := t.TempDir()
	content := "# comment\n\nnode_modules/\n*.log\n!important.log\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(content), 0o644))

	gp := newGitignoreParser()
	require.NoError(t, gp.loadGitignore(dir))
	require.Len(t, gp.patterns, 3)

	got := gp.exclusionPatterns()
	assert.ElementsMatch(t, []string{"**/node_modules/**", "**/*.log"}, got)
}

func TestGitignoreParser_LoadGitignore_MissingFileIsNotError(t *testing.T) {
	gp := newGitignoreParser()
	assert.NoError(t, gp.loadGitignore(t.TempDir()))
	assert.Empty(t, gp.patterns)
}
