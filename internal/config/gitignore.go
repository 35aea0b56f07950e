package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/codanna/codanna/internal/errs"
)

// gitignoreParser turns a .gitignore file's patterns into doublestar-style
// exclusion globs (the format internal/indexcoord already matches file paths
// against), rather than re-implementing its own path matcher: the parsing
// and negation/directory bookkeeping is the part worth keeping from a
// .gitignore reader, the matching engine is not — this project already has
// one, wired in indexcoord's scan loop.
type gitignoreParser struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
}

// newGitignoreParser creates an empty parser.
func newGitignoreParser() *gitignoreParser {
	return &gitignoreParser{}
}

// loadGitignore reads patterns from root/.gitignore. A missing file is not
// an error: most projects have no .gitignore, and RespectGitignore should be
// silently a no-op rather than fail config loading.
func (gp *gitignoreParser) loadGitignore(root string) error {
	path := filepath.Join(root, ".gitignore")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.NewConfigError("gitignore", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		gp.patterns = append(gp.patterns, parseGitignoreLine(line))
	}
	if err := scanner.Err(); err != nil {
		return errs.NewConfigError("gitignore", path, err)
	}
	return nil
}

// parseGitignoreLine strips a .gitignore line's modifiers (negation,
// directory-only trailing slash, root-anchored leading slash) and returns
// the cleaned pattern plus what each modifier means for glob conversion.
func parseGitignoreLine(line string) gitignorePattern {
	p := gitignorePattern{}

	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	}

	p.Pattern = line
	return p
}

// exclusionPatterns converts the parsed .gitignore into doublestar glob
// patterns suitable for Config.Exclude. Negated patterns (re-including a
// path under an otherwise-excluded directory) have no representation in a
// flat exclude list and are dropped rather than silently mis-applied.
func (gp *gitignoreParser) exclusionPatterns() []string {
	var out []string
	for _, p := range gp.patterns {
		if p.Negate {
			continue
		}
		if g := toGlobPattern(p); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func toGlobPattern(p gitignorePattern) string {
	if p.Directory {
		if p.Absolute {
			return p.Pattern + "/**"
		}
		return "**/" + p.Pattern + "/**"
	}
	if p.Absolute {
		return p.Pattern
	}
	return "**/" + p.Pattern
}
