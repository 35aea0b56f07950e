// Package behavior holds the per-language Behavior Policy objects spec.md
// §4.3 describes: small, stateless rule sets each Parser Layer walker and
// the resolution engine consult for things that differ language to
// language — visibility parsing, module-path formatting, resolution
// scoping order, and which relationship kinds a pair of symbols may form.
// Grounded on internal/symbollinker/extractor.go's CommonVisibilityRules
// and the per-language *_resolver.go files' import/scope handling,
// generalized into one struct-of-functions policy per language instead of
// scattered free functions.
package behavior

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codanna/codanna/internal/store"
)

// Capabilities reports which relation kinds and parser features a language
// actually supports, so the resolver and node-coverage audit don't treat an
// absence as a bug.
type Capabilities struct {
	HasInheritance   bool // class/struct extends or interface implements
	HasInterfaces    bool
	HasGenerics      bool
	HasVisibility    bool // language has more than one visibility level
	ModuleSeparator  string
}

// Policy is the per-language behavior contract. All methods are pure
// functions of their inputs; a Policy carries no per-file state.
type Policy interface {
	Language() string
	Capabilities() Capabilities

	// ParseVisibility determines a symbol's Visibility from its name and
	// declaration node, following the language's export convention.
	ParseVisibility(name string, node *sitter.Node, src []byte) store.Visibility

	// ModuleSeparator returns the token placed between a symbol's module
	// path and its name when formatting its qualified name (e.g. "::", ".").
	ModuleSeparator() string

	// FormatModulePath joins the package/namespace segments a parser
	// collected while walking with the language's own path separator (Go
	// uses "/", the default policy ".").
	FormatModulePath(segments []string) string

	// ResolutionOrder lists the scopes Phase A resolution checks, nearest
	// first: e.g. ["local", "file", "imports", "package"].
	ResolutionOrder() []string

	// IsCompatibleRelationship reports whether a raw relation of this kind
	// is meaningful between two symbols of the given kinds — e.g. RelExtends
	// between two KindInterface symbols is fine, between two KindFunction
	// symbols it is not and should be dropped rather than linked.
	IsCompatibleRelationship(kind store.RelationKind, fromKind, toKind store.SymbolKind) bool
}

var registry = map[string]Policy{}

// Register adds a language's Policy to the global registry. Called from
// each language package's init().
func Register(p Policy) { registry[p.Language()] = p }

// For returns the Policy registered for language, or the permissive
// defaultPolicy if none is registered.
func For(language string) Policy {
	if p, ok := registry[language]; ok {
		return p
	}
	return defaultPolicy{lang: language}
}

// defaultPolicy is used for any language without a dedicated Policy (e.g.
// languages served only by the generic query-driven parser). It treats
// every symbol as package-visible and every relationship as compatible,
// so missing policy coverage degrades gracefully instead of dropping data.
type defaultPolicy struct{ lang string }

func (d defaultPolicy) Language() string { return d.lang }
func (d defaultPolicy) Capabilities() Capabilities {
	return Capabilities{HasInheritance: true, HasInterfaces: true, ModuleSeparator: "."}
}
func (d defaultPolicy) ParseVisibility(string, *sitter.Node, []byte) store.Visibility {
	return store.VisPublic
}
func (d defaultPolicy) ModuleSeparator() string { return "." }
func (d defaultPolicy) FormatModulePath(segments []string) string {
	return joinNonEmpty(segments, ".")
}
func (d defaultPolicy) ResolutionOrder() []string {
	return []string{"local", "file", "imports", "package"}
}
func (d defaultPolicy) IsCompatibleRelationship(store.RelationKind, store.SymbolKind, store.SymbolKind) bool {
	return true
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out == "" {
			out = p
		} else {
			out += sep + p
		}
	}
	return out
}
