package behavior

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codanna/codanna/internal/store"
)

func init() { Register(goPolicy{}) }

// goPolicy is grounded on CommonVisibilityRules.GoCapitalization and
// go_resolver.go's package-then-import resolution order.
type goPolicy struct{}

func (goPolicy) Language() string { return "go" }

func (goPolicy) Capabilities() Capabilities {
	return Capabilities{
		HasInheritance:  true, // struct embedding
		HasInterfaces:   true,
		HasGenerics:     true,
		HasVisibility:   true,
		ModuleSeparator: ".",
	}
}

func (goPolicy) ParseVisibility(name string, _ *sitter.Node, _ []byte) store.Visibility {
	if len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z' {
		return store.VisPublic
	}
	return store.VisPackage
}

func (goPolicy) ModuleSeparator() string { return "." }

func (goPolicy) FormatModulePath(segments []string) string {
	return joinNonEmpty(segments, "/")
}

func (goPolicy) ResolutionOrder() []string {
	return []string{"local", "file", "package", "imports"}
}

func (goPolicy) IsCompatibleRelationship(kind store.RelationKind, fromKind, toKind store.SymbolKind) bool {
	switch kind {
	case store.RelExtends, store.RelExtendedBy:
		// struct embedding only; Go has no class hierarchy
		return fromKind == store.KindStruct
	case store.RelImplements, store.RelImplementedBy:
		// structural satisfaction isn't tracked by the parser layer (spec
		// Non-goal); no RawRelation of this kind is ever emitted for go.
		return false
	default:
		return true
	}
}
