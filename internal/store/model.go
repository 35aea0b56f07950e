// Package store implements the full-text and structured Symbol Store: the
// authoritative name -> SymbolID mapping, symbol/relation persistence, and
// the hybrid fuzzy search over symbol names. Package model types (Symbol,
// Relation, Import, DocComment, FileRecord) are defined here so the parser
// layer can build them directly without importing the store's write path.
package store

import (
	"github.com/codanna/codanna/internal/ids"
)

// SymbolKind enumerates the kinds of program entity a Symbol can name.
// Grounded on internal/types/types.go's SymbolType, trimmed and renamed to
// the vocabulary spec.md §3 uses.
type SymbolKind uint8

const (
	KindFunction SymbolKind = iota
	KindMethod
	KindClass
	KindStruct
	KindInterface
	KindTrait
	KindEnum
	KindEnumMember
	KindField
	KindProperty
	KindConstant
	KindVariable
	KindTypeAlias
	KindModule
	KindNamespace
	KindMacro
	KindEvent
	KindLambda
	KindExternalType
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	case KindEnumMember:
		return "enum-member"
	case KindField:
		return "field"
	case KindProperty:
		return "property"
	case KindConstant:
		return "constant"
	case KindVariable:
		return "variable"
	case KindTypeAlias:
		return "type-alias"
	case KindModule:
		return "module"
	case KindNamespace:
		return "namespace"
	case KindMacro:
		return "macro"
	case KindEvent:
		return "event"
	case KindLambda:
		return "lambda"
	case KindExternalType:
		return "external-type"
	default:
		return "unknown"
	}
}

// Visibility is the access scope of a Symbol.
type Visibility uint8

const (
	VisPublic Visibility = iota
	VisPackage            // crate/package-visible
	VisPrivate
	VisFile // file-scoped (e.g. Java/Kotlin package-private-at-file, internal `file` modifiers)
)

func (v Visibility) String() string {
	switch v {
	case VisPublic:
		return "public"
	case VisPackage:
		return "package"
	case VisPrivate:
		return "private"
	case VisFile:
		return "file"
	default:
		return "unknown"
	}
}

// Range is a half-open source span using 0-indexed line/column pairs, the
// same convention tree-sitter node positions use.
type Range struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// TypeParameter is a generic type parameter, e.g. T in func Foo[T any]().
type TypeParameter struct {
	Name       string
	Constraint string
}

// DocComment is the best-effort structured parse of a symbol's documentation
// comment. Raw is always retained even when structuring fails.
type DocComment struct {
	Summary string
	Remarks string
	Params  []DocParam
	Returns string
	Throws  []DocThrow
	SeeAlso []string
	Raw     string
}

type DocParam struct {
	Name string
	Text string
}

type DocThrow struct {
	Exception string
	Text      string
}

// Symbol is a named, located, kinded program entity. Invariant (see
// spec.md §3): (FileID, Range.StartLine, Range.StartCol, Name, Kind) is
// unique; renaming or moving a symbol deletes the old record first.
type Symbol struct {
	ID             ids.SymbolID
	Name           string
	Kind           SymbolKind
	Language       string
	Visibility     Visibility
	ModulePath     string
	FileID         ids.FileID
	Range          Range
	Signature      string
	Doc            *DocComment
	ExtendsType    string // set for extension/receiver methods
	TypeParameters []TypeParameter
}

// QualifiedName returns the language-formatted module-path-qualified name,
// e.g. "pkg::Type::method" or "pkg.Type.method" depending on the language's
// module separator.
func (s Symbol) QualifiedName(sep string) string {
	if s.ModulePath == "" {
		return s.Name
	}
	return s.ModulePath + sep + s.Name
}

// RelationKind enumerates the directed relationship kinds between two
// symbols. Every kind except RelImports has an inverse, materialized in the
// same commit as the relation itself.
type RelationKind uint8

const (
	RelCalls RelationKind = iota
	RelCalledBy
	RelImplements
	RelImplementedBy
	RelExtends
	RelExtendedBy
	RelUses
	RelUsedBy
	RelDefines
	RelDefinedBy
	RelImports
)

func (k RelationKind) String() string {
	switch k {
	case RelCalls:
		return "calls"
	case RelCalledBy:
		return "called-by"
	case RelImplements:
		return "implements"
	case RelImplementedBy:
		return "implemented-by"
	case RelExtends:
		return "extends"
	case RelExtendedBy:
		return "extended-by"
	case RelUses:
		return "uses"
	case RelUsedBy:
		return "used-by"
	case RelDefines:
		return "defines"
	case RelDefinedBy:
		return "defined-by"
	case RelImports:
		return "imports"
	default:
		return "unknown"
	}
}

// Inverse returns the inverse relation kind materialized alongside this one
// at commit time. Imports have no inverse; calling Inverse on RelImports
// panics, callers must not materialize an inverse for import relations.
func (k RelationKind) Inverse() RelationKind {
	switch k {
	case RelCalls:
		return RelCalledBy
	case RelCalledBy:
		return RelCalls
	case RelImplements:
		return RelImplementedBy
	case RelImplementedBy:
		return RelImplements
	case RelExtends:
		return RelExtendedBy
	case RelExtendedBy:
		return RelExtends
	case RelUses:
		return RelUsedBy
	case RelUsedBy:
		return RelUses
	case RelDefines:
		return RelDefinedBy
	case RelDefinedBy:
		return RelDefines
	default:
		panic("store: relation kind has no inverse")
	}
}

// HasInverse reports whether this kind is materialized with an inverse pair.
func (k RelationKind) HasInverse() bool { return k != RelImports }

// Relation is a directed, kinded link between two resolved symbols.
type Relation struct {
	ID   ids.RelationID
	From ids.SymbolID
	To   ids.SymbolID
	Kind RelationKind
	Site Range
}

// ImportKind enumerates the different forms an Import can take.
type ImportKind uint8

const (
	ImportNormal ImportKind = iota
	ImportStatic
	ImportGlobal
	ImportAlias
)

// Import is a per-file record describing one import statement. Imports feed
// Phase A resolution scopes; they are never relations themselves.
type Import struct {
	RawPath      string
	ResolvedPath string
	Alias        string
	IsTypeOnly   bool
	IsGlob       bool
	Kind         ImportKind
	Range        Range
	FileID       ids.FileID
}

// FileRecord is the atomically-replaced unit of a file's contribution to the
// index: its canonical path, content hash, language, and the set of symbol
// IDs it defines.
type FileRecord struct {
	ID            ids.FileID
	Path          string // workspace-relative, canonical
	ContentHash   string
	Language      string
	LastIndexed   int64 // unix seconds
	SymbolIDs     []ids.SymbolID
	HasParseError bool
}
