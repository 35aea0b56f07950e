// Package resolve implements the two-phase resolution engine: Phase A
// resolves a parsed file's RawRelations against that file's own symbols
// (FileScope.Imports is carried but not consulted); Phase B resolves whatever
// Phase A left unresolved against the committed Symbol Store's qualified-
// name index, with the deterministic tie-break spec.md §4.4 specifies, and
// materializes the inverse relation for every directed kind in the same
// commit. Grounded on internal/symbollinker/linker_engine.go's
// LinkSymbols/processFileLinks two-pass shape, generalized from its
// per-language resolver dispatch into the behavior.Policy abstraction.
package resolve

import (
	"sort"
	"strings"

	"github.com/codanna/codanna/internal/behavior"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/parse"
	"github.com/codanna/codanna/internal/store"
)

// Unresolved is a relation whose target name survived Phase A without a
// local match and is carried into Phase B.
type Unresolved struct {
	FromID      ids.SymbolID
	FromKind    store.SymbolKind // the caller's real kind, captured while Phase A still has it in scope
	FromContext string
	TargetName  string
	Kind        store.RelationKind
	Site        store.Range
	Language    string
	FromModule  string
}

// NameIndex is the read interface Phase B needs from the Symbol Store: a
// qualified/simple-name lookup over all committed symbols, independent of
// the store's write path so resolve has no write-time dependency.
type NameIndex interface {
	// ByName returns every committed symbol whose bare name equals name.
	ByName(name string) []store.Symbol
	// FileOf returns the FileID a symbol belongs to, and whether it's known.
	FileOf(id ids.SymbolID) (ids.FileID, bool)
	// Get returns the committed symbol for id, and whether it's known —
	// when known, Phase B takes the from side's kind from it instead of
	// Unresolved.FromKind.
	Get(id ids.SymbolID) (store.Symbol, bool)
}

// FileScope is the Phase A input for a single file: the symbols it defines
// (already assigned IDs by the caller) plus its raw relations and imports.
type FileScope struct {
	FileID    ids.FileID
	Language  string
	Symbols   []store.Symbol // this file's own symbols, ID-assigned
	Relations []parse.RawRelation
	Imports   []store.Import
}

// Result is Phase A's output for one file.
type Result struct {
	Relations  []store.Relation // locally resolved, endpoints already SymbolIDs
	Unresolved []Unresolved
}

// ResolveFile performs Phase A for a single file, resolving each target
// name by bare or qualified name against scope.Symbols only.
func ResolveFile(scope FileScope, allocator func() ids.RelationID) Result {
	policy := behavior.For(scope.Language)

	byName := map[string][]store.Symbol{}
	for _, s := range scope.Symbols {
		byName[s.Name] = append(byName[s.Name], s)
		byName[s.QualifiedName(policy.ModuleSeparator())] = append(byName[s.QualifiedName(policy.ModuleSeparator())], s)
	}

	res := Result{}
	for _, r := range scope.Relations {
		from := findByContext(scope.Symbols, r.FromName, r.FromContext)
		if from == nil {
			// the caller name itself isn't a known symbol (e.g. a package-
			// level init or anonymous scope); nothing to attach the
			// relation's source end to, so it can't be resolved at all.
			continue
		}
		candidates := byName[r.ToName]
		target := pickLocal(candidates, from.ID)
		if target == nil {
			res.Unresolved = append(res.Unresolved, Unresolved{
				FromID: from.ID, FromKind: from.Kind, FromContext: r.FromContext, TargetName: r.ToName,
				Kind: r.Kind, Site: r.Site, Language: scope.Language, FromModule: from.ModulePath,
			})
			continue
		}
		if !policy.IsCompatibleRelationship(r.Kind, from.Kind, target.Kind) {
			res.Unresolved = append(res.Unresolved, Unresolved{
				FromID: from.ID, FromKind: from.Kind, FromContext: r.FromContext, TargetName: r.ToName,
				Kind: r.Kind, Site: r.Site, Language: scope.Language, FromModule: from.ModulePath,
			})
			continue
		}
		res.Relations = append(res.Relations, store.Relation{
			ID: allocator(), From: from.ID, To: target.ID, Kind: r.Kind, Site: r.Site,
		})
	}
	return res
}

// findByContext resolves the "from" (caller) side of a raw relation. name
// alone is ambiguous whenever two symbols share a bare name in different
// scopes — e.g. two Go methods both named String on different receiver
// types — so a context match (receiver/enclosing-scope type, carried in
// RawRelation.FromContext as each symbol's ExtendsType) is preferred over a
// bare-name match whenever more than one candidate shares the name.
func findByContext(symbols []store.Symbol, name, context string) *store.Symbol {
	var bare *store.Symbol
	for i := range symbols {
		if symbols[i].Name != name {
			continue
		}
		if bare == nil {
			bare = &symbols[i]
		}
		if context != "" && symbols[i].ExtendsType == context {
			return &symbols[i]
		}
	}
	return bare
}

func pickLocal(candidates []store.Symbol, from ids.SymbolID) *store.Symbol {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ID < best.ID {
			best = c
		}
	}
	return &best
}

// CommitBatch is Phase B's output: the cross-file relations to insert,
// each paired with its mandatory inverse, plus the names that still
// couldn't be resolved (dropped, counted, never stored).
type CommitBatch struct {
	Relations        []store.Relation
	DroppedCount     int
}

// ResolveCrossFile performs Phase B over every unresolved record left by
// Phase A across the whole batch being committed, against idx (the
// committed-symbol name index). allocator mints RelationIDs for both the
// primary and inverse relation of each resolved pair.
func ResolveCrossFile(unresolved []Unresolved, idx NameIndex, allocator func() ids.RelationID) CommitBatch {
	var out CommitBatch
	seen := map[[4]string]bool{} // idempotence: (from,to,kind,site) de-dup

	for _, u := range unresolved {
		policy := behavior.For(u.Language)
		candidates := idx.ByName(u.TargetName)
		if len(candidates) == 0 {
			candidates = staticReceiverFallback(u, idx)
		}
		target := pickBest(candidates, u, idx)
		if target == nil {
			out.DroppedCount++
			continue
		}
		// u.FromKind was captured by Phase A from the real symbol, which is
		// the only guaranteed-available source: the caller's own symbol was
		// just staged into this same open batch and idx (the previously
		// committed snapshot) doesn't see it yet. idx.Get is still consulted
		// first, for callers that run Phase B against an already-committed
		// index (e.g. a per-file reindex), where it reflects the live kind.
		fromKind, toKind := u.FromKind, target.Kind
		if real, ok := idx.Get(u.FromID); ok {
			fromKind = real.Kind
		}
		if !policy.IsCompatibleRelationship(u.Kind, fromKind, toKind) {
			out.DroppedCount++
			continue
		}

		key := [4]string{u.FromID.String(), target.ID.String(), u.Kind.String(), rangeKey(u.Site)}
		if seen[key] {
			continue
		}
		seen[key] = true

		rel := store.Relation{ID: allocator(), From: u.FromID, To: target.ID, Kind: u.Kind, Site: u.Site}
		out.Relations = append(out.Relations, rel)
		if u.Kind.HasInverse() {
			out.Relations = append(out.Relations, store.Relation{
				ID: allocator(), From: target.ID, To: u.FromID, Kind: u.Kind.Inverse(), Site: u.Site,
			})
		}
	}
	return out
}

// staticReceiverFallback handles `Receiver.method` style names the Go
// parser emits for PascalCase-receiver calls: split on the last
// separator and search by the bare method name, since the full qualified
// string rarely matches the store's index verbatim.
func staticReceiverFallback(u Unresolved, idx NameIndex) []store.Symbol {
	sep := "."
	if strings.Contains(u.TargetName, "::") {
		sep = "::"
	}
	i := strings.LastIndex(u.TargetName, sep)
	if i < 0 {
		return nil
	}
	receiver := u.TargetName[:i]
	method := u.TargetName[i+len(sep):]
	var out []store.Symbol
	for _, s := range idx.ByName(method) {
		if strings.Contains(s.ModulePath, receiver) || s.ExtendsType == receiver || s.ExtendsType == "*"+receiver {
			out = append(out, s)
		}
	}
	return out
}

// pickBest applies spec.md §4.4's deterministic tie-break: same file, then
// matching enclosing module path, then visibility (public > package >
// private), then lowest SymbolID.
func pickBest(candidates []store.Symbol, u Unresolved, idx NameIndex) *store.Symbol {
	if len(candidates) == 0 {
		return nil
	}
	fromFile, _ := idx.FileOf(u.FromID)

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if (a.FileID == fromFile) != (b.FileID == fromFile) {
			return a.FileID == fromFile
		}
		aMod, bMod := a.ModulePath == u.FromModule, b.ModulePath == u.FromModule
		if aMod != bMod {
			return aMod
		}
		if a.Visibility != b.Visibility {
			return visibilityRank(a.Visibility) < visibilityRank(b.Visibility)
		}
		return a.ID < b.ID
	})
	best := candidates[0]
	return &best
}

func visibilityRank(v store.Visibility) int {
	switch v {
	case store.VisPublic:
		return 0
	case store.VisPackage:
		return 1
	case store.VisFile:
		return 1
	default:
		return 2
	}
}

func rangeKey(r store.Range) string {
	return itoa(r.StartLine) + ":" + itoa(r.StartCol) + "-" + itoa(r.EndLine) + ":" + itoa(r.EndCol)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
