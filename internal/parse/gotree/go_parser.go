// Package gotree is the bespoke Go Parser Layer implementation: a
// stateless-per-file tree-sitter walker emitting Symbol/RawRelation/Import
// records with no cross-file knowledge. Grounded on
// internal/symbollinker/go_extractor.go's recursive-descent shape (package
// clause -> imports -> scoped symbol walk), rewritten against this module's
// own store/ids/parse types.
package gotree

import (
	"fmt"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/parse"
	"github.com/codanna/codanna/internal/store"
)

var consumedKinds = []string{
	"package_clause", "import_declaration", "import_spec", "import_spec_list",
	"function_declaration", "method_declaration", "type_declaration", "type_spec",
	"struct_type", "interface_type", "field_declaration_list", "field_declaration",
	"const_declaration", "var_declaration", "call_expression", "selector_expression",
	"parameter_list", "parameter_declaration", "identifier", "type_identifier",
	"field_identifier", "package_identifier", "comment",
}

// Parser implements parse.Parser for Go source files.
type Parser struct{}

// New constructs a Go parser. A new instance is created per call site;
// Parser carries no state between Parse invocations.
func New() *Parser { return &Parser{} }

func (p *Parser) Language() string              { return "go" }
func (p *Parser) ConsumedNodeKinds() []string    { return consumedKinds }
func (p *Parser) FindVariableTypes([]byte) []parse.VariableType { return nil }

func sitterLang() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_go.Language())
}

func parse_(src []byte) *sitter.Tree {
	parser := sitter.NewParser()
	defer parser.Close()
	_ = parser.SetLanguage(sitterLang())
	return parser.Parse(src, nil)
}

type walker struct {
	src     []byte
	fileID  ids.FileID
	idsrc   parse.IDSource
	guard   *parse.DepthGuard
	scope   *parse.ScopeStack
	pkgName string

	// recvStack mirrors scope's push/pop depth one-for-one, carrying the
	// receiver type (empty for free functions/package scope) of whichever
	// function the walker is currently inside — the enclosing-scope context
	// that disambiguates two identically named methods on different types.
	recvStack []string

	symbols   []store.Symbol
	relations []parse.RawRelation
	imports   []store.Import
}

func (p *Parser) Parse(src []byte, file ids.FileID, idsrc parse.IDSource) parse.ParseResult {
	tree := parse_(src)
	if tree == nil {
		return parse.ParseResult{ParseErr: fmt.Errorf("gotree: failed to parse")}
	}
	defer tree.Close()
	root := tree.RootNode()
	if root == nil {
		return parse.ParseResult{ParseErr: fmt.Errorf("gotree: nil root node")}
	}

	w := &walker{src: src, fileID: file, idsrc: idsrc, guard: parse.NewDepthGuard()}
	w.pkgName = w.packageName(root)
	w.scope = parse.NewScopeStack(w.pkgName)
	w.recvStack = []string{""}

	w.walk(root)

	return parse.ParseResult{Symbols: w.symbols, Relations: w.relations, Imports: w.imports}
}

func (w *walker) packageName(root *sitter.Node) string {
	clause := parse.FindChild(root, "package_clause")
	if clause == nil {
		return ""
	}
	ident := parse.FindChild(clause, "package_identifier")
	return parse.NodeText(ident, w.src)
}

func (w *walker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	if !w.guard.Enter() {
		w.guard.Exit()
		return
	}
	defer w.guard.Exit()

	switch n.Kind() {
	case "import_declaration":
		w.extractImports(n)
		return // imports have no further symbols inside
	case "function_declaration":
		w.extractFunc(n, false)
		return
	case "method_declaration":
		w.extractFunc(n, true)
		return
	case "type_declaration":
		w.extractTypeDecl(n)
		return
	case "const_declaration", "var_declaration":
		w.extractValueDecl(n, n.Kind() == "const_declaration")
	case "call_expression":
		w.extractCall(n)
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		w.walk(n.Child(i))
	}
}

func (w *walker) extractImports(decl *sitter.Node) {
	specs := parse.FindChild(decl, "import_spec_list")
	var list []*sitter.Node
	if specs != nil {
		list = parse.FindChildren(specs, "import_spec")
	} else if s := parse.FindChild(decl, "import_spec"); s != nil {
		list = []*sitter.Node{s}
	}
	for _, spec := range list {
		imp := store.Import{FileID: w.fileID, Range: parse.NodeRange(spec), Kind: store.ImportNormal}
		for i := uint(0); i < spec.ChildCount(); i++ {
			c := spec.Child(i)
			if c == nil {
				continue
			}
			switch c.Kind() {
			case "interpreted_string_literal", "raw_string_literal":
				txt := parse.NodeText(c, w.src)
				if len(txt) >= 2 {
					imp.RawPath = txt[1 : len(txt)-1]
					imp.ResolvedPath = imp.RawPath
				}
			case "package_identifier":
				imp.Alias = parse.NodeText(c, w.src)
			case "blank_identifier":
				imp.Alias = "_"
			case "dot":
				imp.Alias = "."
				imp.IsGlob = true
			}
		}
		if imp.RawPath != "" {
			w.imports = append(w.imports, imp)
		}
	}
}

func (w *walker) extractFunc(n *sitter.Node, isMethod bool) {
	nameNode := parse.FindChild(n, "identifier")
	if nameNode == nil {
		nameNode = parse.FindChild(n, "field_identifier")
	}
	if nameNode == nil {
		return
	}
	name := parse.NodeText(nameNode, w.src)

	kind := store.KindFunction
	extendsType := ""
	if isMethod {
		kind = store.KindMethod
		extendsType = w.receiverType(n)
	}

	sym := store.Symbol{
		ID:          w.idsrc.NextSymbol(),
		Name:        name,
		Kind:        kind,
		Language:    "go",
		Visibility:  visibilityOf(name),
		ModulePath:  w.pkgName,
		FileID:      w.fileID,
		Range:       parse.NodeRange(n),
		Signature:   parse.Signature(n, w.src, "body"),
		Doc:         parse.ParseDocComment(parse.PrecedingDoc(n, w.src)),
		ExtendsType: extendsType,
	}
	w.symbols = append(w.symbols, sym)
	w.relations = append(w.relations, parse.RawRelation{
		FromContext: w.pkgName, FromName: w.scope.Current(), ToName: name,
		Kind: store.RelDefines, Site: sym.Range,
	})

	w.scope.Push(name)
	w.recvStack = append(w.recvStack, extendsType)
	body := n.ChildByFieldName("body")
	if body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			w.walk(body.Child(i))
		}
	}
	w.recvStack = w.recvStack[:len(w.recvStack)-1]
	w.scope.Pop()
}

// currentRecv returns the receiver type of the function/method the walker
// is currently inside, or "" at package scope or inside a free function.
func (w *walker) currentRecv() string {
	return w.recvStack[len(w.recvStack)-1]
}

func (w *walker) receiverType(n *sitter.Node) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := uint(0); i < recv.ChildCount(); i++ {
		param := recv.Child(i)
		if param == nil || param.Kind() != "parameter_declaration" {
			continue
		}
		if t := parse.FindChild(param, "type_identifier"); t != nil {
			return parse.NodeText(t, w.src)
		}
		if ptr := parse.FindChild(param, "pointer_type"); ptr != nil {
			if t := parse.FindChild(ptr, "type_identifier"); t != nil {
				return "*" + parse.NodeText(t, w.src)
			}
		}
	}
	return ""
}

func (w *walker) extractTypeDecl(n *sitter.Node) {
	for i := uint(0); i < n.ChildCount(); i++ {
		spec := n.Child(i)
		if spec == nil || spec.Kind() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := parse.NodeText(nameNode, w.src)
		typeNode := spec.ChildByFieldName("type")

		kind := store.KindTypeAlias
		if typeNode != nil {
			switch typeNode.Kind() {
			case "struct_type":
				kind = store.KindStruct
			case "interface_type":
				kind = store.KindInterface
			}
		}

		sym := store.Symbol{
			ID: w.idsrc.NextSymbol(), Name: name, Kind: kind, Language: "go",
			Visibility: visibilityOf(name), ModulePath: w.pkgName, FileID: w.fileID,
			Range: parse.NodeRange(spec), Signature: parse.Signature(spec, w.src, ""),
			Doc: parse.ParseDocComment(parse.PrecedingDoc(n, w.src)),
		}
		w.symbols = append(w.symbols, sym)
		w.relations = append(w.relations, parse.RawRelation{
			FromContext: w.pkgName, FromName: w.pkgName, ToName: name,
			Kind: store.RelDefines, Site: sym.Range,
		})

		if kind == store.KindStruct && typeNode != nil {
			w.extractFields(name, typeNode)
		}
	}
}

// extractFields walks a struct_type's fields: an embedded field (one with no
// field name, just a type) is Go's analog of extends/inheritance — it
// promotes the embedded type's methods. A named field referencing another
// declared type is a uses relation (composition).
func (w *walker) extractFields(owner string, structType *sitter.Node) {
	fields := parse.FindChild(structType, "field_declaration_list")
	if fields == nil {
		return
	}
	for i := uint(0); i < fields.ChildCount(); i++ {
		field := fields.Child(i)
		if field == nil || field.Kind() != "field_declaration" {
			continue
		}
		nameNode := field.ChildByFieldName("name")
		typeNode := field.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		typeName := baseTypeName(typeNode, w.src)
		if typeName == "" {
			continue
		}
		site := parse.NodeRange(field)
		if nameNode == nil {
			// embedded field: field identifier IS the type name
			w.relations = append(w.relations, parse.RawRelation{
				FromContext: w.pkgName, FromName: owner, ToName: typeName,
				Kind: store.RelExtends, Site: site,
			})
		} else {
			w.relations = append(w.relations, parse.RawRelation{
				FromContext: w.pkgName, FromName: owner, ToName: typeName,
				Kind: store.RelUses, Site: site,
			})
		}
	}
}

func baseTypeName(n *sitter.Node, src []byte) string {
	switch n.Kind() {
	case "type_identifier":
		return parse.NodeText(n, src)
	case "pointer_type":
		if c := n.Child(n.ChildCount() - 1); c != nil {
			return baseTypeName(c, src)
		}
	case "qualified_type":
		if name := n.ChildByFieldName("name"); name != nil {
			return parse.NodeText(name, src)
		}
	}
	return ""
}

func (w *walker) extractValueDecl(n *sitter.Node, isConst bool) {
	for i := uint(0); i < n.ChildCount(); i++ {
		spec := n.Child(i)
		if spec == nil || (spec.Kind() != "const_spec" && spec.Kind() != "var_spec") {
			continue
		}
		for j := uint(0); j < spec.ChildCount(); j++ {
			ident := spec.Child(j)
			if ident == nil || ident.Kind() != "identifier" {
				continue
			}
			name := parse.NodeText(ident, w.src)
			kind := store.KindVariable
			if isConst {
				kind = store.KindConstant
			}
			w.symbols = append(w.symbols, store.Symbol{
				ID: w.idsrc.NextSymbol(), Name: name, Kind: kind, Language: "go",
				Visibility: visibilityOf(name), ModulePath: w.pkgName, FileID: w.fileID,
				Range: parse.NodeRange(ident), Signature: parse.Signature(spec, w.src, ""),
			})
		}
	}
}

// extractCall records a calls relation. The callee name is either a bare
// identifier (local/package-level call) or the selector's field (method
// call); a PascalCase object in a selector is treated as a type reference
// (static call) per spec.md §4.2's C-family receiver heuristic, generalized
// to Go's exported-identifier convention.
func (w *walker) extractCall(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	site := parse.NodeRange(n)
	caller := w.scope.Current()
	callerCtx := w.currentRecv()

	switch fn.Kind() {
	case "identifier":
		callee := parse.NodeText(fn, w.src)
		w.relations = append(w.relations, parse.RawRelation{
			FromContext: callerCtx, FromName: caller, ToName: callee,
			Kind: store.RelCalls, Site: site,
		})
	case "selector_expression":
		obj := fn.ChildByFieldName("operand")
		field := fn.ChildByFieldName("field")
		if field == nil {
			return
		}
		method := parse.NodeText(field, w.src)
		callee := method
		if obj != nil && obj.Kind() == "identifier" {
			objName := parse.NodeText(obj, w.src)
			if isExported(objName) {
				// PascalCase receiver: package-qualified or static-style call.
				callee = objName + "." + method
			}
		}
		w.relations = append(w.relations, parse.RawRelation{
			FromContext: callerCtx, FromName: caller, ToName: callee,
			Kind: store.RelCalls, Site: site,
		})
	}
}

func visibilityOf(name string) store.Visibility {
	if isExported(name) {
		return store.VisPublic
	}
	return store.VisPackage
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

// --- legacy/façade finders: re-derive the same information by re-parsing,
// since each is independently re-entrant per spec.md §4.2. ---

func (p *Parser) FindCalls(src []byte) []parse.CallSite {
	res := p.Parse(src, 0, noopIDs{})
	out := make([]parse.CallSite, 0, len(res.Relations))
	for _, r := range res.Relations {
		if r.Kind == store.RelCalls {
			out = append(out, parse.CallSite{Caller: r.FromName, Callee: r.ToName, Site: r.Site})
		}
	}
	return out
}

func (p *Parser) FindMethodCalls(src []byte) []parse.MethodCall {
	res := p.Parse(src, 0, noopIDs{})
	out := make([]parse.MethodCall, 0)
	for _, r := range res.Relations {
		if r.Kind != store.RelCalls {
			continue
		}
		if idx := lastDot(r.ToName); idx >= 0 {
			recv := r.ToName[:idx]
			method := r.ToName[idx+1:]
			kind := parse.ReceiverInstance
			if isExported(recv) {
				kind = parse.ReceiverStatic
			}
			out = append(out, parse.MethodCall{Caller: r.FromName, Method: method, Receiver: kind, ReceiverType: recv, Site: r.Site})
		}
	}
	return out
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func (p *Parser) FindImplementations(src []byte) []parse.TypeRelation {
	// Go interfaces are satisfied structurally; this requires full type
	// checking which is out of scope (spec.md §1 Non-goals). Returns none.
	return nil
}

func (p *Parser) FindExtends(src []byte) []parse.TypeRelation {
	res := p.Parse(src, 0, noopIDs{})
	return relationsOfKind(res, store.RelExtends)
}

func (p *Parser) FindUses(src []byte) []parse.TypeRelation {
	res := p.Parse(src, 0, noopIDs{})
	return relationsOfKind(res, store.RelUses)
}

func (p *Parser) FindDefines(src []byte) []parse.TypeRelation {
	res := p.Parse(src, 0, noopIDs{})
	return relationsOfKind(res, store.RelDefines)
}

func relationsOfKind(res parse.ParseResult, k store.RelationKind) []parse.TypeRelation {
	out := make([]parse.TypeRelation, 0)
	for _, r := range res.Relations {
		if r.Kind == k {
			out = append(out, parse.TypeRelation{From: r.FromName, To: r.ToName, Site: r.Site})
		}
	}
	return out
}

func (p *Parser) FindImports(src []byte, file ids.FileID) []store.Import {
	res := p.Parse(src, file, noopIDs{})
	return res.Imports
}

type noopIDs struct{}

func (noopIDs) NextSymbol() ids.SymbolID { return 0 }
