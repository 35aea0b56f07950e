// Shared tree-sitter node helpers for the bespoke language walkers (today
// only gotree).
// Grounded on internal/symbollinker/extractor.go's GetNodeText /
// GetNodeLocation / FindChildByType free functions.
package parse

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codanna/codanna/internal/store"
)

// NodeText extracts a node's exact source slice. All substring extraction
// in this module operates on the byte ranges tree-sitter reports, which are
// always on UTF-8 character boundaries for node starts/ends — tree-sitter
// never splits a multi-byte rune across a node boundary, so no additional
// clamping is needed here. Callers that probe a *window* around a node
// (rather than the node's own span) must clamp with ClampUTF8 below.
func NodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start > uint(len(src)) || end > uint(len(src)) || start > end {
		return ""
	}
	return string(src[start:end])
}

// NodeRange converts a node's tree-sitter position (0-indexed) into a
// store.Range (also 0-indexed; the query layer adds 1 for display).
func NodeRange(n *sitter.Node) store.Range {
	if n == nil {
		return store.Range{}
	}
	s, e := n.StartPosition(), n.EndPosition()
	return store.Range{
		StartLine: int(s.Row),
		StartCol:  int(s.Column),
		EndLine:   int(e.Row),
		EndCol:    int(e.Column),
	}
}

// ClampUTF8 moves idx backward until it lands on a UTF-8 character boundary
// of src, for any context-window probing that isn't anchored to a node's
// own (always-valid) start/end byte offsets.
func ClampUTF8(src []byte, idx int) int {
	if idx <= 0 {
		return 0
	}
	if idx >= len(src) {
		return len(src)
	}
	for idx > 0 && isUTF8Continuation(src[idx]) {
		idx--
	}
	return idx
}

func isUTF8Continuation(b byte) bool { return b&0xC0 == 0x80 }

// docCommentKinds lists the node kinds treated as doc comments when found
// as a node's immediately preceding sibling. Grounded on
// internal/parser/unified_extractor.go's extractDocCommentBeforeNode.
var docCommentKinds = map[string]bool{"comment": true, "line_comment": true, "block_comment": true}

// PrecedingDoc returns the raw text of n's previous sibling if that sibling
// is a comment node, else "".
func PrecedingDoc(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	prev := n.PrevSibling()
	if prev == nil || !docCommentKinds[prev.Kind()] {
		return ""
	}
	return NodeText(prev, src)
}

// FindChild returns the first direct child of the given kind.
func FindChild(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// FindChildren returns every direct child of the given kind.
func FindChildren(n *sitter.Node, kind string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// Signature extracts the normalized one-line signature: the source slice
// from node.StartByte() to the start of its body field (or the whole node
// if there is no body), trimmed of surrounding whitespace, with the body
// itself excluded (spec.md §4.2).
func Signature(n *sitter.Node, src []byte, bodyFieldName string) string {
	if n == nil {
		return ""
	}
	end := n.EndByte()
	if body := n.ChildByFieldName(bodyFieldName); body != nil {
		end = body.StartByte()
	}
	start := n.StartByte()
	if start > uint(len(src)) || end > uint(len(src)) || start > end {
		return trimSig(NodeText(n, src))
	}
	return trimSig(string(src[start:end]))
}

func trimSig(s string) string {
	i, j := 0, len(s)
	for i < j && isSigSpace(s[i]) {
		i++
	}
	for j > i && isSigSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isSigSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
