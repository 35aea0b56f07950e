package parse

import (
	"strings"

	"github.com/codanna/codanna/internal/store"
)

// ParseDocComment best-effort structures a raw doc-comment block into
// summary/remarks/params/returns/throws/see-also, retaining raw regardless
// of whether structuring succeeds. Returns nil for an empty/whitespace-only
// comment. Grounded on internal/parser/unified_extractor.go's
// extractDocCommentBeforeNode, which only retrieves the raw text; the
// tag-line splitting here is new logic directly implementing spec.md §3's
// DocComment (parsed) shape, since no example repo parses Javadoc/rustdoc
// style tags structurally.
func ParseDocComment(raw string) *store.DocComment {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	lines := stripCommentMarkers(raw)

	d := &store.DocComment{Raw: raw}
	var summary []string
	var remarks []string
	section := &summary

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "@param "), strings.HasPrefix(trimmed, "Args:"):
			name, text := splitTag(trimmed, "@param")
			if name != "" {
				d.Params = append(d.Params, store.DocParam{Name: name, Text: text})
			}
			section = &remarks
		case strings.HasPrefix(trimmed, "@return"), strings.HasPrefix(trimmed, "Returns:"):
			_, text := splitTag(trimmed, "@return")
			d.Returns = strings.TrimSpace(joinNonEmpty(d.Returns, text))
		case strings.HasPrefix(trimmed, "@throws "), strings.HasPrefix(trimmed, "@raises "):
			name, text := splitTag(trimmed, "@throws")
			if name == "" {
				name, text = splitTag(trimmed, "@raises")
			}
			if name != "" {
				d.Throws = append(d.Throws, store.DocThrow{Exception: name, Text: text})
			}
		case strings.HasPrefix(trimmed, "@see "):
			d.SeeAlso = append(d.SeeAlso, strings.TrimSpace(strings.TrimPrefix(trimmed, "@see ")))
		case trimmed == "":
			if section == &summary {
				section = &remarks
			}
		default:
			*section = append(*section, trimmed)
		}
	}

	d.Summary = strings.Join(summary, " ")
	d.Remarks = strings.Join(remarks, " ")
	return d
}

func splitTag(line, tag string) (name, text string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, tag))
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	name = parts[0]
	if len(parts) == 2 {
		text = strings.TrimSpace(parts[1])
	}
	return name, text
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " " + b
}

// stripCommentMarkers removes //, #, /* */, and leading * continuation
// markers so the per-line tag scanner above sees plain text.
func stripCommentMarkers(raw string) []string {
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*!")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")

	rawLines := strings.Split(raw, "\n")
	out := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "///")
		l = strings.TrimPrefix(l, "//!")
		l = strings.TrimPrefix(l, "//")
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimPrefix(l, "#")
		out = append(out, strings.TrimSpace(l))
	}
	return out
}
