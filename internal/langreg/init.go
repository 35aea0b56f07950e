package langreg

import (
	"github.com/codanna/codanna/internal/behavior"
	"github.com/codanna/codanna/internal/parse/gotree"
)

// init registers every language this build ships a Parser Layer for, in a
// fixed order, so iteration and extension lookup are deterministic across
// runs. Adding a language is adding one Descriptor here; nothing else in
// the Index Coordinator or Query Layer names a language directly.
func init() {
	Register(Descriptor{
		ID:             "go",
		DisplayName:    "Go",
		Extensions:     []string{".go"},
		DefaultEnabled: true,
		Capabilities: Capabilities{
			SupportsTraitsOrInterfaces: true,
			SupportsInherentMethods:    true,
			SupportsEmbeddedTypes:      true,
			SupportsGenerics:           true,
		},
		NewParser:   func() any { return gotree.New() },
		NewBehavior: func() any { return behavior.For("go") },
	})
}
