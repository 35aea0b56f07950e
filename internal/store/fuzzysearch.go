package store

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// ngramMin/ngramMax bound the n-gram sizes indexed per symbol name
// (spec.md §4.5: ngram 3-10), grounded on internal/core/trigram.go's
// fixed-trigram approach but generalized to a size range so short names
// (len < 3) and longer camelCase/snake_case names both index usefully.
const (
	ngramMin = 3
	ngramMax = 10
)

// ngramIndex maps an n-gram to the set of symbol names containing it, the
// fuzzy-search counterpart to snapshot.byName's exact-match index.
type ngramIndex map[string]map[string]bool

func buildNgramIndex(snap *snapshot) ngramIndex {
	idx := make(ngramIndex)
	for name := range snap.byName {
		for _, gram := range ngrams(name) {
			set, ok := idx[gram]
			if !ok {
				set = make(map[string]bool)
				idx[gram] = set
			}
			set[name] = true
		}
	}
	return idx
}

func ngrams(s string) []string {
	lower := strings.ToLower(s)
	runes := []rune(lower)
	var out []string
	for n := ngramMin; n <= ngramMax && n <= len(runes); n++ {
		for i := 0; i+n <= len(runes); i++ {
			out = append(out, string(runes[i:i+n]))
		}
	}
	if len(out) == 0 && len(runes) > 0 {
		out = append(out, lower) // name shorter than ngramMin: index whole name
	}
	return out
}

// FuzzyMatch is one fuzzy_search result: the matched symbol plus its
// similarity score in [0,1].
type FuzzyMatch struct {
	Symbol Symbol
	Score  float64
}

// FuzzySearch finds symbols whose name is a likely typo or partial match
// of query: an n-gram prefilter narrows the candidate set, then
// whole-word Levenshtein similarity (via go-edlib, the same library
// internal/semantic/fuzzy_matcher.go uses for its Jaro-Winkler path)
// ranks and filters by minScore. Results are sorted by score descending,
// ties broken by lowest SymbolID for determinism.
func (s *Store) FuzzySearch(query string, minScore float64, limit int) []FuzzyMatch {
	snap := s.snap()
	idx := buildNgramIndex(snap)

	candidates := map[string]bool{}
	for _, gram := range ngrams(query) {
		for name := range idx[gram] {
			candidates[name] = true
		}
	}
	if len(candidates) == 0 {
		// fall back to a full scan for very short queries with no indexed
		// n-gram overlap (e.g. a 1-2 char query against longer names).
		for name := range snap.byName {
			candidates[name] = true
		}
	}

	lowerQuery := strings.ToLower(query)
	var matches []FuzzyMatch
	for name := range candidates {
		score := nameSimilarity(lowerQuery, strings.ToLower(name))
		if score < minScore {
			continue
		}
		for _, id := range snap.byName[name] {
			if sidx, ok := snap.index[id]; ok {
				matches = append(matches, FuzzyMatch{Symbol: *snap.data[sidx], Score: score})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Symbol.ID < matches[j].Symbol.ID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0.0
	}
	return float64(dist)
}
