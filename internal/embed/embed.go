// Package embed defines the Embedder contract the Embedding Pipeline uses
// to turn a symbol's doc comment and signature into a fixed-width vector,
// plus a deterministic, network-free default implementation so the core
// engine never depends on an external embedding provider (spec.md's
// transport/plugin boundary keeps real provider SDKs out of this
// package's scope). Grounded on internal/knowledge/embed.go's
// GenerateEmbedding/CosineSimilarity shape, with the OpenAI client call
// replaced by a local hashing embedder and the provider interface kept.
package embed

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder turns text into a fixed-dimension embedding vector. A real
// provider-backed implementation (network calls, batching, rate limits)
// is an external collaborator wired in at the command layer; this
// interface is what the Embedding Pipeline depends on.
type Embedder interface {
	// Embed returns a vector for text. Implementations must be safe for
	// concurrent use.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the fixed vector width this embedder produces.
	Dimensions() int
	// ModelID identifies the model/version, persisted in the vector store
	// header so a dimension or model change is detected and triggers a
	// full re-embed rather than silently mixing incompatible vectors.
	ModelID() string
}

// DefaultDimensions is the vector width the local hashing embedder
// produces; chosen to match a common small embedding model's width so
// downstream code need not special-case the local default.
const DefaultDimensions = 384

// LocalEmbedder is a deterministic, hash-based embedder requiring no
// network access. It is not semantically meaningful the way a trained
// model's embeddings are — near-duplicate text hashes to nearby vectors,
// but it does not capture synonymy — and exists so the engine has a
// working default without an external provider.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a LocalEmbedder with DefaultDimensions.
func NewLocalEmbedder() *LocalEmbedder { return &LocalEmbedder{dims: DefaultDimensions} }

func (l *LocalEmbedder) Dimensions() int { return l.dims }
func (l *LocalEmbedder) ModelID() string { return "local-fnv-hash-v1" }

// Embed hashes overlapping trigrams of text into buckets across the
// vector's dimensions, then L2-normalizes so CosineSimilarity behaves
// consistently regardless of input length.
func (l *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, l.dims)
	if text == "" {
		return vec, nil
	}
	runes := []rune(text)
	n := len(runes)
	grams := 0
	for i := 0; i < n; i++ {
		end := i + 3
		if end > n {
			end = n
		}
		gram := string(runes[i:end])
		h := fnv.New32a()
		_, _ = h.Write([]byte(gram))
		bucket := h.Sum32() % uint32(l.dims)
		vec[bucket]++
		grams++
	}
	normalize(vec)
	return vec, nil
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors, returning 0 for mismatched or empty input. Grounded directly
// on internal/knowledge/embed.go's CosineSimilarity.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// DocText builds the text an embedder should consume for a symbol: its
// doc comment summary/remarks followed by its signature, so embeddings
// capture both intent and shape.
func DocText(summary, remarks, signature string) string {
	if summary == "" && remarks == "" {
		return signature
	}
	text := summary
	if remarks != "" {
		if text != "" {
			text += " "
		}
		text += remarks
	}
	if signature != "" {
		text += "\n" + signature
	}
	return text
}
