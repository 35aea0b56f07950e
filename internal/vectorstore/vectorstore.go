//go:build unix

// Package vectorstore implements the Vector Store: a memory-mapped
// float32 embedding array keyed by SymbolID, with cosine-similarity
// search filtered by language, and tombstone-then-compact removal.
// Grounded on internal/embed's CosineSimilarity (itself grounded on
// internal/knowledge/embed.go) for the search math, and on golang.org/x/sys
// for the mmap syscall — no example repo in the pack demonstrates a
// memory-mapped file, so this is the minimal real third-party primitive
// idiomatic Go reaches for instead of a hand-rolled read/write-at-offset
// scheme (DESIGN.md records this as the one part of the store built past
// what the teacher itself shows).
package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/ids"
)

const headerMagic uint32 = 0x434f4445 // "CODE"

// headerFixedLen is the fixed-size prefix of the vector file: magic,
// dims, and a length-prefixed model identity string. A mismatch on open
// (either dims or modelID) means the embedder changed and the store
// needs a full re-embed rather than mixing incompatible vectors.
const headerFixedLen = 4 + 4 + 4 // magic + dims + modelID length prefix

// entry is the sidecar record for one stored vector: which symbol it
// belongs to, its language (for language-filtered search), its byte
// offset into the mmap'd array, and a tombstone flag.
type entry struct {
	symbol   ids.SymbolID
	language string
	offset   int64
	live     bool
}

// Store is a memory-mapped vector array plus an in-memory sidecar index.
// A single writer appends/tombstones; concurrent readers search the
// mmap'd region directly, which is safe because appends only ever extend
// the file and tombstones only flip a sidecar flag, never rewrite live
// bytes readers may be scanning (compaction is the only operation that
// does, and it takes the write lock for its whole duration).
type Store struct {
	mu sync.RWMutex

	file   *os.File
	data   []byte // mmap'd region
	dims   int
	model  string
	stride int64 // bytes per vector

	bySymbol map[ids.SymbolID]*entry
	entries  []*entry
	tomb     int
}

// Open opens or creates path as a vector store for the given embedder's
// dimensionality and model identity. If the file already exists with a
// different dims or modelID, ErrModelMismatch is returned so the caller
// can decide to re-embed from scratch.
func Open(path string, e embed.Embedder) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Store{
		file:     f,
		dims:     e.Dimensions(),
		model:    e.ModelID(),
		stride:   int64(e.Dimensions()) * 4,
		bySymbol: make(map[ids.SymbolID]*entry),
	}

	if info.Size() == 0 {
		if err := s.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		if err := s.readHeader(); err != nil {
			f.Close()
			return nil, err
		}
		if s.dims != e.Dimensions() || s.model != e.ModelID() {
			f.Close()
			return nil, ErrModelMismatch
		}
	}

	if err := s.mmapRegion(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// ErrModelMismatch is returned by Open when the on-disk vector store was
// built with a different embedding model than the one supplied.
var ErrModelMismatch = fmt.Errorf("vectorstore: embedder model/dimensions mismatch")

func (s *Store) writeHeader() error {
	buf := make([]byte, headerFixedLen+len(s.model))
	binary.LittleEndian.PutUint32(buf[0:4], headerMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(s.dims))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(s.model)))
	copy(buf[12:], s.model)
	_, err := s.file.WriteAt(buf, 0)
	return err
}

func (s *Store) headerLen() int64 { return int64(headerFixedLen + len(s.model)) }

func (s *Store) readHeader() error {
	prefix := make([]byte, headerFixedLen)
	if _, err := s.file.ReadAt(prefix, 0); err != nil {
		return fmt.Errorf("vectorstore: read header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(prefix[0:4])
	if magic != headerMagic {
		return fmt.Errorf("vectorstore: bad magic in %s", s.file.Name())
	}
	s.dims = int(binary.LittleEndian.Uint32(prefix[4:8]))
	nameLen := int(binary.LittleEndian.Uint32(prefix[8:12]))
	nameBuf := make([]byte, nameLen)
	if _, err := s.file.ReadAt(nameBuf, headerFixedLen); err != nil {
		return fmt.Errorf("vectorstore: read model id: %w", err)
	}
	s.model = string(nameBuf)
	s.stride = int64(s.dims) * 4
	return nil
}

func (s *Store) mmapRegion() error {
	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= s.headerLen() {
		s.data = nil
		return nil
	}
	data, err := unix.Mmap(int(s.file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("vectorstore: mmap: %w", err)
	}
	s.data = data
	return nil
}

// remapForGrowth re-mmaps after the file has been extended by Append,
// since an mmap'd region is fixed size at creation time.
func (s *Store) remapForGrowth(newSize int64) error {
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return fmt.Errorf("vectorstore: munmap: %w", err)
		}
	}
	data, err := unix.Mmap(int(s.file.Fd()), 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("vectorstore: remap: %w", err)
	}
	s.data = data
	return nil
}

// Append writes a new vector for symbol, or overwrites the existing one
// in place if symbol already has a live entry and the store hasn't
// compacted since (same offset, same stride).
func (s *Store) Append(symbol ids.SymbolID, language string, vec []float32) error {
	if len(vec) != s.dims {
		return fmt.Errorf("vectorstore: vector has %d dims, store expects %d", len(vec), s.dims)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.bySymbol[symbol]; ok && e.live {
		return s.writeAt(e.offset, vec)
	}

	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	offset := info.Size()
	if offset < s.headerLen() {
		offset = s.headerLen()
	}
	newSize := offset + s.stride
	if err := s.file.Truncate(newSize); err != nil {
		return err
	}
	if err := s.remapForGrowth(newSize); err != nil {
		return err
	}
	if err := s.writeAt(offset, vec); err != nil {
		return err
	}

	e := &entry{symbol: symbol, language: language, offset: offset, live: true}
	s.bySymbol[symbol] = e
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) writeAt(offset int64, vec []float32) error {
	if offset+s.stride > int64(len(s.data)) {
		return fmt.Errorf("vectorstore: offset %d out of range (len %d)", offset, len(s.data))
	}
	region := s.data[offset : offset+s.stride]
	for i, f := range vec {
		binary.LittleEndian.PutUint32(region[i*4:i*4+4], math.Float32bits(f))
	}
	return nil
}

func (s *Store) readAt(offset int64) []float32 {
	region := s.data[offset : offset+s.stride]
	out := make([]float32, s.dims)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(region[i*4 : i*4+4]))
	}
	return out
}

// Remove tombstones symbol's vector; its bytes stay in the file until the
// next Compact.
func (s *Store) Remove(symbol ids.SymbolID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.bySymbol[symbol]; ok && e.live {
		e.live = false
		s.tomb++
	}
}

// Match is one semantic_search result: a symbol ID and its similarity
// score against the query vector.
type Match struct {
	Symbol ids.SymbolID
	Score  float32
}

// Search returns the topK symbols most similar to query, optionally
// restricted to language (empty string means all languages).
func (s *Store) Search(query []float32, language string, topK int) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Match
	for _, e := range s.entries {
		if !e.live {
			continue
		}
		if language != "" && e.language != language {
			continue
		}
		vec := s.readAt(e.offset)
		score := embed.CosineSimilarity(query, vec)
		out = append(out, Match{Symbol: e.symbol, Score: score})
	}

	sortMatchesDesc(out)
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func sortMatchesDesc(m []Match) {
	for i := 1; i < len(m); i++ {
		j := i
		for j > 0 && m[j-1].Score < m[j].Score {
			m[j-1], m[j] = m[j], m[j-1]
			j--
		}
	}
}

// Compact rewrites the file with tombstoned vectors dropped, freeing their
// space. Takes the write lock for its entire duration; readers block.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tomb == 0 {
		return nil
	}

	tmpPath := s.file.Name() + ".compact"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	hdrBuf := make([]byte, headerFixedLen+len(s.model))
	binary.LittleEndian.PutUint32(hdrBuf[0:4], headerMagic)
	binary.LittleEndian.PutUint32(hdrBuf[4:8], uint32(s.dims))
	binary.LittleEndian.PutUint32(hdrBuf[8:12], uint32(len(s.model)))
	copy(hdrBuf[12:], s.model)
	if _, err := tmp.Write(hdrBuf); err != nil {
		tmp.Close()
		return err
	}

	newEntries := make([]*entry, 0, len(s.entries)-s.tomb)
	offset := int64(len(hdrBuf))
	for _, e := range s.entries {
		if !e.live {
			continue
		}
		vec := s.readAt(e.offset)
		buf := make([]byte, s.stride)
		for i, f := range vec {
			binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(f))
		}
		if _, err := tmp.Write(buf); err != nil {
			tmp.Close()
			return err
		}
		ne := &entry{symbol: e.symbol, language: e.language, offset: offset, live: true}
		newEntries = append(newEntries, ne)
		offset += s.stride
	}
	tmp.Close()

	if err := unix.Munmap(s.data); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.file.Name()); err != nil {
		return err
	}

	f, err := os.OpenFile(s.file.Name(), os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	s.entries = newEntries
	s.bySymbol = make(map[ids.SymbolID]*entry, len(newEntries))
	for _, e := range newEntries {
		s.bySymbol[e.symbol] = e
	}
	s.tomb = 0
	return s.mmapRegion()
}

// Close unmaps the vector region and closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return err
		}
	}
	return s.file.Close()
}

// Count returns the number of live (non-tombstoned) vectors, for
// get_index_info's embedding coverage figure.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.live {
			n++
		}
	}
	return n
}

// ModelID returns the persisted embedder identity.
func (s *Store) ModelID() string { return s.model }
