package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryIndex is the in-process Index implementation. When constructed with
// a directory it persists each corpus as a JSON sidecar holding the vectors
// and the position-to-(document, chunk) mapping, and reloads them lazily,
// so read consistency never requires a rebuild in place.
type MemoryIndex struct {
	dir string

	mu      sync.RWMutex
	corpora map[string]*corpusIndex
}

// NewMemoryIndex creates an index. dir may be empty for a purely ephemeral
// index (tests, rebuild-from-store deployments).
func NewMemoryIndex(dir string) *MemoryIndex {
	return &MemoryIndex{
		dir:     dir,
		corpora: make(map[string]*corpusIndex),
	}
}

func (m *MemoryIndex) IndexEmbeddings(ctx context.Context, corpusID string, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if len(items[0].Vector) == 0 {
		return fmt.Errorf("embedding vectors cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.loadLocked(corpusID)
	if err != nil {
		return err
	}
	if c == nil {
		c = &corpusIndex{dim: len(items[0].Vector), seen: make(map[key]int)}
		m.corpora[corpusID] = c
	} else if c.dim != len(items[0].Vector) {
		return fmt.Errorf("dimension mismatch for corpus %s: expected %d, got %d", corpusID, c.dim, len(items[0].Vector))
	}

	if err := c.add(items); err != nil {
		return err
	}
	return m.persistLocked(corpusID, c)
}

func (m *MemoryIndex) Search(ctx context.Context, corpusID string, query []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	c := m.corpora[corpusID]
	m.mu.RUnlock()

	if c == nil {
		m.mu.Lock()
		var err error
		c, err = m.loadLocked(corpusID)
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, nil
		}
	}
	return c.search(query, k)
}

func (m *MemoryIndex) DeleteCorpus(ctx context.Context, corpusID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.corpora, corpusID)
	if m.dir == "" {
		return nil
	}
	if err := os.Remove(m.sidecarPath(corpusID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove vector sidecar: %w", err)
	}
	return nil
}

type sidecar struct {
	Dim     int         `json:"dim"`
	Keys    [][2]string `json:"keys"` // (document_id, chunk_id) per position
	Vectors [][]float32 `json:"vectors"`
}

func (m *MemoryIndex) sidecarPath(corpusID string) string {
	return filepath.Join(m.dir, corpusID+".vectors.json")
}

// loadLocked returns the cached corpus index, loading it from the sidecar
// when a directory is configured. Returns nil when the corpus has no index.
func (m *MemoryIndex) loadLocked(corpusID string) (*corpusIndex, error) {
	if c, ok := m.corpora[corpusID]; ok {
		return c, nil
	}
	if m.dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(m.sidecarPath(corpusID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vector sidecar: %w", err)
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to decode vector sidecar for corpus %s: %w", corpusID, err)
	}
	c := &corpusIndex{
		dim:     sc.Dim,
		vectors: sc.Vectors,
		keys:    make([]key, len(sc.Keys)),
		seen:    make(map[key]int, len(sc.Keys)),
	}
	for i, pair := range sc.Keys {
		k := key{documentID: pair[0], chunkID: pair[1]}
		c.keys[i] = k
		c.seen[k] = i
	}
	m.corpora[corpusID] = c
	return c, nil
}

func (m *MemoryIndex) persistLocked(corpusID string, c *corpusIndex) error {
	if m.dir == "" {
		return nil
	}
	sc := sidecar{Dim: c.dim, Vectors: c.vectors, Keys: make([][2]string, len(c.keys))}
	for i, k := range c.keys {
		sc.Keys[i] = [2]string{k.documentID, k.chunkID}
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode vector sidecar: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create vector sidecar directory: %w", err)
	}
	tmp := m.sidecarPath(corpusID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write vector sidecar: %w", err)
	}
	if err := os.Rename(tmp, m.sidecarPath(corpusID)); err != nil {
		return fmt.Errorf("failed to replace vector sidecar: %w", err)
	}
	return nil
}
