package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

// snapshot is the on-disk form of a Store. Edge records are written
// verbatim so a reload reproduces an isomorphic graph.
type snapshot struct {
	Corpora   []common.Corpus          `json:"corpora"`
	Documents []common.Document        `json:"documents"`
	Chunks    []common.Chunk           `json:"chunks"`
	Graphs    map[string]graphSnapshot `json:"graphs"`
}

type graphSnapshot struct {
	Nodes []common.Node `json:"nodes"`
	Edges []common.Edge `json:"edges"`
}

// Save writes the full store state to path atomically (write to a temp
// file, then rename).
func (s *Store) Save(path string) error {
	s.mu.RLock()
	snap := snapshot{Graphs: make(map[string]graphSnapshot, len(s.graphs))}
	for _, corpus := range s.corpora {
		snap.Corpora = append(snap.Corpora, corpus)
	}
	for _, doc := range s.documents {
		snap.Documents = append(snap.Documents, doc)
	}
	for _, chunks := range s.chunks {
		snap.Chunks = append(snap.Chunks, chunks...)
	}
	graphs := make(map[string]*graphState, len(s.graphs))
	for corpusID, g := range s.graphs {
		graphs[corpusID] = g
	}
	s.mu.RUnlock()

	for corpusID, g := range graphs {
		g.mu.RLock()
		gs := graphSnapshot{
			Nodes: make([]common.Node, 0, len(g.nodes)),
			Edges: make([]common.Edge, 0, len(g.edges)),
		}
		for _, node := range g.nodes {
			gs.Nodes = append(gs.Nodes, node)
		}
		for _, edge := range g.edges {
			gs.Edges = append(gs.Edges, edge)
		}
		g.mu.RUnlock()
		sort.Slice(gs.Nodes, func(i, j int) bool { return gs.Nodes[i].ID < gs.Nodes[j].ID })
		sort.Slice(gs.Edges, func(i, j int) bool { return gs.Edges[i].ID < gs.Edges[j].ID })
		snap.Graphs[corpusID] = gs
	}

	sort.Slice(snap.Corpora, func(i, j int) bool { return snap.Corpora[i].ID < snap.Corpora[j].ID })
	sort.Slice(snap.Documents, func(i, j int) bool { return snap.Documents[i].ID < snap.Documents[j].ID })
	sort.Slice(snap.Chunks, func(i, j int) bool { return snap.Chunks[i].ID < snap.Chunks[j].ID })

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load replaces the store's state with a previously saved snapshot.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.corpora = make(map[string]common.Corpus, len(snap.Corpora))
	for _, corpus := range snap.Corpora {
		s.corpora[corpus.ID] = corpus
	}
	s.documents = make(map[string]common.Document, len(snap.Documents))
	for _, doc := range snap.Documents {
		s.documents[doc.ID] = doc
	}
	s.chunks = make(map[string][]common.Chunk)
	for _, chunk := range snap.Chunks {
		s.chunks[chunk.CorpusID] = append(s.chunks[chunk.CorpusID], chunk)
	}

	s.graphs = make(map[string]*graphState, len(snap.Graphs))
	for corpusID, gs := range snap.Graphs {
		g := newGraphState()
		for _, node := range gs.Nodes {
			g.nodes[node.ID] = node
			g.nameType[nameTypeKey(node.Name, node.Type)] = node.ID
			g.indexName(node.Name, node.ID)
			for _, alias := range node.Aliases {
				g.indexName(alias, node.ID)
			}
		}
		for _, edge := range gs.Edges {
			g.edges[edge.ID] = edge
			g.edgesFrom[edge.SourceID] = append(g.edgesFrom[edge.SourceID], edge.ID)
			g.edgesTo[edge.TargetID] = append(g.edgesTo[edge.TargetID], edge.ID)
		}
		s.graphs[corpusID] = g
	}
	return nil
}
