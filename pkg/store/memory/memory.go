// Package memory provides an in-process implementation of the store
// interfaces. It backs tests and single-machine deployments; Save/Load
// snapshot the full state to disk as JSON.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

// Store implements store.GraphStorage and store.CorpusStorage in memory.
//
// Reads take RLocks and never block each other; graph mutations are
// serialized per corpus through each graph's write lock.
type Store struct {
	mu        sync.RWMutex
	corpora   map[string]common.Corpus
	documents map[string]common.Document
	chunks    map[string][]common.Chunk // keyed by corpus id
	graphs    map[string]*graphState    // keyed by corpus id
}

type graphState struct {
	mu    sync.RWMutex
	nodes map[string]common.Node
	edges map[string]common.Edge

	// nameType maps normalized(name)+"\x00"+type to the owning node id,
	// backing the merge-or-create decision in UpsertNode.
	nameType map[string]string
	// byName maps every normalized canonical name and alias to node ids.
	byName map[string][]string

	edgesFrom map[string][]string // node id -> edge ids
	edgesTo   map[string][]string
}

func NewStore() *Store {
	return &Store{
		corpora:   make(map[string]common.Corpus),
		documents: make(map[string]common.Document),
		chunks:    make(map[string][]common.Chunk),
		graphs:    make(map[string]*graphState),
	}
}

func newGraphState() *graphState {
	return &graphState{
		nodes:     make(map[string]common.Node),
		edges:     make(map[string]common.Edge),
		nameType:  make(map[string]string),
		byName:    make(map[string][]string),
		edgesFrom: make(map[string][]string),
		edgesTo:   make(map[string][]string),
	}
}

func (s *Store) graph(corpusID string) *graphState {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[corpusID]
	if !ok {
		g = newGraphState()
		s.graphs[corpusID] = g
	}
	return g
}

func nameTypeKey(name, typ string) string {
	return common.NormalizeName(name) + "\x00" + typ
}

// UpsertNode creates the node or merges it into the node with the same
// normalized name and type. First writer wins: under the graph write lock a
// second writer observes the created node and merges into it.
func (s *Store) UpsertNode(ctx context.Context, corpusID string, node common.Node) (common.Node, error) {
	g := s.graph(corpusID)
	g.mu.Lock()
	defer g.mu.Unlock()

	key := nameTypeKey(node.Name, node.Type)
	if existingID, ok := g.nameType[key]; ok {
		existing := g.nodes[existingID]
		merged := mergeAliases(existing.Aliases, node.Aliases)
		// A differing candidate name is kept as an alias of the canonical
		// spelling that arrived first.
		if node.Name != existing.Name {
			merged = mergeAliases(merged, []string{node.Name})
		}
		for _, alias := range merged {
			if !containsString(existing.Aliases, alias) {
				g.indexName(alias, existingID)
			}
		}
		existing.Aliases = merged
		for k, v := range node.Attributes {
			if existing.Attributes == nil {
				existing.Attributes = make(map[string]string)
			}
			if _, ok := existing.Attributes[k]; !ok {
				existing.Attributes[k] = v
			}
		}
		existing.UpdatedAt = time.Now().UTC()
		g.nodes[existingID] = existing
		return existing, nil
	}

	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}
	node.UpdatedAt = node.CreatedAt
	g.nodes[node.ID] = node
	g.nameType[key] = node.ID
	g.indexName(node.Name, node.ID)
	for _, alias := range node.Aliases {
		g.indexName(alias, node.ID)
	}
	return node, nil
}

func (g *graphState) indexName(name, nodeID string) {
	key := common.NormalizeName(name)
	if containsString(g.byName[key], nodeID) {
		return
	}
	g.byName[key] = append(g.byName[key], nodeID)
}

func (s *Store) GetNode(ctx context.Context, corpusID, nodeID string) (common.Node, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[nodeID]
	if !ok {
		return common.Node{}, common.NotFoundf("node %q", nodeID)
	}
	return node, nil
}

func (s *Store) FindNodesByName(ctx context.Context, corpusID, name string) ([]common.Node, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.byName[common.NormalizeName(name)]
	out := make([]common.Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := g.nodes[id]; ok {
			out = append(out, node)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListNodes(ctx context.Context, corpusID, entityType string) ([]common.Node, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]common.Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		if entityType != "" && node.Type != entityType {
			continue
		}
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteNode removes a node and cascades to every edge that touches it.
func (s *Store) DeleteNode(ctx context.Context, corpusID, nodeID string) error {
	g := s.graph(corpusID)
	g.mu.Lock()
	defer g.mu.Unlock()
	node, ok := g.nodes[nodeID]
	if !ok {
		return common.NotFoundf("node %q", nodeID)
	}

	for _, edgeID := range append(append([]string{}, g.edgesFrom[nodeID]...), g.edgesTo[nodeID]...) {
		edge, ok := g.edges[edgeID]
		if !ok {
			continue
		}
		delete(g.edges, edgeID)
		g.edgesFrom[edge.SourceID] = removeString(g.edgesFrom[edge.SourceID], edgeID)
		g.edgesTo[edge.TargetID] = removeString(g.edgesTo[edge.TargetID], edgeID)
	}
	delete(g.edgesFrom, nodeID)
	delete(g.edgesTo, nodeID)

	delete(g.nodes, nodeID)
	delete(g.nameType, nameTypeKey(node.Name, node.Type))
	g.byName[common.NormalizeName(node.Name)] = removeString(g.byName[common.NormalizeName(node.Name)], nodeID)
	for _, alias := range node.Aliases {
		key := common.NormalizeName(alias)
		g.byName[key] = removeString(g.byName[key], nodeID)
	}
	return nil
}

func (s *Store) InsertEdge(ctx context.Context, corpusID string, edge common.Edge) error {
	g := s.graph(corpusID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[edge.SourceID]; !ok {
		return common.NotFoundf("edge source node %q", edge.SourceID)
	}
	if _, ok := g.nodes[edge.TargetID]; !ok {
		return common.NotFoundf("edge target node %q", edge.TargetID)
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}
	g.edges[edge.ID] = edge
	g.edgesFrom[edge.SourceID] = append(g.edgesFrom[edge.SourceID], edge.ID)
	g.edgesTo[edge.TargetID] = append(g.edgesTo[edge.TargetID], edge.ID)
	return nil
}

func (s *Store) EdgesFrom(ctx context.Context, corpusID, nodeID string) ([]common.Edge, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collectEdges(g.edgesFrom[nodeID]), nil
}

func (s *Store) EdgesTo(ctx context.Context, corpusID, nodeID string) ([]common.Edge, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collectEdges(g.edgesTo[nodeID]), nil
}

func (s *Store) EdgesBetween(ctx context.Context, corpusID, a, b string) ([]common.Edge, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []string
	for _, edgeID := range g.edgesFrom[a] {
		if g.edges[edgeID].TargetID == b {
			ids = append(ids, edgeID)
		}
	}
	for _, edgeID := range g.edgesFrom[b] {
		if g.edges[edgeID].TargetID == a {
			ids = append(ids, edgeID)
		}
	}
	return g.collectEdges(ids), nil
}

func (g *graphState) collectEdges(ids []string) []common.Edge {
	out := make([]common.Edge, 0, len(ids))
	for _, id := range ids {
		if edge, ok := g.edges[id]; ok {
			out = append(out, edge)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CountNodes(ctx context.Context, corpusID string) (int, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes), nil
}

func (s *Store) CountEdges(ctx context.Context, corpusID string) (int, error) {
	g := s.graph(corpusID)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges), nil
}

func (s *Store) DeleteGraph(ctx context.Context, corpusID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphs, corpusID)
	return nil
}

func (s *Store) CreateCorpus(ctx context.Context, corpus common.Corpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if corpus.CreatedAt.IsZero() {
		corpus.CreatedAt = time.Now().UTC()
	}
	s.corpora[corpus.ID] = corpus
	return nil
}

func (s *Store) GetCorpus(ctx context.Context, corpusID string) (common.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	corpus, ok := s.corpora[corpusID]
	if !ok {
		return common.Corpus{}, common.NotFoundf("corpus %q", corpusID)
	}
	return corpus, nil
}

func (s *Store) ListCorpora(ctx context.Context) ([]common.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Corpus, 0, len(s.corpora))
	for _, corpus := range s.corpora {
		out = append(out, corpus)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteCorpus(ctx context.Context, corpusID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corpora[corpusID]; !ok {
		return common.NotFoundf("corpus %q", corpusID)
	}
	delete(s.corpora, corpusID)
	delete(s.chunks, corpusID)
	for id, doc := range s.documents {
		if doc.CorpusID == corpusID {
			delete(s.documents, id)
		}
	}
	return nil
}

func (s *Store) AddDocument(ctx context.Context, doc common.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corpora[doc.CorpusID]; !ok {
		return common.NotFoundf("corpus %q", doc.CorpusID)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.documents[doc.ID] = doc
	return nil
}

func (s *Store) GetDocument(ctx context.Context, docID string) (common.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return common.Document{}, common.NotFoundf("document %q", docID)
	}
	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, corpusID string) ([]common.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Document
	for _, doc := range s.documents {
		if doc.CorpusID == corpusID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindDocumentByHash(ctx context.Context, corpusID, contentHash string) (common.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.documents {
		if doc.CorpusID == corpusID && doc.ContentHash == contentHash {
			return doc, nil
		}
	}
	return common.Document{}, common.NotFoundf("document with hash %q", contentHash)
}

func (s *Store) AddChunks(ctx context.Context, chunks []common.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.CorpusID] = append(s.chunks[chunk.CorpusID], chunk)
	}
	return nil
}

func (s *Store) ListChunks(ctx context.Context, corpusID string) ([]common.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Chunk, len(s.chunks[corpusID]))
	copy(out, s.chunks[corpusID])
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func mergeAliases(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range append(append([]string{}, a...), b...) {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
