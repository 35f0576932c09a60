package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/alavista/internal/util"
	"github.com/OFFIS-RIT/alavista/pkg/ai"
	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/graph"
	"github.com/OFFIS-RIT/alavista/pkg/logger"
	"github.com/OFFIS-RIT/alavista/pkg/search"
	"github.com/OFFIS-RIT/alavista/pkg/store"
	"github.com/OFFIS-RIT/alavista/pkg/vector"
)

// Service runs the full ingestion pipeline for one document: dedup,
// persist, chunk, embed, index, extract graph. Embedding and LLM
// extraction are optional collaborators; the pipeline degrades to
// lexical-only corpora without them.
type Service struct {
	corpora   store.CorpusStorage
	graph     *graph.Client
	chunker   *Chunker
	embedder  ai.EmbeddingClient
	vectors   vector.Index
	engine    *search.Engine
	extractor *graph.LLMExtractor

	fallbackEntityType string
	concurrency        int
}

type ServiceParams struct {
	Corpora   store.CorpusStorage
	Graph     *graph.Client
	Chunker   *Chunker
	Embedder  ai.EmbeddingClient
	Vectors   vector.Index
	Engine    *search.Engine
	Extractor *graph.LLMExtractor

	// FallbackEntityType types heuristic co-mention entities when no LLM
	// extractor is wired. Defaults to "Concept".
	FallbackEntityType string
	// Concurrency bounds parallel embedding batches. Defaults to 4.
	Concurrency int
}

func NewService(params ServiceParams) *Service {
	fallback := params.FallbackEntityType
	if fallback == "" {
		fallback = "Concept"
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		corpora:            params.Corpora,
		graph:              params.Graph,
		chunker:            params.Chunker,
		embedder:           params.Embedder,
		vectors:            params.Vectors,
		engine:             params.Engine,
		extractor:          params.Extractor,
		fallbackEntityType: fallback,
		concurrency:        concurrency,
	}
}

// Result reports what one ingestion did.
type Result struct {
	DocumentID    string `json:"document_id"`
	Deduplicated  bool   `json:"deduplicated"`
	Chunks        int    `json:"chunks"`
	NodesUpserted int    `json:"nodes_upserted"`
	EdgesAdded    int    `json:"edges_added"`
	EdgesRejected int    `json:"edges_rejected"`
}

const (
	embedBatchSize = 32
	maxRetries     = 3
)

// IngestDocument ingests one text document into a corpus. A document whose
// content hash already exists in the corpus is skipped entirely.
func (s *Service) IngestDocument(ctx context.Context, corpusID, text string, metadata map[string]string) (Result, error) {
	if _, err := s.corpora.GetCorpus(ctx, corpusID); err != nil {
		return Result{}, err
	}

	hash := common.ContentHash(text)
	existing, err := s.corpora.FindDocumentByHash(ctx, corpusID, hash)
	if err == nil {
		logger.Info("document already ingested", "corpus", corpusID, "document", existing.ID)
		return Result{DocumentID: existing.ID, Deduplicated: true}, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return Result{}, err
	}

	docID, err := gonanoid.New()
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate document id: %w", err)
	}
	document := common.Document{
		ID:          docID,
		CorpusID:    corpusID,
		Text:        text,
		ContentHash: hash,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.corpora.AddDocument(ctx, document); err != nil {
		return Result{}, fmt.Errorf("failed to persist document: %w", err)
	}

	chunks := s.chunker.Chunk(docID, corpusID, text)
	if err := s.corpora.AddChunks(ctx, chunks); err != nil {
		return Result{}, fmt.Errorf("failed to persist chunks: %w", err)
	}

	result := Result{DocumentID: docID, Chunks: len(chunks)}

	if s.embedder != nil && s.vectors != nil && len(chunks) > 0 {
		if err := s.embedChunks(ctx, corpusID, chunks); err != nil {
			return Result{}, err
		}
	}

	if s.graph != nil {
		nodes, added, rejected := s.buildGraph(ctx, corpusID, document, chunks)
		result.NodesUpserted = nodes
		result.EdgesAdded = added
		result.EdgesRejected = rejected
	}

	if s.engine != nil {
		s.engine.Invalidate(corpusID)
	}
	logger.Info("document ingested",
		"corpus", corpusID, "document", docID, "chunks", len(chunks),
		"edges_added", result.EdgesAdded, "edges_rejected", result.EdgesRejected)
	return result, nil
}

// embedChunks generates embeddings in bounded parallel batches and indexes
// them under the corpus.
func (s *Service) embedChunks(ctx context.Context, corpusID string, chunks []common.Chunk) error {
	items := make([]vector.Item, len(chunks))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		offset := start
		group.Go(func() error {
			texts := make([][]byte, len(batch))
			for i, chunk := range batch {
				texts[i] = []byte(chunk.Text)
			}
			var embeddings [][]float32
			err := util.RetryErrWithContext(groupCtx, maxRetries, func(ctx context.Context) error {
				var err error
				embeddings, err = s.embedder.GenerateEmbeddings(ctx, texts)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to embed chunk batch: %w", err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(batch))
			}
			mu.Lock()
			defer mu.Unlock()
			for i, embedding := range embeddings {
				items[offset+i] = vector.Item{
					DocumentID: batch[i].DocumentID,
					ChunkID:    batch[i].ID,
					Vector:     embedding,
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return s.vectors.IndexEmbeddings(ctx, corpusID, items)
}

// buildGraph extracts entities and relations from each chunk and writes
// them through the ontology gate. Rejected edges are counted and skipped;
// extraction never fails an ingestion.
func (s *Service) buildGraph(ctx context.Context, corpusID string, document common.Document, chunks []common.Chunk) (nodes, added, rejected int) {
	docName := document.Metadata["title"]
	if docName == "" {
		docName = document.ID
	}
	docNode, err := s.graph.UpsertNode(ctx, corpusID, common.Node{
		Type:       "Document",
		Name:       docName,
		Attributes: map[string]string{"document_id": document.ID},
	})
	if err != nil {
		logger.Warn("failed to upsert document node", "document", document.ID, "error", err)
		return 0, 0, 0
	}
	nodes++

	for _, chunk := range chunks {
		entities, relations := s.extractChunk(ctx, chunk)

		nodeByName := make(map[string]common.Node, len(entities))
		for _, entity := range entities {
			node, err := s.graph.UpsertNode(ctx, corpusID, common.Node{
				Type:       entity.Type,
				Name:       entity.Name,
				Attributes: map[string]string{"document_id": document.ID},
			})
			if err != nil {
				logger.Debug("skipping entity", "name", entity.Name, "error", err)
				continue
			}
			nodes++
			nodeByName[common.NormalizeName(entity.Name)] = node
		}

		provenance := common.Provenance{
			DocumentID: document.ID,
			ChunkID:    chunk.ID,
			Excerpt:    search.Excerpt(chunk.Text, 200),
		}

		for _, node := range sortedNodes(nodeByName) {
			a, r := s.addEdge(ctx, corpusID, common.Edge{
				Type:             "APPEARS_IN",
				SourceID:         node.ID,
				TargetID:         docNode.ID,
				Provenance:       provenance,
				Confidence:       1.0,
				ExtractionMethod: s.method(),
			})
			added += a
			rejected += r
		}

		if s.extractor != nil {
			for _, relation := range relations {
				source, sourceOK := nodeByName[common.NormalizeName(relation.SourceName)]
				target, targetOK := nodeByName[common.NormalizeName(relation.TargetName)]
				if !sourceOK || !targetOK {
					continue
				}
				a, r := s.addEdge(ctx, corpusID, common.Edge{
					Type:             relation.Type,
					SourceID:         source.ID,
					TargetID:         target.ID,
					Provenance:       provenance,
					Confidence:       relation.Confidence,
					ExtractionMethod: "llm",
				})
				added += a
				rejected += r
			}
		} else {
			added2, rejected2 := s.coMentionEdges(ctx, corpusID, nodeByName, provenance)
			added += added2
			rejected += rejected2
		}
	}
	return nodes, added, rejected
}

// extractChunk returns typed entities (and, with an LLM extractor,
// relations) for one chunk.
func (s *Service) extractChunk(ctx context.Context, chunk common.Chunk) ([]graph.ExtractedEntity, []graph.ExtractedRelation) {
	if s.extractor != nil {
		var result graph.ExtractionResult
		err := util.RetryErrWithContext(ctx, maxRetries, func(ctx context.Context) error {
			var err error
			result, err = s.extractor.Extract(ctx, chunk.Text)
			return err
		})
		if err != nil {
			logger.Warn("llm extraction failed for chunk", "chunk", chunk.ID, "error", err)
			return nil, nil
		}
		return result.Entities, result.Relations
	}

	names := graph.HeuristicExtractor{}.ExtractCandidateEntities(chunk.Text)
	entities := make([]graph.ExtractedEntity, 0, len(names))
	for _, name := range names {
		entities = append(entities, graph.ExtractedEntity{
			Name: name,
			Type: s.fallbackEntityType,
		})
	}
	return entities, nil
}

// coMentionEdges links entities mentioned in the same chunk, capped to
// keep dense chunks from producing quadratic edge counts.
const maxCoMentionPairs = 10

func (s *Service) coMentionEdges(ctx context.Context, corpusID string, nodeByName map[string]common.Node, provenance common.Provenance) (added, rejected int) {
	nodes := sortedNodes(nodeByName)
	pairs := 0
	for i := 0; i < len(nodes) && pairs < maxCoMentionPairs; i++ {
		for j := i + 1; j < len(nodes) && pairs < maxCoMentionPairs; j++ {
			pairs++
			a, r := s.addEdge(ctx, corpusID, common.Edge{
				Type:             "MENTIONED_WITH",
				SourceID:         nodes[i].ID,
				TargetID:         nodes[j].ID,
				Provenance:       provenance,
				Confidence:       0.5,
				ExtractionMethod: "heuristic",
			})
			added += a
			rejected += r
		}
	}
	return added, rejected
}

func (s *Service) addEdge(ctx context.Context, corpusID string, edge common.Edge) (added, rejected int) {
	if _, err := s.graph.AddEdge(ctx, corpusID, edge); err != nil {
		var validation *common.ValidationError
		if errors.As(err, &validation) {
			logger.Debug("edge rejected",
				"relation", edge.Type, "reason", validation.Reason)
			return 0, 1
		}
		logger.Warn("failed to add edge", "relation", edge.Type, "error", err)
		return 0, 0
	}
	return 1, 0
}

func (s *Service) method() string {
	if s.extractor != nil {
		return "llm"
	}
	return "heuristic"
}

func sortedNodes(nodeByName map[string]common.Node) []common.Node {
	keys := make([]string, 0, len(nodeByName))
	for key := range nodeByName {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	nodes := make([]common.Node, 0, len(keys))
	for _, key := range keys {
		nodes = append(nodes, nodeByName[key])
	}
	return nodes
}
