package pgx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

const nodeColumns = `id, type, name, aliases, attributes, created_at, updated_at`

func scanNode(row pgxv5.Row) (common.Node, error) {
	var node common.Node
	err := row.Scan(&node.ID, &node.Type, &node.Name, &node.Aliases, &node.Attributes, &node.CreatedAt, &node.UpdatedAt)
	return node, err
}

// UpsertNode merges with an existing node of the same normalized name and
// type under the corpus write lock; first writer wins, later writers merge
// their aliases and attributes into the existing row.
func (s *Store) UpsertNode(ctx context.Context, corpusID string, node common.Node) (common.Node, error) {
	lock := s.corpusLock(corpusID)
	lock.Lock()
	defer lock.Unlock()

	normalized := common.NormalizeName(node.Name)
	existing, err := scanNode(s.pool.QueryRow(ctx, `
		SELECT `+nodeColumns+`
		FROM graph_nodes
		WHERE corpus_id = $1 AND normalized_name = $2 AND type = $3`,
		corpusID, normalized, node.Type))
	if err != nil && !errors.Is(err, pgxv5.ErrNoRows) {
		return common.Node{}, fmt.Errorf("failed to look up node: %w", err)
	}

	if err == nil {
		merged := mergeNodes(existing, node)
		_, err := s.pool.Exec(ctx, `
			UPDATE graph_nodes
			SET aliases = $2, normalized_aliases = $3, attributes = $4, updated_at = $5
			WHERE id = $1`,
			merged.ID, merged.Aliases, normalizeAll(merged.Aliases), merged.Attributes, merged.UpdatedAt)
		if err != nil {
			return common.Node{}, fmt.Errorf("failed to update node: %w", err)
		}
		return merged, nil
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO graph_nodes
			(id, corpus_id, type, name, normalized_name, aliases, normalized_aliases, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		node.ID, corpusID, node.Type, node.Name, normalized,
		node.Aliases, normalizeAll(node.Aliases), node.Attributes, node.CreatedAt, node.UpdatedAt)
	if err != nil {
		return common.Node{}, fmt.Errorf("failed to insert node: %w", err)
	}
	return node, nil
}

func mergeNodes(existing, incoming common.Node) common.Node {
	aliasSet := map[string]bool{}
	for _, alias := range existing.Aliases {
		aliasSet[alias] = true
	}
	for _, alias := range incoming.Aliases {
		aliasSet[alias] = true
	}
	if common.NormalizeName(incoming.Name) != common.NormalizeName(existing.Name) {
		aliasSet[incoming.Name] = true
	}
	delete(aliasSet, existing.Name)

	aliases := make([]string, 0, len(aliasSet))
	for alias := range aliasSet {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	existing.Aliases = aliases

	if incoming.Attributes != nil {
		if existing.Attributes == nil {
			existing.Attributes = map[string]string{}
		}
		for key, value := range incoming.Attributes {
			existing.Attributes[key] = value
		}
	}
	existing.UpdatedAt = time.Now().UTC()
	return existing
}

func normalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = common.NormalizeName(name)
	}
	return out
}

func (s *Store) GetNode(ctx context.Context, corpusID, nodeID string) (common.Node, error) {
	node, err := scanNode(s.pool.QueryRow(ctx, `
		SELECT `+nodeColumns+`
		FROM graph_nodes WHERE corpus_id = $1 AND id = $2`, corpusID, nodeID))
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Node{}, common.NotFoundf("node %q not found", nodeID)
	}
	if err != nil {
		return common.Node{}, fmt.Errorf("failed to load node: %w", err)
	}
	return node, nil
}

func (s *Store) FindNodesByName(ctx context.Context, corpusID, name string) ([]common.Node, error) {
	normalized := common.NormalizeName(name)
	rows, err := s.pool.Query(ctx, `
		SELECT `+nodeColumns+`
		FROM graph_nodes
		WHERE corpus_id = $1 AND (normalized_name = $2 OR $2 = ANY(normalized_aliases))
		ORDER BY id`, corpusID, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to find nodes: %w", err)
	}
	return collectNodes(rows)
}

func (s *Store) ListNodes(ctx context.Context, corpusID, entityType string) ([]common.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM graph_nodes WHERE corpus_id = $1`
	args := []any{corpusID}
	if entityType != "" {
		query += ` AND type = $2`
		args = append(args, entityType)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return collectNodes(rows)
}

func collectNodes(rows pgxv5.Rows) ([]common.Node, error) {
	defer rows.Close()
	var nodes []common.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// DeleteNode removes a node; its edges cascade via foreign keys.
func (s *Store) DeleteNode(ctx context.Context, corpusID, nodeID string) error {
	lock := s.corpusLock(corpusID)
	lock.Lock()
	defer lock.Unlock()

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM graph_nodes WHERE corpus_id = $1 AND id = $2`, corpusID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("node %q not found", nodeID)
	}
	return nil
}

const edgeColumns = `id, type, source_id, target_id, doc_id, chunk_id, excerpt, page, confidence, extraction_method, created_at`

func scanEdge(row pgxv5.Row) (common.Edge, error) {
	var edge common.Edge
	err := row.Scan(&edge.ID, &edge.Type, &edge.SourceID, &edge.TargetID,
		&edge.Provenance.DocumentID, &edge.Provenance.ChunkID, &edge.Provenance.Excerpt, &edge.Provenance.Page,
		&edge.Confidence, &edge.ExtractionMethod, &edge.CreatedAt)
	return edge, err
}

func (s *Store) InsertEdge(ctx context.Context, corpusID string, edge common.Edge) error {
	lock := s.corpusLock(corpusID)
	lock.Lock()
	defer lock.Unlock()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO graph_edges
			(id, corpus_id, type, source_id, target_id, doc_id, chunk_id, excerpt, page, confidence, extraction_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		edge.ID, corpusID, edge.Type, edge.SourceID, edge.TargetID,
		edge.Provenance.DocumentID, edge.Provenance.ChunkID, edge.Provenance.Excerpt, edge.Provenance.Page,
		edge.Confidence, edge.ExtractionMethod, edge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}
	return nil
}

func (s *Store) EdgesFrom(ctx context.Context, corpusID, nodeID string) ([]common.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges
		WHERE corpus_id = $1 AND source_id = $2 ORDER BY id`, corpusID, nodeID)
}

func (s *Store) EdgesTo(ctx context.Context, corpusID, nodeID string) ([]common.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges
		WHERE corpus_id = $1 AND target_id = $2 ORDER BY id`, corpusID, nodeID)
}

func (s *Store) EdgesBetween(ctx context.Context, corpusID, a, b string) ([]common.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT `+edgeColumns+` FROM graph_edges
		WHERE corpus_id = $1
		  AND ((source_id = $2 AND target_id = $3) OR (source_id = $3 AND target_id = $2))
		ORDER BY id`, corpusID, a, b)
}

func (s *Store) queryEdges(ctx context.Context, query string, args ...any) ([]common.Edge, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []common.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func (s *Store) CountNodes(ctx context.Context, corpusID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM graph_nodes WHERE corpus_id = $1`, corpusID).Scan(&count)
	return count, err
}

func (s *Store) CountEdges(ctx context.Context, corpusID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM graph_edges WHERE corpus_id = $1`, corpusID).Scan(&count)
	return count, err
}

func (s *Store) DeleteGraph(ctx context.Context, corpusID string) error {
	lock := s.corpusLock(corpusID)
	lock.Lock()
	defer lock.Unlock()

	// Edges cascade from node deletion.
	_, err := s.pool.Exec(ctx, `DELETE FROM graph_nodes WHERE corpus_id = $1`, corpusID)
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	return nil
}
