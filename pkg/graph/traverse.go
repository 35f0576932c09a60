package graph

import (
	"context"
	"errors"
	"sort"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

// NeighborhoodCap bounds the node count a neighborhood expansion may
// collect before it stops and flags truncation.
const NeighborhoodCap = 256

// PathCap bounds how many shortest paths FindPaths returns.
const PathCap = 32

// Neighbors expands the subgraph around a center node with a breadth-first
// walk up to the given depth. Edges are traversed in both directions, so
// the neighborhood of a target node includes its sources. Depth 0 returns
// only the center. The expansion stops once NeighborhoodCap nodes are
// collected and marks the result truncated.
func (c *Client) Neighbors(ctx context.Context, corpusID, nodeID string, depth int) (common.Neighborhood, error) {
	center, err := c.store.GetNode(ctx, corpusID, nodeID)
	if err != nil {
		return common.Neighborhood{}, err
	}

	result := common.Neighborhood{
		CenterID: nodeID,
		Nodes:    []common.Node{center},
	}
	visited := map[string]bool{nodeID: true}
	seenEdges := map[string]bool{}
	frontier := []string{nodeID}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		for _, current := range frontier {
			adjacent, edges, err := c.adjacency(ctx, corpusID, current)
			if err != nil {
				return common.Neighborhood{}, err
			}
			for _, edge := range edges {
				if !seenEdges[edge.ID] {
					seenEdges[edge.ID] = true
					result.Edges = append(result.Edges, edge)
				}
			}
			for _, neighborID := range adjacent {
				if visited[neighborID] {
					continue
				}
				if len(result.Nodes) >= NeighborhoodCap {
					result.Truncated = true
					finishNeighborhood(&result, visited)
					return result, nil
				}
				visited[neighborID] = true
				node, err := c.store.GetNode(ctx, corpusID, neighborID)
				if err != nil {
					if errors.Is(err, common.ErrNotFound) {
						continue
					}
					return common.Neighborhood{}, err
				}
				result.Nodes = append(result.Nodes, node)
				next = append(next, neighborID)
			}
		}
		frontier = next
	}
	finishNeighborhood(&result, visited)
	return result, nil
}

// FindPaths returns every shortest undirected path between two nodes, up
// to maxHops edges long. Missing endpoints yield an empty result rather
// than an error: an investigator asking about an unknown entity gets "no
// connection", not a failure. At most PathCap paths are returned; the
// bool reports whether the cap cut the list.
func (c *Client) FindPaths(ctx context.Context, corpusID, startID, endID string, maxHops int) ([]common.Path, bool, error) {
	if _, err := c.store.GetNode(ctx, corpusID, startID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if _, err := c.store.GetNode(ctx, corpusID, endID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if startID == endID {
		return []common.Path{{NodeIDs: []string{startID}}}, false, nil
	}

	// Level-synchronized BFS keeping every predecessor on a shortest
	// path, then backtracking from the end node enumerates all of them.
	depths := map[string]int{startID: 0}
	parents := map[string][]string{}
	frontier := []string{startID}
	found := false

	for level := 0; level < maxHops && len(frontier) > 0 && !found; level++ {
		var next []string
		for _, current := range frontier {
			adjacent, _, err := c.adjacency(ctx, corpusID, current)
			if err != nil {
				return nil, false, err
			}
			for _, neighborID := range adjacent {
				seenDepth, seen := depths[neighborID]
				if !seen {
					depths[neighborID] = level + 1
					parents[neighborID] = []string{current}
					next = append(next, neighborID)
				} else if seenDepth == level+1 {
					parents[neighborID] = append(parents[neighborID], current)
				}
				if neighborID == endID {
					found = true
				}
			}
		}
		frontier = next
	}
	if !found {
		return nil, false, nil
	}

	// Nodes on at least one shortest path, found by walking the parent
	// lists back from the end node.
	onPath := map[string]bool{endID: true}
	stack := []string{endID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, parent := range parents[current] {
			if !onPath[parent] {
				onPath[parent] = true
				stack = append(stack, parent)
			}
		}
	}

	successors := map[string][]string{}
	for nodeID := range onPath {
		for _, parent := range parents[nodeID] {
			if onPath[parent] {
				successors[parent] = append(successors[parent], nodeID)
			}
		}
	}
	for _, next := range successors {
		sort.Strings(next)
	}

	// Walking successors in id order emits paths in ascending order, so
	// the enumeration stops as soon as the cap is exceeded instead of
	// materializing every shortest path first.
	var paths []common.Path
	var walk func(nodeID string, prefix []string) bool
	walk = func(nodeID string, prefix []string) bool {
		prefix = append(prefix, nodeID)
		if nodeID == endID {
			paths = append(paths, common.Path{NodeIDs: append([]string(nil), prefix...)})
			return len(paths) > PathCap
		}
		for _, next := range successors[nodeID] {
			if walk(next, prefix) {
				return true
			}
		}
		return false
	}
	truncated := walk(startID, nil)
	if truncated {
		paths = paths[:PathCap]
	}
	return paths, truncated, nil
}

// adjacency returns the ids of all nodes directly connected to a node,
// regardless of edge direction, plus the connecting edges. Neighbor ids
// are deduplicated and sorted.
func (c *Client) adjacency(ctx context.Context, corpusID, nodeID string) ([]string, []common.Edge, error) {
	outgoing, err := c.store.EdgesFrom(ctx, corpusID, nodeID)
	if err != nil {
		return nil, nil, err
	}
	incoming, err := c.store.EdgesTo(ctx, corpusID, nodeID)
	if err != nil {
		return nil, nil, err
	}

	seen := map[string]bool{}
	var neighbors []string
	edges := make([]common.Edge, 0, len(outgoing)+len(incoming))
	for _, edge := range outgoing {
		edges = append(edges, edge)
		if !seen[edge.TargetID] {
			seen[edge.TargetID] = true
			neighbors = append(neighbors, edge.TargetID)
		}
	}
	for _, edge := range incoming {
		// Self loops appear in both lists under the same edge id.
		if edge.SourceID == nodeID && edge.TargetID == nodeID {
			continue
		}
		edges = append(edges, edge)
		if !seen[edge.SourceID] {
			seen[edge.SourceID] = true
			neighbors = append(neighbors, edge.SourceID)
		}
	}
	sort.Strings(neighbors)
	return neighbors, edges, nil
}

// finishNeighborhood drops edges pointing past the depth or cap boundary
// and puts nodes and edges into deterministic order.
func finishNeighborhood(n *common.Neighborhood, visited map[string]bool) {
	kept := n.Edges[:0]
	for _, edge := range n.Edges {
		if visited[edge.SourceID] && visited[edge.TargetID] {
			kept = append(kept, edge)
		}
	}
	n.Edges = kept
	sort.Slice(n.Nodes, func(i, j int) bool { return n.Nodes[i].ID < n.Nodes[j].ID })
	sort.Slice(n.Edges, func(i, j int) bool { return n.Edges[i].ID < n.Edges[j].ID })
}
