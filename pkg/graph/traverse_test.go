package graph

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

// buildChain wires a small fixture graph:
//
//	alice -WORKS_FOR-> acme -LOCATED_IN-> zurich
//	bob   -WORKS_FOR-> acme
//	alice -COMMUNICATED_WITH-> bob
func buildChain(t *testing.T, client *Client) map[string]common.Node {
	t.Helper()
	ctx := context.Background()
	nodes := map[string]common.Node{}
	for name, typ := range map[string]string{
		"alice": "Person", "bob": "Person", "acme": "Organization", "zurich": "Location",
	} {
		node, err := client.UpsertNode(ctx, "c1", common.Node{ID: name, Name: name, Type: typ})
		if err != nil {
			t.Fatalf("UpsertNode(%s) failed: %v", name, err)
		}
		nodes[name] = node
	}
	for _, edge := range []common.Edge{
		{ID: "e1", Type: "WORKS_FOR", SourceID: "alice", TargetID: "acme"},
		{ID: "e2", Type: "WORKS_FOR", SourceID: "bob", TargetID: "acme"},
		{ID: "e3", Type: "LOCATED_IN", SourceID: "acme", TargetID: "zurich"},
		{ID: "e4", Type: "COMMUNICATED_WITH", SourceID: "alice", TargetID: "bob"},
	} {
		if _, err := client.AddEdge(ctx, "c1", edge); err != nil {
			t.Fatalf("AddEdge(%s) failed: %v", edge.ID, err)
		}
	}
	return nodes
}

func TestNeighbors(t *testing.T) {
	client := newTestClient(t)
	buildChain(t, client)
	ctx := context.Background()

	tests := []struct {
		name      string
		center    string
		depth     int
		wantNodes []string
		wantEdges []string
	}{
		{
			name:      "depth zero returns only the center",
			center:    "alice",
			depth:     0,
			wantNodes: []string{"alice"},
		},
		{
			name:      "depth one follows both directions",
			center:    "acme",
			depth:     1,
			wantNodes: []string{"acme", "alice", "bob", "zurich"},
			wantEdges: []string{"e1", "e2", "e3"},
		},
		{
			name:      "depth two reaches the whole component",
			center:    "zurich",
			depth:     2,
			wantNodes: []string{"acme", "alice", "bob", "zurich"},
			wantEdges: []string{"e1", "e2", "e3"},
		},
		{
			name:      "depth three closes the remaining edge",
			center:    "zurich",
			depth:     3,
			wantNodes: []string{"acme", "alice", "bob", "zurich"},
			wantEdges: []string{"e1", "e2", "e3", "e4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Neighbors(ctx, "c1", tt.center, tt.depth)
			if err != nil {
				t.Fatalf("Neighbors failed: %v", err)
			}
			if got.CenterID != tt.center {
				t.Fatalf("center = %q, want %q", got.CenterID, tt.center)
			}
			if got.Truncated {
				t.Fatalf("unexpected truncation")
			}

			nodeIDs := make([]string, len(got.Nodes))
			for i, node := range got.Nodes {
				nodeIDs[i] = node.ID
			}
			if !reflect.DeepEqual(nodeIDs, tt.wantNodes) {
				t.Fatalf("nodes = %v, want %v", nodeIDs, tt.wantNodes)
			}

			edgeIDs := make([]string, len(got.Edges))
			for i, edge := range got.Edges {
				edgeIDs[i] = edge.ID
			}
			if len(edgeIDs) == 0 {
				edgeIDs = nil
			}
			var wantEdges []string
			if len(tt.wantEdges) > 0 {
				wantEdges = tt.wantEdges
			}
			if !reflect.DeepEqual(edgeIDs, wantEdges) {
				t.Fatalf("edges = %v, want %v", edgeIDs, wantEdges)
			}
		})
	}
}

func TestNeighborsUnknownCenter(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Neighbors(context.Background(), "c1", "missing", 1); err == nil {
		t.Fatalf("expected error for unknown center node")
	}
}

func TestFindPaths(t *testing.T) {
	client := newTestClient(t)
	buildChain(t, client)
	ctx := context.Background()

	tests := []struct {
		name    string
		start   string
		end     string
		maxHops int
		want    []common.Path
	}{
		{
			name:    "direct edge",
			start:   "alice",
			end:     "acme",
			maxHops: 4,
			want:    []common.Path{{NodeIDs: []string{"alice", "acme"}}},
		},
		{
			name:    "all shortest paths in order",
			start:   "alice",
			end:     "bob",
			maxHops: 4,
			want:    []common.Path{{NodeIDs: []string{"alice", "bob"}}},
		},
		{
			name:    "two hop path against edge direction",
			start:   "zurich",
			end:     "alice",
			maxHops: 4,
			want:    []common.Path{{NodeIDs: []string{"zurich", "acme", "alice"}}},
		},
		{
			name:    "same start and end",
			start:   "alice",
			end:     "alice",
			maxHops: 4,
			want:    []common.Path{{NodeIDs: []string{"alice"}}},
		},
		{
			name:    "hop budget too small",
			start:   "zurich",
			end:     "alice",
			maxHops: 1,
			want:    nil,
		},
		{
			name:    "missing endpoint yields empty result",
			start:   "alice",
			end:     "ghost",
			maxHops: 4,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated, err := client.FindPaths(ctx, "c1", tt.start, tt.end, tt.maxHops)
			if err != nil {
				t.Fatalf("FindPaths failed: %v", err)
			}
			if truncated {
				t.Fatalf("unexpected truncation")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("paths = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindPathsMultipleShortest(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// Diamond: a -> b -> d and a -> c -> d are both shortest.
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := client.UpsertNode(ctx, "c1", common.Node{ID: id, Name: id, Type: "Person"}); err != nil {
			t.Fatalf("UpsertNode failed: %v", err)
		}
	}
	for _, edge := range []common.Edge{
		{ID: "e1", Type: "COMMUNICATED_WITH", SourceID: "a", TargetID: "b"},
		{ID: "e2", Type: "COMMUNICATED_WITH", SourceID: "a", TargetID: "c"},
		{ID: "e3", Type: "COMMUNICATED_WITH", SourceID: "b", TargetID: "d"},
		{ID: "e4", Type: "COMMUNICATED_WITH", SourceID: "c", TargetID: "d"},
	} {
		if _, err := client.AddEdge(ctx, "c1", edge); err != nil {
			t.Fatalf("AddEdge failed: %v", err)
		}
	}

	paths, truncated, err := client.FindPaths(ctx, "c1", "a", "d", 4)
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if truncated {
		t.Fatalf("unexpected truncation")
	}
	want := []common.Path{
		{NodeIDs: []string{"a", "b", "d"}},
		{NodeIDs: []string{"a", "c", "d"}},
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestFindPathsCapsDiamondChain(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// Seven diamonds in a row give 2^7 = 128 equal-length shortest paths
	// between the chain ends, well past the cap.
	const diamonds = 7
	upsert := func(id string) {
		if _, err := client.UpsertNode(ctx, "c1", common.Node{ID: id, Name: id, Type: "Person"}); err != nil {
			t.Fatalf("UpsertNode(%s) failed: %v", id, err)
		}
	}
	addEdge := func(id, src, tgt string) {
		edge := common.Edge{ID: id, Type: "COMMUNICATED_WITH", SourceID: src, TargetID: tgt}
		if _, err := client.AddEdge(ctx, "c1", edge); err != nil {
			t.Fatalf("AddEdge(%s) failed: %v", id, err)
		}
	}
	upsert("j0")
	for i := 0; i < diamonds; i++ {
		from := fmt.Sprintf("j%d", i)
		to := fmt.Sprintf("j%d", i+1)
		left := from + "a"
		right := from + "b"
		upsert(left)
		upsert(right)
		upsert(to)
		addEdge(fmt.Sprintf("e%da1", i), from, left)
		addEdge(fmt.Sprintf("e%da2", i), left, to)
		addEdge(fmt.Sprintf("e%db1", i), from, right)
		addEdge(fmt.Sprintf("e%db2", i), right, to)
	}

	paths, truncated, err := client.FindPaths(ctx, "c1", "j0", fmt.Sprintf("j%d", diamonds), 2*diamonds)
	if err != nil {
		t.Fatalf("FindPaths failed: %v", err)
	}
	if !truncated {
		t.Fatalf("expected truncation with 128 shortest paths")
	}
	if len(paths) != PathCap {
		t.Fatalf("len(paths) = %d, want %d", len(paths), PathCap)
	}

	// Smallest path takes the "a" branch through every diamond.
	wantFirst := []string{"j0"}
	for i := 0; i < diamonds; i++ {
		wantFirst = append(wantFirst, fmt.Sprintf("j%da", i), fmt.Sprintf("j%d", i+1))
	}
	if !reflect.DeepEqual(paths[0].NodeIDs, wantFirst) {
		t.Fatalf("paths[0] = %v, want %v", paths[0].NodeIDs, wantFirst)
	}

	less := func(a, b []string) bool {
		for i := 0; i < len(a) && i < len(b); i++ {
			if a[i] != b[i] {
				return a[i] < b[i]
			}
		}
		return len(a) < len(b)
	}
	for i := 1; i < len(paths); i++ {
		if len(paths[i].NodeIDs) != 2*diamonds+1 {
			t.Fatalf("paths[%d] has %d nodes, want %d", i, len(paths[i].NodeIDs), 2*diamonds+1)
		}
		if !less(paths[i-1].NodeIDs, paths[i].NodeIDs) {
			t.Fatalf("paths[%d] %v not before paths[%d] %v", i-1, paths[i-1].NodeIDs, i, paths[i].NodeIDs)
		}
	}
}
