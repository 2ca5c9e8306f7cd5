package corpus

import "sort"

// Graph is the citation adjacency structure, keyed by stable document IDs.
// Citation graphs are naturally cyclic, so edges are stored as ID sets
// rather than object references. Built once per corpus version; read-only
// afterwards.
type Graph struct {
	neighbors map[string][]string
}

// NewGraph builds the adjacency structure from a document set.
// Both directions (cites and cited-by) become undirected proximity edges.
// Edges pointing outside the corpus are dropped.
func NewGraph(docs []*Document) *Graph {
	known := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		known[d.ID] = struct{}{}
	}

	adj := make(map[string]map[string]struct{}, len(docs))
	addEdge := func(a, b string) {
		if a == b {
			return
		}
		if _, ok := known[a]; !ok {
			return
		}
		if _, ok := known[b]; !ok {
			return
		}
		if adj[a] == nil {
			adj[a] = make(map[string]struct{})
		}
		if adj[b] == nil {
			adj[b] = make(map[string]struct{})
		}
		adj[a][b] = struct{}{}
		adj[b][a] = struct{}{}
	}

	for _, d := range docs {
		for _, cited := range d.Cites {
			addEdge(d.ID, cited)
		}
		for _, citing := range d.CitedBy {
			addEdge(d.ID, citing)
		}
	}

	// Sorted neighbor lists keep traversal order deterministic.
	neighbors := make(map[string][]string, len(adj))
	for id, set := range adj {
		list := make([]string, 0, len(set))
		for n := range set {
			list = append(list, n)
		}
		sort.Strings(list)
		neighbors[id] = list
	}

	return &Graph{neighbors: neighbors}
}

// Neighbors returns the documents directly connected to id by a citation
// edge in either direction. Returns nil for unknown IDs.
func (g *Graph) Neighbors(id string) []string {
	return g.neighbors[id]
}

// Walk performs a breadth-first expansion from the seed set up to maxHops
// and returns the minimum hop distance for every reached non-seed document.
// Seeds themselves are excluded from the result.
func (g *Graph) Walk(seeds []string, maxHops int) map[string]int {
	if maxHops <= 0 || len(seeds) == 0 {
		return map[string]int{}
	}

	visited := make(map[string]int, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := visited[s]; !ok {
			visited[s] = 0
			frontier = append(frontier, s)
		}
	}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, n := range g.neighbors[id] {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = hop
				next = append(next, n)
			}
		}
		frontier = next
	}

	result := make(map[string]int, len(visited))
	for id, hop := range visited {
		if hop > 0 {
			result[id] = hop
		}
	}
	return result
}

// Size returns the number of documents with at least one citation edge.
func (g *Graph) Size() int {
	return len(g.neighbors)
}
