package layeng

import "sort"

// node is the engine's working record for one layout element.
type node struct {
	Node
	layer int
	order int // position within the layer
}

// graph is the internal adjacency view of a Request.
type graph struct {
	nodes    map[string]*node
	ids      []string // insertion order, for deterministic iteration
	outgoing map[string][]string
	incoming map[string][]string
}

func buildGraph(req Request) *graph {
	g := &graph{
		nodes:    make(map[string]*node, len(req.Nodes)),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
	for _, n := range req.Nodes {
		g.nodes[n.ID] = &node{Node: n}
		g.ids = append(g.ids, n.ID)
	}
	for _, e := range req.Edges {
		if _, ok := g.nodes[e.From.Node]; !ok {
			continue
		}
		if _, ok := g.nodes[e.To.Node]; !ok {
			continue
		}
		g.outgoing[e.From.Node] = append(g.outgoing[e.From.Node], e.To.Node)
		g.incoming[e.To.Node] = append(g.incoming[e.To.Node], e.From.Node)
	}
	return g
}

// breakCycles removes back edges found by depth-first search so the
// layering pass sees an acyclic graph. Register feedback loops are the
// usual source. Returns the number of edges dropped from the working
// adjacency (the routed edges themselves survive; only layering ignores
// them).
func (g *graph) breakCycles() int {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var backEdges [][2]string

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range g.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				backEdges = append(backEdges, [2]string{id, child})
			}
		}
		color[id] = black
	}

	for _, id := range g.ids {
		if len(g.incoming[id]) == 0 && color[id] == white {
			dfs(id)
		}
	}
	for _, id := range g.ids {
		if color[id] == white {
			dfs(id)
		}
	}

	for _, e := range backEdges {
		g.removeEdge(e[0], e[1])
	}
	return len(backEdges)
}

func (g *graph) removeEdge(from, to string) {
	g.outgoing[from] = removeFirst(g.outgoing[from], to)
	g.incoming[to] = removeFirst(g.incoming[to], from)
}

func removeFirst(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// assignLayers computes layer assignments with a longest-path topological
// traversal: every node lands one past its deepest parent. Pinned-first
// nodes stay at layer 0; pinned-last nodes move to the final layer
// afterwards.
func (g *graph) assignLayers() {
	inDegree := make(map[string]int, len(g.nodes))
	queue := make([]string, 0, len(g.nodes))

	for _, id := range g.ids {
		degree := len(g.incoming[id])
		inDegree[id] = degree
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range g.outgoing[curr] {
			if l := g.nodes[curr].layer + 1; l > g.nodes[child].layer {
				g.nodes[child].layer = l
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	maxLayer := 0
	for _, n := range g.nodes {
		if n.Pin == PinFirst {
			n.layer = 0
		}
		if n.layer > maxLayer {
			maxLayer = n.layer
		}
	}

	// Outputs take a dedicated final layer so no logic shares their
	// column.
	last := maxLayer
	for _, n := range g.nodes {
		if n.Pin == PinLast {
			last = maxLayer + 1
			break
		}
	}
	for _, n := range g.nodes {
		if n.Pin == PinLast {
			n.layer = last
		}
	}
}

// layers groups node ids by layer, in deterministic order.
func (g *graph) layers() [][]string {
	maxLayer := 0
	for _, n := range g.nodes {
		if n.layer > maxLayer {
			maxLayer = n.layer
		}
	}
	out := make([][]string, maxLayer+1)
	for _, id := range g.ids {
		l := g.nodes[id].layer
		out[l] = append(out[l], id)
	}
	return out
}

// orderLayers runs a few barycenter sweeps: each node moves toward the
// mean order of its neighbors in the adjacent layer. This tames, but does
// not minimize, crossings.
func (g *graph) orderLayers(layers [][]string) {
	for _, ids := range layers {
		for i, id := range ids {
			g.nodes[id].order = i
		}
	}

	const sweeps = 4
	for s := 0; s < sweeps; s++ {
		// Left-to-right on even sweeps, right-to-left on odd.
		if s%2 == 0 {
			for l := 1; l < len(layers); l++ {
				g.barycenterSort(layers[l], g.incoming)
			}
		} else {
			for l := len(layers) - 2; l >= 0; l-- {
				g.barycenterSort(layers[l], g.outgoing)
			}
		}
	}
}

// barycenterSort reorders one layer in place by the mean order of each
// node's neighbors. Nodes without neighbors keep their relative order.
func (g *graph) barycenterSort(ids []string, adj map[string][]string) {
	type keyed struct {
		id  string
		key float64
	}
	out := make([]keyed, len(ids))
	for i, id := range ids {
		neighbors := adj[id]
		if len(neighbors) == 0 {
			out[i] = keyed{id, float64(g.nodes[id].order)}
			continue
		}
		sum := 0
		for _, nb := range neighbors {
			sum += g.nodes[nb].order
		}
		out[i] = keyed{id, float64(sum) / float64(len(neighbors))}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].key < out[j].key })
	for i, k := range out {
		ids[i] = k.id
		g.nodes[k.id].order = i
	}
}
