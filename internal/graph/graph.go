// Package graph implements the dependency graph engine (spec.md §4.3): a
// small directed-graph toolkit used three ways — the foreign-key graph
// (cycle-fatal), each table's calculated-column graph (cycle-fatal,
// topologically sorted), and the automation graph (cycles permitted,
// reachability-only).
package graph

import "fmt"

// Graph is a directed graph over string-named nodes.
type Graph struct {
	Nodes map[string]bool
	Edges map[string][]string // node -> nodes it depends on
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes: make(map[string]bool),
		Edges: make(map[string][]string),
	}
}

// AddNode registers a node with no edges if it isn't already present.
func (g *Graph) AddNode(n string) {
	if !g.Nodes[n] {
		g.Nodes[n] = true
	}
	if g.Edges[n] == nil {
		g.Edges[n] = nil
	}
}

// AddEdge records that `from` depends on `to`. Both nodes are registered
// if not already present.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.Edges[from] = append(g.Edges[from], to)
}

// CycleError reports a cycle found during traversal, with the offending
// path for diagnostics.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	s := "cycle detected: "
	for i, n := range e.Path {
		if i > 0 {
			s += " -> "
		}
		s += n
	}
	return s
}

// DetectCycle runs DFS from every node looking for a back-edge, returning
// the first cycle found as a CycleError, or nil if the graph is acyclic.
func (g *Graph) DetectCycle() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS stack
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.Nodes))
	var stack []string

	var visit func(n string) error
	visit = func(n string) error {
		color[n] = gray
		stack = append(stack, n)
		for _, next := range g.Edges[n] {
			switch color[next] {
			case white:
				if err := visit(next); err != nil {
					return err
				}
			case gray:
				path := append([]string{}, stack...)
				path = append(path, next)
				return &CycleError{Path: cyclePathFrom(path, next)}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return nil
	}

	for n := range g.Nodes {
		if color[n] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePathFrom trims path down to the repeated segment starting at the
// node that closes the cycle, so the reported path reads as a minimal
// loop rather than the whole DFS stack.
func cyclePathFrom(path []string, repeated string) []string {
	for i, n := range path {
		if n == repeated {
			return path[i:]
		}
	}
	return path
}

// TopoSort returns nodes in dependency order (a node appears after
// everything it depends on) using Kahn's algorithm. It assumes the graph
// is acyclic; call DetectCycle first if that isn't already known.
func (g *Graph) TopoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for n := range g.Nodes {
		indegree[n] = 0
	}
	// Edges point from dependent to dependency; a node's indegree here is
	// the number of its own dependencies not yet emitted, so each edge
	// increments the indegree of its *source*.
	//
	// Simpler framing: build a reversed adjacency (dependency -> dependent)
	// and run Kahn over that, which naturally yields dependency-first
	// order.
	reverse := make(map[string][]string, len(g.Nodes))
	for n := range g.Nodes {
		reverse[n] = nil
	}
	for from, tos := range g.Edges {
		for _, to := range tos {
			reverse[to] = append(reverse[to], from)
			indegree[from]++
		}
	}

	var queue []string
	for n := range g.Nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	// Deterministic order: sort the initial queue and each expansion.
	sortStrings(queue)

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		var newlyReady []string
		for _, dependent := range reverse[n] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sortStrings(newlyReady)
		queue = append(queue, newlyReady...)
		sortStrings(queue)
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("graph: topological sort failed, a cycle remains")
	}
	return order, nil
}

// Reachable returns the set of nodes reachable from start by following
// edges forward (start -> Edges[start] -> ...), via BFS. Cycles are
// tolerated; each node is visited once.
func (g *Graph) Reachable(start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range g.Edges[n] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	delete(seen, start)
	return seen
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}
