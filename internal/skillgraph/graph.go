package skillgraph

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	ErrUnknownToken         = errors.New("unknown token")
	ErrDuplicateToken       = errors.New("duplicate token")
	ErrDanglingPrerequisite = errors.New("dangling prerequisite")
	ErrCycleDetected        = errors.New("cycle detected")
)

// Graph is the immutable knowledge token DAG with precomputed indices.
// Tokens live in a single arena; edges are token IDs resolved through byID.
// A Graph is never mutated after Build and is safe for concurrent reads.
type Graph struct {
	tokens     []Token
	byID       map[string]int
	dependents map[string][]string
	roots      []string
	topoOrder  []string
	topoIndex  map[string]int
}

// Build validates the token declarations and constructs the graph.
// Prerequisites may reference tokens declared later in the slice.
func Build(tokens []Token) (*Graph, error) {
	if err := validateTokens(tokens); err != nil {
		return nil, err
	}

	gr := &Graph{
		tokens:     make([]Token, len(tokens)),
		byID:       make(map[string]int, len(tokens)),
		dependents: make(map[string][]string),
		topoIndex:  make(map[string]int, len(tokens)),
	}

	for i, t := range tokens {
		t.Prerequisites = slices.Clone(t.Prerequisites)
		gr.tokens[i] = t
		gr.byID[t.ID] = i
	}

	// Reverse edges
	for _, t := range gr.tokens {
		for _, prereqID := range t.Prerequisites {
			gr.dependents[prereqID] = append(gr.dependents[prereqID], t.ID)
		}
	}
	for id := range gr.dependents {
		sort.Strings(gr.dependents[id])
	}

	// Topological sort (Kahn's algorithm), ties broken by ID
	inDegree := make(map[string]int, len(gr.tokens))
	var queue []string
	for _, t := range gr.tokens {
		inDegree[t.ID] = len(t.Prerequisites)
		if len(t.Prerequisites) == 0 {
			queue = append(queue, t.ID)
			gr.roots = append(gr.roots, t.ID)
		}
	}
	sort.Strings(queue)
	sort.Strings(gr.roots)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		gr.topoIndex[id] = len(gr.topoOrder)
		gr.topoOrder = append(gr.topoOrder, id)

		var ready []string
		for _, depID := range gr.dependents[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				ready = append(ready, depID)
			}
		}
		queue = append(queue, ready...)
		sort.Strings(queue)
	}

	return gr, nil
}

// Len returns the number of tokens in the graph.
func (g *Graph) Len() int {
	return len(g.tokens)
}

// Has reports whether a token with the given ID exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// Get returns a token by ID.
func (g *Graph) Get(id string) (Token, error) {
	i, ok := g.byID[id]
	if !ok {
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownToken, id)
	}
	t := g.tokens[i]
	t.Prerequisites = slices.Clone(t.Prerequisites)
	return t, nil
}

// All returns every token in declaration order.
func (g *Graph) All() []Token {
	out := make([]Token, len(g.tokens))
	for i, t := range g.tokens {
		t.Prerequisites = slices.Clone(t.Prerequisites)
		out[i] = t
	}
	return out
}

// PrerequisitesOf returns the direct prerequisite IDs of a token.
func (g *Graph) PrerequisitesOf(id string) ([]string, error) {
	i, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, id)
	}
	return slices.Clone(g.tokens[i].Prerequisites), nil
}

// Dependents returns the IDs of tokens that directly depend on the given token.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// Roots returns the IDs of tokens without prerequisites, sorted.
func (g *Graph) Roots() []string {
	return slices.Clone(g.roots)
}

// Ancestors returns the transitive prerequisites of a token in depth-first
// pre-order: each prerequisite is followed by its own ancestors before the
// next sibling. The closure is computed on demand; nothing is cached on the
// graph.
func (g *Graph) Ancestors(id string) ([]string, error) {
	if _, ok := g.byID[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, id)
	}

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int)
	var out []string

	var visit func(string) error
	visit = func(cur string) error {
		state[cur] = inProgress
		for _, p := range g.tokens[g.byID[cur]].Prerequisites {
			switch state[p] {
			case inProgress:
				return fmt.Errorf("%w: via %q -> %q", ErrCycleDetected, cur, p)
			case unvisited:
				out = append(out, p)
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		state[cur] = done
		return nil
	}

	if err := visit(id); err != nil {
		return nil, err
	}
	return out, nil
}

// TopologicalOrder returns all token IDs with every prerequisite before its
// dependents. The order is deterministic for a given token set.
func (g *Graph) TopologicalOrder() []string {
	return slices.Clone(g.topoOrder)
}

// TopoIndex returns the position of a token in TopologicalOrder, or -1.
func (g *Graph) TopoIndex(id string) int {
	i, ok := g.topoIndex[id]
	if !ok {
		return -1
	}
	return i
}
