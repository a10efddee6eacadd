package dag

import (
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{id: id, deps: make(map[string]*node)}
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist. A self edge is accepted and makes the node
// unorderable.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	toNode.deps[fromID] = fromNode
	return nil
}

// FindCycle looks for a dependency cycle among ids, ignoring edges that leave
// the set. It returns the first cycle found in path order, starting and
// ending on the same id ("a", "b", "a" reads a depends on b depends on a),
// or nil. Nodes are visited in ID order.
func (g *Graph) FindCycle(ids []string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	within := make(map[string]*node, len(ids))
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			within[id] = n
		}
	}

	done := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(n *node) []string
	visit = func(n *node) []string {
		if done[n.id] {
			return nil
		}
		if onStack[n.id] {
			start := 0
			for i, id := range stack {
				if id == n.id {
					start = i
					break
				}
			}
			return append(append([]string{}, stack[start:]...), n.id)
		}

		onStack[n.id] = true
		stack = append(stack, n.id)
		for _, id := range sortedKeys(n.deps) {
			if _, ok := within[id]; !ok {
				continue
			}
			if path := visit(n.deps[id]); path != nil {
				return path
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		done[n.id] = true
		return nil
	}

	for _, id := range sortedKeys(within) {
		if path := visit(within[id]); path != nil {
			return path
		}
	}
	return nil
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
