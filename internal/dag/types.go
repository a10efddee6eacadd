package dag

import "sync"

// Graph holds project names and "depends on" edges between them. It is safe
// for concurrent use.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// node is one project vertex with the nodes it depends on.
type node struct {
	id   string
	deps map[string]*node
}
