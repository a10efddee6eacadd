package dag

import "sort"

// Order computes a pass-based topological order over ids. On each pass every
// pending node whose dependencies are all emitted, or accepted by satisfied,
// is emitted in ID order. Dependencies outside ids are never emitted, so they
// must be accepted by satisfied or the node stays pending. When a pass emits
// nothing, the remaining nodes are returned as stuck, sorted.
func (g *Graph) Order(ids []string, satisfied func(id string) bool) (order, stuck []string) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make(map[string]*node, len(ids))
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			pending[id] = n
		} else {
			// unknown ids can never be ordered
			stuck = append(stuck, id)
		}
	}
	emitted := make(map[string]bool, len(ids))

	for len(pending) > 0 {
		var ready []string
		for id, n := range pending {
			if g.depsMet(n, emitted, satisfied) {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			break
		}
		sort.Strings(ready)
		for _, id := range ready {
			emitted[id] = true
			delete(pending, id)
		}
		order = append(order, ready...)
	}

	for id := range pending {
		stuck = append(stuck, id)
	}
	sort.Strings(stuck)
	return order, stuck
}

func (g *Graph) depsMet(n *node, emitted map[string]bool, satisfied func(string) bool) bool {
	for id := range n.deps {
		if emitted[id] {
			continue
		}
		if satisfied != nil && satisfied(id) {
			continue
		}
		return false
	}
	return true
}

// Closure returns ids plus every node reachable from them through dependency
// edges, in breadth-first discovery order. follow, when set, decides whether
// a dependency is traversed.
func (g *Graph) Closure(ids []string, follow func(id string) bool) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	seen := make(map[string]bool, len(ids))
	var out, queue []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for _, dep := range sortedKeys(n.deps) {
			if seen[dep] || (follow != nil && !follow(dep)) {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			queue = append(queue, dep)
		}
	}
	return out
}
