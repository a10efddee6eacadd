// Package dag is the dependency graph behind project build ordering. Nodes are
// project names; an edge from A to B records that B depends on A. The graph
// answers cycle queries and computes pass-based topological orders over a
// subset of its nodes.
package dag
