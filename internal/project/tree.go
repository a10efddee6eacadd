package project

import (
	"fmt"

	"github.com/pterm/pterm"
)

// DependencyTree renders p and its dependencies, recursively, as a tree node.
// A dependency shared by several projects appears under each of them.
func DependencyTree(p *Project) pterm.TreeNode {
	node := pterm.TreeNode{Text: Headline(p)}
	for _, d := range p.deps {
		node.Children = append(node.Children, DependencyTree(d))
	}
	return node
}

// Headline is the one-line summary used by list output.
func Headline(p *Project) string {
	text := fmt.Sprintf("[%s](%s)", p.Name, p.Kind)
	if p.Version != "" {
		text += " " + p.Version
	}
	if p.Description != "" {
		text += " " + p.Description
	}
	return text
}
