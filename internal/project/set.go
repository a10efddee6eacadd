package project

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/dag"
	"github.com/specialistvlad/xzbuild/internal/descriptor"
	"github.com/specialistvlad/xzbuild/internal/errs"
)

// ProjectSet owns every project of a solution, keyed by name.
type ProjectSet struct {
	projects map[string]*Project
	graph    *dag.Graph
}

// NewSet creates an empty ProjectSet.
func NewSet() *ProjectSet {
	return &ProjectSet{projects: make(map[string]*Project)}
}

// Add inserts p. Duplicate names are rejected.
func (s *ProjectSet) Add(p *Project) error {
	if prev, ok := s.projects[p.Name]; ok {
		return errs.Configuration(p.BuildPath, FieldName, "project %q is already declared in %s", p.Name, prev.BuildPath)
	}
	s.projects[p.Name] = p
	s.graph = nil
	return nil
}

// Get looks a project up by name.
func (s *ProjectSet) Get(name string) (*Project, bool) {
	p, ok := s.projects[name]
	return p, ok
}

// Has reports whether name is a member.
func (s *ProjectSet) Has(name string) bool {
	_, ok := s.projects[name]
	return ok
}

// Len returns the number of projects.
func (s *ProjectSet) Len() int { return len(s.projects) }

// Names returns every project name, sorted.
func (s *ProjectSet) Names() []string {
	names := make([]string, 0, len(s.projects))
	for n := range s.projects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every project sorted by name.
func (s *ProjectSet) All() []*Project {
	out := make([]*Project, 0, len(s.projects))
	for _, n := range s.Names() {
		out = append(out, s.projects[n])
	}
	return out
}

// OfKind returns the projects of one kind, sorted by name.
func (s *ProjectSet) OfKind(k Kind) []*Project {
	var out []*Project
	for _, p := range s.All() {
		if p.Kind == k {
			out = append(out, p)
		}
	}
	return out
}

// SolveDependencies resolves every declared dependency name into an edge.
// A name without a project is a DependencyError.
func (s *ProjectSet) SolveDependencies() error {
	g := dag.New()
	for _, n := range s.Names() {
		g.AddNode(n)
	}
	for _, p := range s.All() {
		p.deps = p.deps[:0]
		for _, dep := range p.DepNames {
			d, ok := s.projects[dep]
			if !ok {
				return errs.MissingDependency(p.Name, dep)
			}
			p.deps = append(p.deps, d)
			if err := g.AddEdge(dep, p.Name); err != nil {
				return fmt.Errorf("linking %s to %s: %w", p.Name, dep, err)
			}
		}
	}
	s.graph = g
	return nil
}

// LoadTree discovers and loads every project descriptor under root, then
// resolves dependencies.
func LoadTree(ctx context.Context, root string) (*ProjectSet, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := descriptor.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	set := NewSet()
	for _, f := range files {
		doc, err := descriptor.ParseFile(ctx, f)
		if err != nil {
			return nil, err
		}
		p, err := Load(doc, root, filepath.Dir(f))
		if err != nil {
			return nil, err
		}
		if err := set.Add(p); err != nil {
			return nil, err
		}
		logger.Debug("Loaded project.", "project", p.Name, "kind", p.Kind, "path", p.BuildPath)
	}

	if err := set.SolveDependencies(); err != nil {
		return nil, err
	}
	logger.Debug("Project dependencies solved.", "count", set.Len())
	return set, nil
}
