package project

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/xzbuild/internal/errs"
)

// Mode selects how a requested project set is ordered.
type Mode int

const (
	// Exact orders only the requested projects. Every dependency must be
	// part of the request.
	Exact Mode = iota
	// Transitive first grows the request with its dependencies.
	Transitive
)

func (m Mode) String() string {
	if m == Transitive {
		return "transitive"
	}
	return "exact"
}

// OrderOptions configure BuildOrder.
type OrderOptions struct {
	Mode Mode
	// Kind, when set in Transitive mode, limits the closure to projects of
	// that kind. Dependencies of other kinds are treated as already built.
	Kind Kind
}

// ParseMode maps a build action name onto its base action and order mode:
// "buildall" is ("build", Transitive). ok is false for other names.
func ParseMode(action string) (base string, mode Mode, ok bool) {
	base, all := strings.CutSuffix(action, "all")
	switch base {
	case "build", "clean", "rebuild":
	default:
		return action, Exact, false
	}
	if all {
		return base, Transitive, true
	}
	return base, Exact, true
}

// BuildOrder returns projects in an order where every project follows its
// dependencies. An order that cannot be completed is a DependencyError naming
// the stuck projects.
func (s *ProjectSet) BuildOrder(projects []*Project, opts OrderOptions) ([]*Project, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("dependencies have not been solved")
	}
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.Name)
	}

	var satisfied func(string) bool
	if opts.Mode == Transitive {
		var follow func(string) bool
		if opts.Kind != "" {
			follow = func(id string) bool { return s.projects[id].Kind == opts.Kind }
		}
		ids = s.graph.Closure(ids, follow)
		if opts.Kind != "" {
			// Only dependencies left out of the closure count as built.
			closure := make(map[string]bool, len(ids))
			for _, id := range ids {
				closure[id] = true
			}
			satisfied = func(id string) bool {
				return !closure[id] && s.projects[id].Kind != opts.Kind
			}
		}
	}

	order, stuck := s.graph.Order(ids, satisfied)
	if len(stuck) > 0 {
		return nil, errs.Unsatisfiable(stuck, s.graph.FindCycle(stuck))
	}
	out := make([]*Project, len(order))
	for i, id := range order {
		out[i] = s.projects[id]
	}
	return out, nil
}
