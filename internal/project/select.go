package project

import (
	"regexp"
	"sort"
	"strings"
)

var selectorToken = regexp.MustCompile(`[-.\w']+`)

// Reserved selector tokens.
const (
	SelectAll           = "all"
	SelectAllDynamic    = "all-dynamic"
	SelectAllStatic     = "all-static"
	SelectAllExecutable = "all-executable"
)

// Select resolves a selector expression such as "all,-tests core" into
// (named ∪ reserved expansions) − excluded. Names without a project are
// returned in unknown; both results are sorted.
func (s *ProjectSet) Select(expr string) (selected []*Project, unknown []string) {
	names := make(map[string]struct{})
	for _, tok := range selectorToken.FindAllString(expr, -1) {
		names[tok] = struct{}{}
	}

	expand := func(token string, projects []*Project) {
		if _, ok := names[token]; !ok {
			return
		}
		delete(names, token)
		for _, p := range projects {
			names[p.Name] = struct{}{}
		}
	}
	expand(SelectAll, s.All())
	expand(SelectAllDynamic, s.OfKind(KindDynamic))
	expand(SelectAllStatic, s.OfKind(KindStatic))
	expand(SelectAllExecutable, s.OfKind(KindExecutable))
	for n := range names {
		if excluded, ok := strings.CutPrefix(n, "-"); ok {
			delete(names, n)
			delete(names, excluded)
		}
	}

	keys := make([]string, 0, len(names))
	for n := range names {
		keys = append(keys, n)
	}
	sort.Strings(keys)
	for _, n := range keys {
		if p, ok := s.projects[n]; ok {
			selected = append(selected, p)
		} else {
			unknown = append(unknown, n)
		}
	}
	return selected, unknown
}
