package testutil

import (
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// FakeMatcher matches patterns against an in-memory list of absolute file
// paths instead of the disk.
type FakeMatcher struct {
	Files []string
}

// Match implements glob.Matcher.
func (m *FakeMatcher) Match(base, pattern string) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, pattern)
	}
	full = filepath.ToSlash(full)

	var out []string
	for _, f := range m.Files {
		ok, err := doublestar.Match(full, filepath.ToSlash(f))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if filepath.IsAbs(pattern) {
			out = append(out, f)
			continue
		}
		rel, err := filepath.Rel(base, f)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}
