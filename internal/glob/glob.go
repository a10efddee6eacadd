// Package glob expands source patterns against an explicit base directory.
// No working-directory state is used, so matchers are safe to share between
// concurrent project resolutions.
package glob

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher expands one pattern relative to base. Results keep the pattern's
// own relative form (e.g. "../common/a.c" for "../common/*.c") and are sorted.
// Absolute patterns yield absolute paths. Only regular files match.
type Matcher interface {
	Match(base, pattern string) ([]string, error)
}

// Doublestar matches with github.com/bmatcuk/doublestar, which adds "**".
type Doublestar struct{}

// NewDoublestar creates the default matcher.
func NewDoublestar() *Doublestar {
	return &Doublestar{}
}

// Match implements Matcher.
func (Doublestar) Match(base, pattern string) ([]string, error) {
	slashed := filepath.ToSlash(pattern)
	dir, rest := doublestar.SplitPattern(slashed)

	root := filepath.FromSlash(dir)
	if !filepath.IsAbs(root) {
		root = filepath.Join(base, root)
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("matching %q: %w", pattern, err)
	}

	found, err := doublestar.Glob(os.DirFS(root), rest, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", pattern, err)
	}
	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, filepath.Join(filepath.FromSlash(dir), filepath.FromSlash(f)))
	}
	sort.Strings(out)
	return out, nil
}
