package fsutil

import (
	"path/filepath"
	"strings"
)

// IsWithin reports whether path lies inside dir (or is dir). Both paths must
// be absolute and clean.
func IsWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// CommonAncestor returns the deepest directory containing both a and b.
func CommonAncestor(a, b string) string {
	a, b = filepath.Clean(a), filepath.Clean(b)
	as := splitPath(a)
	bs := splitPath(b)
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	if n == 0 {
		if filepath.IsAbs(a) {
			return string(filepath.Separator)
		}
		return "."
	}
	joined := filepath.Join(as[:n]...)
	if filepath.IsAbs(a) {
		return string(filepath.Separator) + joined
	}
	return joined
}

func splitPath(p string) []string {
	p = strings.TrimPrefix(p, string(filepath.Separator))
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, string(filepath.Separator))
}
