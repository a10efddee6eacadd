package target

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/fsutil"
	"github.com/specialistvlad/xzbuild/internal/registry"
)

// Path placeholders recognized in any resolved item.
const (
	PlaceholderSolDir     = "$(SolDir)"
	PlaceholderBuildDir   = "$(BuildDir)"
	PlaceholderInstallDir = "$(InstallDir)"
)

type placeholders struct {
	r *strings.Replacer
}

func newPlaceholders(req *registry.Request) placeholders {
	root := req.Env.RootDir()
	build := filepath.Join(req.Project.Dir(root), req.Env.ObjPath())
	return placeholders{r: strings.NewReplacer(
		PlaceholderSolDir, root,
		PlaceholderBuildDir, build,
		PlaceholderInstallDir, req.Env.InstallDir(),
	)}
}

func (p placeholders) expand(items []string) []string {
	if len(items) == 0 {
		return items
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = p.r.Replace(item)
	}
	return out
}

func (p placeholders) hook() algebra.PostProc {
	return func(adds, dels []string, _ *algebra.Condition, _ algebra.Facts) ([]string, []string) {
		return p.expand(adds), p.expand(dels)
	}
}

// Finish expands placeholders in the flags and in every extra list, then
// rebases sources outside the project's source tree. A rebased source becomes
// relative to the nearest directory containing both it and the source tree,
// and that directory is added to the project's base search dirs. Sources
// inside the tree are made relative to it. Sources stay sorted and unique.
func (b *Base) Finish(req *registry.Request, lists ...*[]string) {
	ph := newPlaceholders(req)
	b.Flags = ph.expand(b.Flags)
	for _, l := range lists {
		*l = ph.expand(*l)
	}

	srcDir := req.SrcDir()
	var bases []string
	seen := make(map[string]struct{}, len(b.Sources))
	out := make([]string, 0, len(b.Sources))
	for _, s := range ph.expand(b.Sources) {
		abs := s
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(srcDir, s)
		}
		if !fsutil.IsWithin(srcDir, abs) {
			ancestor := fsutil.CommonAncestor(srcDir, filepath.Dir(abs))
			if rel, err := filepath.Rel(ancestor, abs); err == nil {
				s = rel
				bases = append(bases, ancestor)
			}
		} else if rel, err := filepath.Rel(srcDir, abs); err == nil {
			// one spelling per in-tree file
			s = rel
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	b.Sources = out
	req.Project.BaseDirs = algebra.CombineElements(req.Project.BaseDirs, bases, nil)
}
