package target

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/registry"
)

// Fields shared by the families.
const (
	FieldSources    = "sources"
	FieldFlags      = "flags"
	FieldDefines    = "defines"
	FieldIncPath    = "incpath"
	FieldDebug      = "debug"
	FieldOptimize   = "optimize"
	FieldVersion    = "version"
	FieldPCH        = "pch"
	FieldVisibility = "visibility"
	FieldLTO        = "lto"
)

// Base is the part of a target every family has.
type Base struct {
	prefix  string
	Sources []string
	Flags   []string
}

// NewBase starts a target with the family's default flags.
func NewBase(prefix string, flags ...string) Base {
	return Base{prefix: prefix, Flags: append([]string(nil), flags...)}
}

// Prefix returns the language prefix.
func (b *Base) Prefix() string { return b.prefix }

// SourceFiles returns the resolved source list.
func (b *Base) SourceFiles() []string { return b.Sources }

// EmitBase writes the section header, sources and flags.
func (b *Base) EmitBase(w *fragment.Writer) {
	w.Section(fmt.Sprintf("For target [%s]", b.prefix))
	w.Assign(b.prefix+"_srcs", b.Sources...)
	w.Assign(b.prefix+"_flags", b.Flags...)
}

// Solve resolves sources, then layers the block's flags onto the defaults.
func (b *Base) Solve(req *registry.Request) error {
	if err := b.SolveSources(req); err != nil {
		return err
	}
	flags, err := Layer(b.Flags, req.Block, FieldFlags, req.Env, nil)
	if err != nil {
		return fmt.Errorf("target %s: %w", b.prefix, err)
	}
	b.Flags = flags
	return nil
}

// SolveSources expands the block's source patterns under the project's source
// directory. Items written literally (not only reached through a pattern)
// survive the set arithmetic: a literal add is kept even if a delete pattern
// covers it, and a literal delete always wins.
func (b *Base) SolveSources(req *registry.Request) error {
	hook := algebra.Chain(algebra.PrefixDir(), newPlaceholders(req).hook())
	adds, dels, err := algebra.SolveElementList(req.Block, FieldSources, req.Env, hook)
	if err != nil {
		return fmt.Errorf("target %s: %w", b.prefix, err)
	}

	srcDir := req.SrcDir()
	added, err := expand(req, srcDir, adds)
	if err != nil {
		return fmt.Errorf("target %s: %w", b.prefix, err)
	}
	deleted, err := expand(req, srcDir, dels)
	if err != nil {
		return fmt.Errorf("target %s: %w", b.prefix, err)
	}
	forceAdd := intersect(added, cleaned(adds))
	forceDel := intersect(deleted, cleaned(dels))

	var out []string
	for s := range added {
		_, del := deleted[s]
		_, fa := forceAdd[s]
		_, fd := forceDel[s]
		if (!del || fa) && !fd {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	b.Sources = out
	return nil
}

type set map[string]struct{}

func expand(req *registry.Request, base string, patterns []string) (set, error) {
	out := make(set)
	for _, p := range patterns {
		found, err := req.Matcher.Match(base, p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			out[filepath.Clean(f)] = struct{}{}
		}
	}
	return out, nil
}

func cleaned(items []string) set {
	out := make(set, len(items))
	for _, item := range items {
		out[filepath.Clean(item)] = struct{}{}
	}
	return out
}

func intersect(a, b set) set {
	out := make(set)
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
