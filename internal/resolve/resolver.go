package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/glob"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/target"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// Library block fields.
const (
	FieldStatic  = "static"
	FieldDynamic = "dynamic"
	FieldPath    = "path"
)

// Resolver resolves projects against one frozen environment.
type Resolver struct {
	registry *registry.Registry
	env      *env.Environment
	matcher  glob.Matcher
}

// New creates a Resolver. The environment must already be frozen.
func New(r *registry.Registry, e *env.Environment, m glob.Matcher) *Resolver {
	return &Resolver{registry: r, env: e, matcher: m}
}

// Result is the outcome of resolving one project.
type Result struct {
	Project *project.Project
	Err     error
}

// ResolveAll resolves every project, at most threads at a time. Failures are
// reported per project and do not stop the others. Results follow the input
// order.
func (r *Resolver) ResolveAll(ctx context.Context, projects []*project.Project, threads int) []Result {
	results := make([]Result, len(projects))
	var g errgroup.Group
	if threads > 0 {
		g.SetLimit(threads)
	}
	for i, p := range projects {
		i, p := i, p
		results[i].Project = p
		g.Go(func() error {
			results[i].Err = r.ResolveProject(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ResolveProject fills p's resolved state from its descriptor. Earlier
// resolved state is discarded first.
func (r *Resolver) ResolveProject(ctx context.Context, p *project.Project) error {
	logger := ctxlog.FromContext(ctx).With("project", p.Name)
	logger.Debug("Resolving project.")
	if !r.env.Frozen() {
		return fmt.Errorf("project %s: environment must be frozen before resolution", p.Name)
	}

	p.ResetResolved()
	e := r.env
	raw := cty.EmptyObjectVal
	if p.Raw != nil {
		raw = p.Raw.Value()
	}
	targets := p.TargetsBlock()

	if unknown := algebra.ScanUnknown(raw); len(unknown) > 0 {
		logger.Warn("Unknown predicates are treated as satisfied.", "predicates", unknown)
	}
	present := r.presentFamilies(ctx, targets)

	if e.Compiler() == env.CompilerClang && e.IsRelease() {
		p.LinkFlags = []string{"-fuse-ld=gold"}
	}
	if err := r.solveLinkage(p, raw); err != nil {
		return fmt.Errorf("project %s: %w", p.Name, err)
	}

	for _, f := range present {
		if m, ok := f.(registry.ProjectMutator); ok {
			m.MutateProject(ctx, p, e)
		}
	}

	for _, d := range p.LinkDependencies() {
		switch d.Kind {
		case project.KindStatic:
			p.LibStatic = algebra.CombineElements(p.LibStatic, []string{d.Name}, nil)
		case project.KindDynamic:
			p.LibDynamic = algebra.CombineElements(p.LibDynamic, []string{d.Name}, nil)
		}
	}
	p.LibDirs = algebra.CombineElements(p.LibDirs, e.LibDirs(), nil)

	for _, f := range present {
		if err := r.registry.Unavailable(f.Prefix()); err != nil {
			return fmt.Errorf("project %s: target %s: %w", p.Name, f.Prefix(), err)
		}
		block, _ := target.Bucket(targets, f.Prefix())
		t, err := f.Resolve(ctx, &registry.Request{
			Project: p,
			Env:     e,
			Targets: targets,
			Block:   block,
			Matcher: r.matcher,
		})
		if err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
		p.Targets = append(p.Targets, t)
	}

	logger.Debug("Project resolved.", "targets", len(p.Targets), "lib_static", p.LibStatic, "lib_dynamic", p.LibDynamic)
	return nil
}

// presentFamilies returns the families that have a block in targets, in
// registration order. Blocks that are neither a family nor a shared bucket
// are logged and skipped.
func (r *Resolver) presentFamilies(ctx context.Context, targets cty.Value) []registry.Family {
	var out []registry.Family
	for _, f := range r.registry.Families() {
		if _, ok := target.Bucket(targets, f.Prefix()); ok {
			out = append(out, f)
		}
	}

	if !targets.Type().IsObjectType() && !targets.Type().IsMapType() {
		return out
	}
	var unknown []string
	for it := targets.ElementIterator(); it.Next(); {
		k, _ := it.Element()
		name := k.AsString()
		if _, ok := r.registry.Family(name); ok || r.registry.IsShared(name) {
			continue
		}
		unknown = append(unknown, name)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		ctxlog.FromContext(ctx).Warn("Skipping unknown target families.", "families", unknown)
	}
	return out
}

// solveLinkage resolves link flags, the library block and frameworks.
func (r *Resolver) solveLinkage(p *project.Project, raw cty.Value) error {
	e := r.env
	expand := algebra.ExpandFacts("$")

	var err error
	if p.LinkFlags, err = target.Layer(p.LinkFlags, raw, project.FieldLinkFlags, e, expand); err != nil {
		return err
	}
	if p.Frameworks, err = target.Layer(p.Frameworks, raw, project.FieldFramework, e, expand); err != nil {
		return err
	}

	lib, ok := algebra.Field(raw, project.FieldLibrary)
	if !ok {
		return nil
	}
	l := target.Layers{Block: lib, Facts: e}
	l.List(&p.LibStatic, FieldStatic, expand)
	l.List(&p.LibDynamic, FieldDynamic, expand)
	l.List(&p.LibDirs, FieldPath, algebra.Chain(expand, algebra.AbsUnder(p.Dir(e.RootDir()))))
	return l.Err(project.FieldLibrary)
}
