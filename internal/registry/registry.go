package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/glob"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/zclconf/go-cty/cty"
)

// Request carries everything a family needs to resolve one block.
type Request struct {
	Project *project.Project
	Env     *env.Environment
	// Targets is the project's whole "targets" mapping, so a family can read
	// shared buckets next to its own block.
	Targets cty.Value
	// Block is the family's own block.
	Block   cty.Value
	Matcher glob.Matcher
}

// SrcDir returns the absolute source directory of the project.
func (r *Request) SrcDir() string {
	return r.Project.SrcDir(r.Env.RootDir())
}

// Family resolves one language block into a Target.
type Family interface {
	Prefix() string
	Resolve(ctx context.Context, req *Request) (project.Target, error)
}

// EnvInitializer is implemented by families that discover a toolchain once
// per run.
type EnvInitializer interface {
	InitEnv(ctx context.Context, e *env.Environment) error
}

// ProjectMutator is implemented by families whose presence imposes link
// requirements on the owning project.
type ProjectMutator interface {
	MutateProject(ctx context.Context, p *project.Project, e *env.Environment)
}

// SharedBucketer is implemented by families that read extra buckets, such
// as the "cxx" bucket shared by C, C++ and assembly.
type SharedBucketer interface {
	SharedBuckets() []string
}

// Module is the interface that all target modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered families in registration order.
type Registry struct {
	families map[string]Family
	order    []string
	// unavailable records families whose InitEnv failed.
	unavailable map[string]error
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		families:    make(map[string]Family),
		unavailable: make(map[string]error),
	}
}

// Register adds a family. A second family for the same prefix is a
// programmer error and panics.
func (r *Registry) Register(f Family) {
	prefix := f.Prefix()
	if _, ok := r.families[prefix]; ok {
		panic(fmt.Sprintf("registry: family %q registered twice", prefix))
	}
	r.families[prefix] = f
	r.order = append(r.order, prefix)
}

// Family returns the family for prefix.
func (r *Registry) Family(prefix string) (Family, bool) {
	f, ok := r.families[prefix]
	return f, ok
}

// Families returns every family in registration order.
func (r *Registry) Families() []Family {
	out := make([]Family, len(r.order))
	for i, p := range r.order {
		out[i] = r.families[p]
	}
	return out
}

// Prefixes returns every registered prefix in registration order.
func (r *Registry) Prefixes() []string {
	return append([]string(nil), r.order...)
}

// InitEnv runs every EnvInitializer. A failing family is logged and marked
// unavailable; the others are unaffected.
func (r *Registry) InitEnv(ctx context.Context, e *env.Environment) {
	logger := ctxlog.FromContext(ctx)
	for _, f := range r.Families() {
		init, ok := f.(EnvInitializer)
		if !ok {
			continue
		}
		if err := init.InitEnv(ctx, e); err != nil {
			logger.Warn("Target family unavailable.", "family", f.Prefix(), "error", err)
			r.unavailable[f.Prefix()] = err
			continue
		}
		logger.Debug("Target family initialized.", "family", f.Prefix())
	}
}

// Unavailable returns the InitEnv failure of a family, if any.
func (r *Registry) Unavailable(prefix string) error {
	return r.unavailable[prefix]
}
