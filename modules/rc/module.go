// Package rc resolves the "rc" family: resource files embedded into the
// artifact. It carries only sources and flags.
package rc

import (
	"context"

	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/target"
)

// Prefix is the family's language prefix.
const Prefix = "rc"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the rc family.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Family{})
}

// Family resolves rc blocks.
type Family struct{}

// Prefix implements registry.Family.
func (f *Family) Prefix() string { return Prefix }

// Target is a resolved rc block.
type Target struct {
	target.Base
}

// Resolve implements registry.Family.
func (f *Family) Resolve(_ context.Context, req *registry.Request) (project.Target, error) {
	t := &Target{Base: target.NewBase(Prefix)}
	if err := t.Solve(req); err != nil {
		return nil, err
	}
	t.Finish(req)
	return t, nil
}

// Emit implements project.Target.
func (t *Target) Emit(w *fragment.Writer) {
	t.EmitBase(w)
}
