// Package ispc resolves the "ispc" family for the Intel SPMD Program Compiler.
// The compiler emits one object per SIMD dispatch target.
package ispc

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/target"
)

// Prefix is the family's language prefix.
const Prefix = "ispc"

// FieldTargets names the dispatch targets field of an ispc block.
const FieldTargets = "targets"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the ispc family.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Family{})
}

// Family resolves ispc blocks.
type Family struct{}

// Prefix implements registry.Family.
func (f *Family) Prefix() string { return Prefix }

// Target is a resolved ispc block.
type Target struct {
	target.Base
	Dispatch []string
}

// Resolve implements registry.Family.
func (f *Family) Resolve(ctx context.Context, req *registry.Request) (project.Target, error) {
	e := req.Env
	t := &Target{Base: target.NewBase(Prefix, defaultFlags(e)...)}
	if e.Arch() == "arm" {
		t.Dispatch = []string{"neon-i32x4"}
	} else {
		t.Dispatch = []string{"sse4", "avx2"}
	}
	if err := t.Solve(req); err != nil {
		return nil, err
	}

	l := target.Layers{Block: req.Block, Facts: e}
	l.List(&t.Dispatch, FieldTargets, nil)
	if err := l.Err(Prefix); err != nil {
		return nil, fmt.Errorf("target %s: %w", Prefix, err)
	}
	if len(t.Dispatch) == 0 {
		return nil, fmt.Errorf("target %s: no dispatch targets left", Prefix)
	}
	t.Finish(req)

	ctxlog.FromContext(ctx).Debug("ISPC target resolved.", "dispatch", t.Dispatch)
	return t, nil
}

// Emit implements project.Target.
func (t *Target) Emit(w *fragment.Writer) {
	t.EmitBase(w)
	w.Assign(Prefix+"_targets", t.Dispatch...)
	w.Append(Prefix+"_flags", "--target="+strings.Join(t.Dispatch, ","))
}

func defaultFlags(e *env.Environment) []string {
	flags := []string{"-g", "-O2", "--opt=fast-math", "--pic"}
	switch e.Platform() {
	case env.PlatformX64:
		return append(flags, "--arch=x86-64")
	case env.PlatformX86:
		return append(flags, "--arch=x86")
	case env.PlatformARM64:
		return append(flags, "--arch=aarch64")
	}
	return append(flags, "--arch=arm")
}
