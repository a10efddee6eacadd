// Package nasm resolves the "nasm" target family for the Netwide Assembler.
package nasm

import (
	"context"
	"fmt"

	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/target"
)

// Prefix is the family's language prefix.
const Prefix = "nasm"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the nasm family.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Family{})
}

// Family resolves nasm blocks.
type Family struct{}

// Prefix implements registry.Family.
func (f *Family) Prefix() string { return Prefix }

// Target is a resolved nasm block.
type Target struct {
	target.Base
	IncPath []string
	Defines []string
}

// Resolve implements registry.Family.
func (f *Family) Resolve(ctx context.Context, req *registry.Request) (project.Target, error) {
	t := &Target{Base: target.NewBase(Prefix, defaultFlags(req.Env)...)}
	if err := t.Solve(req); err != nil {
		return nil, err
	}

	l := target.Layers{Block: req.Block, Facts: req.Env}
	l.List(&t.IncPath, target.FieldIncPath, nil)
	l.List(&t.Defines, target.FieldDefines, nil)
	if err := l.Err(Prefix); err != nil {
		return nil, fmt.Errorf("target %s: %w", Prefix, err)
	}
	for _, d := range t.Defines {
		t.Flags = append(t.Flags, "-D"+d)
	}
	t.Finish(req, &t.IncPath)

	ctxlog.FromContext(ctx).Debug("NASM target resolved.", "sources", len(t.Sources))
	return t, nil
}

// Emit implements project.Target.
func (t *Target) Emit(w *fragment.Writer) {
	t.EmitBase(w)
	w.Assign(Prefix+"_incpaths", t.IncPath...)
}

// defaultFlags picks the object format for the host OS and bitness.
func defaultFlags(e *env.Environment) []string {
	flags := []string{"-g"}
	bits := e.Bits()
	switch e.OSName() {
	case "Darwin":
		flags = append(flags, "-DMACHO", fmt.Sprintf("-f macho%d", bits))
	case "Windows":
		flags = append(flags, "-DWIN", fmt.Sprintf("-f win%d", bits))
	default:
		flags = append(flags, "-DELF", fmt.Sprintf("-f elf%d", bits))
	}
	if e.Platform() == env.PlatformX64 {
		flags = append(flags, "-D__x86_64__")
	}
	return flags
}
