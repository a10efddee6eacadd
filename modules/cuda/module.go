// Package cuda resolves the "cuda" family for nvcc. The toolchain home is
// discovered once per run; a project that carries a cuda block links against
// the CUDA runtime.
package cuda

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/target"
)

// Prefix is the family's language prefix, also the tool home name.
const Prefix = "cuda"

// Block fields specific to cuda.
const (
	FieldHostDebug   = "hostDebug"
	FieldDeviceDebug = "deviceDebug"
	FieldArch        = "arch"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Getenv and LookPath default to the process environment.
	Getenv   func(string) string
	LookPath func(string) (string, error)
}

// Register registers the cuda family.
func (m *Module) Register(r *registry.Registry) {
	f := &Family{getenv: m.Getenv, lookPath: m.LookPath}
	if f.getenv == nil {
		f.getenv = os.Getenv
	}
	if f.lookPath == nil {
		f.lookPath = exec.LookPath
	}
	r.Register(f)
}

// Family resolves cuda blocks.
type Family struct {
	getenv   func(string) string
	lookPath func(string) (string, error)
}

// Prefix implements registry.Family.
func (f *Family) Prefix() string { return Prefix }

// InitEnv finds the toolchain home from CUDA_PATH, else from the directory
// above the one holding nvcc.
func (f *Family) InitEnv(ctx context.Context, e *env.Environment) error {
	logger := ctxlog.FromContext(ctx)
	if e.Platform() == env.PlatformX86 {
		logger.Warn("Recent CUDA releases no longer support 32-bit targets.")
	}

	home := f.getenv("CUDA_PATH")
	if home == "" {
		nvcc, err := f.lookPath("nvcc")
		if err != nil {
			return errs.Probe("nvcc", fmt.Errorf("CUDA home not found, set CUDA_PATH or put nvcc on PATH: %w", err))
		}
		home = filepath.Dir(filepath.Dir(nvcc))
	}
	abs, err := filepath.Abs(home)
	if err != nil {
		return errs.Probe("nvcc", err)
	}
	if err := e.SetToolHome(Prefix, abs); err != nil {
		return err
	}
	logger.Debug("CUDA home found.", "home", abs)
	return nil
}

// MutateProject adds the CUDA runtime to the project's link requirements.
func (f *Family) MutateProject(_ context.Context, p *project.Project, e *env.Environment) {
	p.LibDynamic = algebra.CombineElements(p.LibDynamic, []string{"cuda", "cudart"}, nil)
	if home, ok := e.ToolHome(Prefix); ok {
		p.LibDirs = algebra.CombineElements(p.LibDirs, []string{filepath.Join(home, "lib64")}, nil)
	}
}

// Target is a resolved cuda block.
type Target struct {
	target.Base
	Defines     []string
	IncPath     []string
	Arch        []string
	Version     string
	HostDebug   string
	DeviceDebug string
	Optimize    string
}

// Resolve implements registry.Family.
func (f *Family) Resolve(ctx context.Context, req *registry.Request) (project.Target, error) {
	e := req.Env
	home, ok := e.ToolHome(Prefix)
	if !ok {
		return nil, errs.Probe("nvcc", fmt.Errorf("CUDA home not found, project %s has a cuda block", req.Project.Name))
	}

	t := &Target{
		Base:      target.NewBase(Prefix, defaultFlags(e)...),
		Version:   "-std=c++14",
		HostDebug: "-g",
		Optimize:  "-O0",
	}
	if e.IsRelease() {
		t.Optimize = "-O2"
		t.Defines = []string{"NDEBUG"}
	}

	l := target.Layers{Block: req.Block, Facts: e}
	l.Scalar(&t.HostDebug, FieldHostDebug)
	l.Scalar(&t.DeviceDebug, FieldDeviceDebug)
	l.Scalar(&t.Optimize, target.FieldOptimize)
	l.Scalar(&t.Version, target.FieldVersion)
	l.List(&t.Defines, target.FieldDefines, nil)
	l.List(&t.IncPath, target.FieldIncPath, nil)
	l.List(&t.Arch, FieldArch, nil)
	if err := l.Err(Prefix); err != nil {
		return nil, fmt.Errorf("target %s: %w", Prefix, err)
	}
	if err := t.Solve(req); err != nil {
		return nil, err
	}
	t.IncPath = algebra.CombineElements(t.IncPath, []string{filepath.Join(home, "include")}, nil)
	t.Finish(req, &t.Defines, &t.IncPath)

	ctxlog.FromContext(ctx).Debug("CUDA target resolved.", "sources", len(t.Sources), "arch", t.Arch)
	return t, nil
}

// Emit implements project.Target.
func (t *Target) Emit(w *fragment.Writer) {
	t.EmitBase(w)
	w.Assign(Prefix+"_defs", t.Defines...)
	w.Assign(Prefix+"_incpaths", t.IncPath...)
	w.Append(Prefix+"_flags", t.Version, t.HostDebug, t.DeviceDebug, t.Optimize)
	if len(t.Arch) > 0 {
		w.Append(Prefix+"_flags", "-arch="+strings.Join(t.Arch, ","))
	}
}

func defaultFlags(e *env.Environment) []string {
	var flags []string
	if e.GProf() {
		flags = append(flags, "-pg")
	}
	flags = append(flags, "-lineinfo", "-use_fast_math", "-res-usage", "--source-in-ptx")
	if e.Bits() == 64 {
		return append(flags, "-m64")
	}
	return append(flags, "-m32")
}
