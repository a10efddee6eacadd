package native

import (
	"context"
	"fmt"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/target"
	"github.com/zclconf/go-cty/cty"
)

const ltoFlag = "-flto"

// Family is one native language.
type Family struct {
	prefix         string
	defaultVersion string
}

// Prefix implements registry.Family.
func (f *Family) Prefix() string { return f.prefix }

// SharedBuckets implements registry.SharedBucketer.
func (f *Family) SharedBuckets() []string { return []string{SharedBucket} }

// Target is a resolved native language block.
type Target struct {
	target.Base
	Defines    []string
	IncPath    []string
	PCH        string
	Version    string
	DebugLevel string
	Optimize   string
	Visibility string
	LTO        bool
	// ltoSet records an explicit lto field in any bucket.
	ltoSet bool
}

// Resolve implements registry.Family.
func (f *Family) Resolve(ctx context.Context, req *registry.Request) (project.Target, error) {
	logger := ctxlog.FromContext(ctx)
	e := req.Env

	t := &Target{
		Base:       target.NewBase(f.prefix, defaultFlags(e)...),
		Version:    f.defaultVersion,
		DebugLevel: "-g3",
		Optimize:   "-O0",
	}
	if e.IsRelease() {
		t.Optimize = "-O2"
		t.Defines = []string{"NDEBUG"}
		t.LTO = true
		t.Flags = append(t.Flags, ltoFlag)
	}

	if cxx, ok := target.Bucket(req.Targets, SharedBucket); ok {
		if err := t.layer(cxx, e, true); err != nil {
			return nil, fmt.Errorf("target %s: %w", f.prefix, err)
		}
	}
	if err := t.Solve(req); err != nil {
		return nil, err
	}
	if err := t.layer(req.Block, e, false); err != nil {
		return nil, fmt.Errorf("target %s: %w", f.prefix, err)
	}

	if v := downgradeStandard(t.Version, e); v != t.Version {
		logger.Info("Downgraded language standard for the detected compiler.",
			"target", f.prefix, "from", t.Version, "to", v,
			"compiler", e.Compiler(), "compiler_version", e.CompilerVersion().String())
		t.Version = v
	}
	switch {
	case !t.ltoSet:
	case t.LTO:
		t.Flags = algebra.CombineElements(t.Flags, []string{ltoFlag}, nil)
	default:
		t.Flags = algebra.CombineElements(t.Flags, nil, []string{ltoFlag})
	}
	if t.Visibility != "" {
		t.Flags = algebra.CombineElements(t.Flags, []string{"-fvisibility=" + t.Visibility}, nil)
	}

	pch := []string{t.PCH}
	t.Finish(req, &t.Defines, &t.IncPath, &pch)
	t.PCH = pch[0]

	logger.Debug("Native target resolved.", "target", f.prefix, "sources", len(t.Sources), "flags", len(t.Flags))
	return t, nil
}

// layer applies one bucket. The shared bucket carries flags of its own; the
// language block's flags are solved by Base.Solve.
func (t *Target) layer(block cty.Value, f algebra.Facts, shared bool) error {
	l := target.Layers{Block: block, Facts: f}
	l.Scalar(&t.DebugLevel, target.FieldDebug)
	l.Scalar(&t.Optimize, target.FieldOptimize)
	l.Scalar(&t.Version, target.FieldVersion)
	l.Scalar(&t.PCH, target.FieldPCH)
	l.Scalar(&t.Visibility, target.FieldVisibility)
	if l.Bool(&t.LTO, target.FieldLTO) {
		t.ltoSet = true
	}
	if shared {
		l.List(&t.Flags, target.FieldFlags, nil)
	}
	l.List(&t.Defines, target.FieldDefines, nil)
	l.List(&t.IncPath, target.FieldIncPath, nil)
	name := t.Prefix()
	if shared {
		name = SharedBucket
	}
	return l.Err(name)
}

// Emit implements project.Target.
func (t *Target) Emit(w *fragment.Writer) {
	p := t.Prefix()
	t.EmitBase(w)
	w.Assign(p+"_defs", t.Defines...)
	w.Assign(p+"_incpaths", t.IncPath...)
	w.Append(p+"_flags", t.Version, t.DebugLevel, t.Optimize)
	w.Assign(p+"_pch", t.PCH)
}

func defaultFlags(e *env.Environment) []string {
	flags := []string{"-Wall", "-pedantic"}
	if e.Arch() == "arm" {
		flags = append(flags, "-mcpu=native")
	} else {
		flags = append(flags, "-march=native")
	}
	flags = append(flags, "-pthread", "-Wno-unknown-pragmas", "-Wno-ignored-attributes", "-Wno-unused-local-typedefs")
	if e.Arch() == "x86" {
		if e.Bits() == 64 {
			flags = append(flags, "-m64")
		} else {
			flags = append(flags, "-m32")
		}
	}
	if e.Compiler() == env.CompilerClang {
		flags = append(flags, "-Wno-newline-eof")
	}
	if e.GProf() {
		flags = append(flags, "-pg")
	}
	return flags
}
