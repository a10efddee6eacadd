package project

import (
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/xzbuild/internal/descriptor"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the artifact a project produces.
type Kind string

// Project kinds.
const (
	KindStatic     Kind = "static"
	KindDynamic    Kind = "dynamic"
	KindExecutable Kind = "executable"
)

// ParseKind validates a descriptor "type" value.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindStatic, KindDynamic, KindExecutable:
		return k, true
	}
	return "", false
}

// Describe returns the human readable artifact name.
func (k Kind) Describe() string {
	switch k {
	case KindStatic:
		return "static library"
	case KindDynamic:
		return "dynamic library"
	}
	return "executable binary"
}

// Descriptor fields.
const (
	FieldName        = "name"
	FieldType        = "type"
	FieldSrcPath     = "srcPath"
	FieldDependency  = "dependency"
	FieldVersion     = "version"
	FieldDescription = "description"
	FieldLibrary     = "library"
	FieldFramework   = "framework"
	FieldTargets     = "targets"
	FieldExportMap   = "exportmap"
	FieldLinkFlags   = "linkflags"
)

// Target is one resolved language slice of a project.
type Target interface {
	Prefix() string
	Emit(w *fragment.Writer)
}

// Project is one buildable unit.
type Project struct {
	Name        string
	Kind        Kind
	BuildPath   string // descriptor directory, relative to the solution root
	SrcPath     string // source directory, relative to the solution root
	DepNames    []string
	Version     string
	Description string
	ExportMap   string

	// Raw is the descriptor the project was loaded from.
	Raw *descriptor.Document

	deps []*Project

	// Resolved state, filled by target resolution.
	LinkFlags  []string
	LibStatic  []string
	LibDynamic []string
	LibDirs    []string
	Frameworks []string
	BaseDirs   []string
	Targets    []Target
}

// Load builds a Project from a descriptor found in dir under root.
func Load(doc *descriptor.Document, root, dir string) (*Project, error) {
	name, err := doc.RequiredString(FieldName)
	if err != nil {
		return nil, err
	}
	rawKind, err := doc.RequiredString(FieldType)
	if err != nil {
		return nil, err
	}
	kind, ok := ParseKind(rawKind)
	if !ok {
		return nil, errs.Configuration(doc.Path, FieldType, "unknown project type %q, expected static, dynamic or executable", rawKind)
	}

	buildPath, err := filepath.Rel(root, dir)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}
	p := &Project{
		Name:      name,
		Kind:      kind,
		BuildPath: filepath.ToSlash(buildPath),
		Raw:       doc,
	}

	src, _, err := doc.String(FieldSrcPath)
	if err != nil {
		return nil, err
	}
	p.SrcPath = filepath.ToSlash(filepath.Join(p.BuildPath, src))

	if p.DepNames, err = doc.Strings(FieldDependency); err != nil {
		return nil, err
	}
	if p.Description, _, err = doc.String(FieldDescription); err != nil {
		return nil, err
	}
	if p.ExportMap, _, err = doc.String(FieldExportMap); err != nil {
		return nil, err
	}
	if p.Version, err = loadVersion(doc, dir); err != nil {
		return nil, err
	}
	return p, nil
}

// Dir returns the absolute descriptor directory.
func (p *Project) Dir(root string) string {
	return filepath.Join(root, filepath.FromSlash(p.BuildPath))
}

// SrcDir returns the absolute source directory.
func (p *Project) SrcDir(root string) string {
	return filepath.Join(root, filepath.FromSlash(p.SrcPath))
}

// Field returns a raw descriptor field.
func (p *Project) Field(name string) (cty.Value, bool) {
	if p.Raw == nil {
		return cty.NilVal, false
	}
	return p.Raw.Get(name)
}

// TargetsBlock returns the per-language target blocks.
func (p *Project) TargetsBlock() cty.Value {
	v, ok := p.Field(FieldTargets)
	if !ok {
		return cty.EmptyObjectVal
	}
	return v
}

// Dependencies returns the resolved direct dependencies, in declared order.
func (p *Project) Dependencies() []*Project {
	return p.deps
}

// ResetResolved clears the state a previous resolution left behind.
func (p *Project) ResetResolved() {
	p.LinkFlags = nil
	p.LibStatic = nil
	p.LibDynamic = nil
	p.LibDirs = nil
	p.Frameworks = nil
	p.BaseDirs = nil
	p.Targets = nil
}

// DynamicClosure returns every dynamic library reachable from the direct
// dynamic dependencies through dynamic-library edges only, breadth first.
func (p *Project) DynamicClosure() []*Project {
	var out, queue []*Project
	seen := map[*Project]bool{p: true}
	push := func(deps []*Project) {
		for _, d := range deps {
			if d.Kind != KindDynamic || seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			queue = append(queue, d)
		}
	}
	push(p.deps)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		push(next.deps)
	}
	return out
}

// LinkDependencies returns the projects whose artifacts p links against:
// direct dependencies, plus the dynamic closure for executables.
func (p *Project) LinkDependencies() []*Project {
	out := append([]*Project(nil), p.deps...)
	if p.Kind != KindExecutable {
		return out
	}
	seen := make(map[*Project]bool, len(out))
	for _, d := range out {
		seen[d] = true
	}
	for _, d := range p.DynamicClosure() {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
