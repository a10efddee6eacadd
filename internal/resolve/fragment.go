package resolve

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/project"
)

// ProjectFragmentPath returns where the fragment of p is written.
func ProjectFragmentPath(p *project.Project, e *env.Environment) string {
	return filepath.Join(p.Dir(e.RootDir()), filepath.FromSlash(e.ObjPath()), fragment.ProjectFile)
}

// SolutionFragmentPath returns where the solution fragment is written.
func SolutionFragmentPath(e *env.Environment) string {
	return filepath.Join(e.RootDir(), filepath.FromSlash(e.ObjPath()), fragment.SolutionFile)
}

// WriteProject formats the fragment of a resolved project.
func WriteProject(out io.Writer, p *project.Project) error {
	w := fragment.NewWriter(out)
	w.Comment("xzbuild per project file")
	w.Section(fmt.Sprintf("Project [%s]", p.Name))
	w.Assign("NAME", p.Name)
	w.Assign("BUILD_TYPE", string(p.Kind))
	w.Assign("LINKFLAGS", p.LinkFlags...)
	w.Assign("libDynamic", p.LibDynamic...)
	w.Assign("libStatic", p.LibStatic...)
	optional(w, "libDirs", p.LibDirs...)
	optional(w, "frameworks", p.Frameworks...)
	optional(w, "baseDirs", p.BaseDirs...)
	optional(w, "VERSION", p.Version)
	optional(w, "EXPORTMAP", p.ExportMap)
	for _, t := range p.Targets {
		t.Emit(w)
	}
	return w.Err()
}

// WriteSolution formats the solution fragment: every present fact as
// xz_<key>, with list facts joined by spaces.
func WriteSolution(out io.Writer, e *env.Environment) error {
	w := fragment.NewWriter(out)
	w.Comment("xzbuild solution file")
	w.Section("Environment")
	for _, key := range e.Keys() {
		if key == env.KeyIncDirs {
			// written below as xz_incDir, which the make core reads
			continue
		}
		v, ok := e.Fact(key)
		if !ok {
			continue
		}
		items, err := algebra.Literals(v)
		if err != nil {
			return fmt.Errorf("fact %s: %w", key, err)
		}
		w.Assign("xz_"+key, items...)
	}
	w.Assign("xz_incDir", e.IncDirs()...)
	return w.Err()
}

// WriteProjectFragment writes the fragment of p to its object directory and
// returns the path.
func WriteProjectFragment(p *project.Project, e *env.Environment) (string, error) {
	var buf bytes.Buffer
	if err := WriteProject(&buf, p); err != nil {
		return "", err
	}
	path := ProjectFragmentPath(p, e)
	return path, writeFile(path, buf.Bytes())
}

// WriteSolutionFragment writes the solution fragment and returns the path.
func WriteSolutionFragment(e *env.Environment) (string, error) {
	var buf bytes.Buffer
	if err := WriteSolution(&buf, e); err != nil {
		return "", err
	}
	path := SolutionFragmentPath(e)
	return path, writeFile(path, buf.Bytes())
}

func optional(w *fragment.Writer, key string, values ...string) {
	for _, v := range values {
		if v != "" {
			w.Assign(key, values...)
			return
		}
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating fragment dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing fragment %s: %w", path, err)
	}
	return nil
}
