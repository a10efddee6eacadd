package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/specialistvlad/xzbuild/internal/descriptor"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, src string) *descriptor.Document {
	t.Helper()
	d, err := descriptor.Parse(context.Background(), "xzbuild.proj.json", []byte(src))
	require.NoError(t, err)
	return d
}

// spec is shorthand for a project declaration: name, kind, deps.
type spec struct {
	name string
	kind Kind
	deps []string
}

func newSet(t *testing.T, specs ...spec) *ProjectSet {
	t.Helper()
	set := NewSet()
	for _, sp := range specs {
		deps := `[]`
		if len(sp.deps) > 0 {
			deps = `["` + strings.Join(sp.deps, `", "`) + `"]`
		}
		src := fmt.Sprintf(`{"name": %q, "type": %q, "dependency": %s}`, sp.name, sp.kind, deps)
		p, err := Load(doc(t, src), "/sol", "/sol/"+sp.name)
		require.NoError(t, err)
		require.NoError(t, set.Add(p))
	}
	return set
}

func names(ps []*Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestLoad(t *testing.T) {
	t.Run("fields", func(t *testing.T) {
		p, err := Load(doc(t, `{
			"name": "core", "type": "dynamic", "srcPath": "src",
			"dependency": ["util"], "version": "1.2.0", "description": "core lib",
			"exportmap": "core.map"
		}`), "/sol", "/sol/libs/core")
		require.NoError(t, err)
		assert.Equal(t, "core", p.Name)
		assert.Equal(t, KindDynamic, p.Kind)
		assert.Equal(t, "libs/core", p.BuildPath)
		assert.Equal(t, "libs/core/src", p.SrcPath)
		assert.Equal(t, []string{"util"}, p.DepNames)
		assert.Equal(t, "1.2.0", p.Version)
		assert.Equal(t, "core lib", p.Description)
		assert.Equal(t, "core.map", p.ExportMap)
		assert.Equal(t, "/sol/libs/core/src", p.SrcDir("/sol"))
	})

	t.Run("root project", func(t *testing.T) {
		p, err := Load(doc(t, `{"name": "app", "type": "executable"}`), "/sol", "/sol")
		require.NoError(t, err)
		assert.Equal(t, ".", p.BuildPath)
		assert.Equal(t, ".", p.SrcPath)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Load(doc(t, `{"name": "x", "type": "plugin"}`), "/sol", "/sol/x")
		var cfgErr *errs.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, FieldType, cfgErr.Field)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := Load(doc(t, `{"type": "static"}`), "/sol", "/sol/x")
		assert.ErrorIs(t, err, errs.ErrConfiguration)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := Load(doc(t, `{"name": "x"}`), "/sol", "/sol/x")
		assert.ErrorIs(t, err, errs.ErrConfiguration)
	})
}

func TestVersionExtraction(t *testing.T) {
	dir := t.TempDir()
	header := "#pragma once\n#define VER_MAJOR 3\n#define VER_MINOR   14\n#define NAME \"x\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ver.h"), []byte(header), 0o644))

	load := func(version string) (*Project, error) {
		return Load(doc(t, `{"name": "v", "type": "static", "version": `+version+`}`), dir, dir)
	}

	t.Run("template", func(t *testing.T) {
		p, err := load(`{"file": "ver.h", "template": "${major}.${minor}",
			"values": {"major": {"literal": "VER_MAJOR "}, "minor": {"regex": "VER_MINOR\\s+(\\d+)"}}}`)
		require.NoError(t, err)
		assert.Equal(t, "3.14", p.Version)
	})

	t.Run("single value without template", func(t *testing.T) {
		p, err := load(`{"file": "ver.h", "values": {"version": {"literal": "VER_MINOR"}}}`)
		require.NoError(t, err)
		assert.Equal(t, "14", p.Version)
	})

	for name, rule := range map[string]string{
		"missing file":     `{"file": "nope.h", "values": {"v": {"literal": "X"}}}`,
		"literal absent":   `{"file": "ver.h", "values": {"v": {"literal": "VER_PATCH"}}}`,
		"regex no match":   `{"file": "ver.h", "values": {"v": {"regex": "PATCH (\\d+)"}}}`,
		"unknown template": `{"file": "ver.h", "template": "${nope}", "values": {"v": {"literal": "VER_MAJOR"}}}`,
		"no rule":          `{"file": "ver.h", "values": {"v": {}}}`,
		"needs template":   `{"file": "ver.h", "values": {"a": {"literal": "VER_MAJOR"}, "b": {"literal": "VER_MINOR"}}}`,
		"no values":        `{"file": "ver.h"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := load(rule)
			assert.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}
}

func TestProjectSet(t *testing.T) {
	set := newSet(t,
		spec{"b", KindStatic, nil},
		spec{"a", KindExecutable, []string{"b"}},
		spec{"c", KindDynamic, nil},
	)

	t.Run("duplicates rejected", func(t *testing.T) {
		p, err := Load(doc(t, `{"name": "a", "type": "static"}`), "/sol", "/sol/other")
		require.NoError(t, err)
		assert.ErrorIs(t, set.Add(p), errs.ErrConfiguration)
	})

	t.Run("queries", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b", "c"}, set.Names())
		assert.True(t, set.Has("b"))
		assert.False(t, set.Has("z"))
		assert.Equal(t, []string{"c"}, names(set.OfKind(KindDynamic)))
		p, ok := set.Get("a")
		require.True(t, ok)
		assert.Equal(t, KindExecutable, p.Kind)
	})

	t.Run("missing dependency", func(t *testing.T) {
		bad := newSet(t, spec{"a", KindStatic, []string{"ghost"}})
		err := bad.SolveDependencies()
		var depErr *errs.DependencyError
		require.ErrorAs(t, err, &depErr)
		assert.Equal(t, "a", depErr.Project)
		assert.Equal(t, "ghost", depErr.Missing)
	})

	t.Run("solve links projects", func(t *testing.T) {
		require.NoError(t, set.SolveDependencies())
		a, _ := set.Get("a")
		assert.Equal(t, []string{"b"}, names(a.Dependencies()))
	})
}

func TestBuildOrder(t *testing.T) {
	set := newSet(t,
		spec{"A", KindExecutable, []string{"B"}},
		spec{"B", KindStatic, []string{"C"}},
		spec{"C", KindStatic, nil},
	)
	require.NoError(t, set.SolveDependencies())
	a, _ := set.Get("A")

	t.Run("transitive chain", func(t *testing.T) {
		order, err := set.BuildOrder([]*Project{a}, OrderOptions{Mode: Transitive})
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "B", "A"}, names(order))
	})

	t.Run("exact alone fails", func(t *testing.T) {
		_, err := set.BuildOrder([]*Project{a}, OrderOptions{Mode: Exact})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrDependency)
	})

	t.Run("exact with all members", func(t *testing.T) {
		order, err := set.BuildOrder(set.All(), OrderOptions{Mode: Exact})
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "B", "A"}, names(order))
	})

	t.Run("cycle names both projects", func(t *testing.T) {
		cyc := newSet(t,
			spec{"A", KindStatic, []string{"B"}},
			spec{"B", KindStatic, []string{"A"}},
		)
		require.NoError(t, cyc.SolveDependencies())
		_, err := cyc.BuildOrder(cyc.All(), OrderOptions{Mode: Transitive})
		var depErr *errs.DependencyError
		require.ErrorAs(t, err, &depErr)
		assert.Equal(t, []string{"A", "B"}, depErr.Stuck)
		assert.Equal(t, []string{"A", "B", "A"}, depErr.Cycle)
		assert.Contains(t, err.Error(), "{A, B}: cycle A -> B -> A")
	})

	t.Run("outside dependency is not a cycle", func(t *testing.T) {
		_, err := set.BuildOrder([]*Project{a}, OrderOptions{Mode: Exact})
		var depErr *errs.DependencyError
		require.ErrorAs(t, err, &depErr)
		assert.Equal(t, []string{"A"}, depErr.Stuck)
		assert.Empty(t, depErr.Cycle)
		assert.Contains(t, errs.FlattenHints(err), "buildall")
	})

	t.Run("requested project of another kind precedes its dependents", func(t *testing.T) {
		mixed := newSet(t,
			spec{"A", KindDynamic, []string{"S"}},
			spec{"S", KindStatic, nil},
		)
		require.NoError(t, mixed.SolveDependencies())
		order, err := mixed.BuildOrder(mixed.All(), OrderOptions{Mode: Transitive, Kind: KindDynamic})
		require.NoError(t, err)
		assert.Equal(t, []string{"S", "A"}, names(order))
	})

	t.Run("kind restricted closure", func(t *testing.T) {
		mixed := newSet(t,
			spec{"app", KindExecutable, []string{"dyn", "st"}},
			spec{"dyn", KindDynamic, []string{"dyn2"}},
			spec{"dyn2", KindDynamic, nil},
			spec{"st", KindStatic, nil},
		)
		require.NoError(t, mixed.SolveDependencies())
		dyn, _ := mixed.Get("dyn")
		order, err := mixed.BuildOrder([]*Project{dyn}, OrderOptions{Mode: Transitive, Kind: KindDynamic})
		require.NoError(t, err)
		assert.Equal(t, []string{"dyn2", "dyn"}, names(order))

		app, _ := mixed.Get("app")
		order, err = mixed.BuildOrder([]*Project{app}, OrderOptions{Mode: Transitive, Kind: KindDynamic})
		require.NoError(t, err)
		assert.Equal(t, []string{"dyn2", "dyn", "app"}, names(order))
	})

	t.Run("unsolved set", func(t *testing.T) {
		_, err := NewSet().BuildOrder(nil, OrderOptions{})
		assert.Error(t, err)
	})
}

func TestDynamicClosure(t *testing.T) {
	set := newSet(t,
		spec{"E", KindExecutable, []string{"D1", "S"}},
		spec{"D1", KindDynamic, []string{"D2", "S2"}},
		spec{"D2", KindDynamic, []string{"D3"}},
		spec{"D3", KindDynamic, nil},
		spec{"S", KindStatic, []string{"D4"}},
		spec{"S2", KindStatic, nil},
		spec{"D4", KindDynamic, nil},
	)
	require.NoError(t, set.SolveDependencies())
	e, _ := set.Get("E")

	assert.Equal(t, []string{"D1", "D2", "D3"}, names(e.DynamicClosure()))
	assert.Equal(t, []string{"D1", "S", "D2", "D3"}, names(e.LinkDependencies()))

	d1, _ := set.Get("D1")
	assert.Equal(t, []string{"D2", "S2"}, names(d1.LinkDependencies()), "libraries link only direct dependencies")
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		action string
		base   string
		mode   Mode
		ok     bool
	}{
		{"build", "build", Exact, true},
		{"buildall", "build", Transitive, true},
		{"clean", "clean", Exact, true},
		{"cleanall", "clean", Transitive, true},
		{"rebuildall", "rebuild", Transitive, true},
		{"list", "list", Exact, false},
		{"all", "all", Exact, false},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			base, mode, ok := ParseMode(tc.action)
			assert.Equal(t, tc.base, base)
			assert.Equal(t, tc.mode, mode)
			assert.Equal(t, tc.ok, ok)
		})
	}
	assert.Equal(t, "transitive", Transitive.String())
}

func TestSelect(t *testing.T) {
	set := newSet(t,
		spec{"core", KindStatic, nil},
		spec{"util", KindStatic, nil},
		spec{"gfx", KindDynamic, nil},
		spec{"app", KindExecutable, nil},
		spec{"tests", KindExecutable, nil},
	)

	cases := []struct {
		expr     string
		selected []string
		unknown  []string
	}{
		{"all", []string{"app", "core", "gfx", "tests", "util"}, nil},
		{"all,-tests", []string{"app", "core", "gfx", "util"}, nil},
		{"all-static gfx", []string{"core", "gfx", "util"}, nil},
		{"all-executable,-app", []string{"tests"}, nil},
		{"all-dynamic", []string{"gfx"}, nil},
		{"core,nope", []string{"core"}, []string{"nope"}},
		{"core -core", nil, nil},
		{"-core", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			selected, unknown := set.Select(tc.expr)
			assert.Equal(t, tc.selected, namesOrNil(selected))
			assert.Equal(t, tc.unknown, unknown)
		})
	}
}

func namesOrNil(ps []*Project) []string {
	if len(ps) == 0 {
		return nil
	}
	return names(ps)
}

func TestDependencyTree(t *testing.T) {
	set := newSet(t,
		spec{"app", KindExecutable, []string{"core", "gfx"}},
		spec{"core", KindStatic, nil},
		spec{"gfx", KindDynamic, []string{"core"}},
	)
	require.NoError(t, set.SolveDependencies())
	app, _ := set.Get("app")

	tree := DependencyTree(app)
	assert.Equal(t, "[app](executable)", tree.Text)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "[gfx](dynamic)", tree.Children[1].Text)
	require.Len(t, tree.Children[1].Children, 1)

	out, err := pterm.DefaultTree.WithRoot(tree).Srender()
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "[core](static)"))
}

func TestLoadTree(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("core/xzbuild.proj.json", `{"name": "core", "type": "static"}`)
	write("app/xzbuild.proj.yaml", "name: app\ntype: executable\ndependency: [core]\n")

	set, err := LoadTree(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "core"}, set.Names())
	app, _ := set.Get("app")
	assert.Equal(t, "app", app.BuildPath)
	assert.Equal(t, []string{"core"}, names(app.Dependencies()))

	write("dup/xzbuild.proj.json", `{"name": "core", "type": "static"}`)
	_, err = LoadTree(context.Background(), root)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
