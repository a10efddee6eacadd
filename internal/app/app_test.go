package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/specialistvlad/xzbuild/internal/executor"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var solution = map[string]string{
	"core/xzbuild.proj.json": `{"name": "core", "type": "static", "description": "core lib", "targets": {"cpp": {"sources": ["*.cpp"]}}}`,
	"core/core.cpp":          "",
	"app/xzbuild.proj.json": `{
		"name": "app", "type": "executable", "dependency": ["core"],
		"targets": {"cpp": {"sources": ["*.cpp"]}}
	}`,
	"app/main.cpp":      "",
	"xzbuild.sol.json":  `{"defines": ["SOL", "SHARED"], "env": ["codec=opus"]}`,
	"xzbuild.user.json": `{"defines": [{"ifeq": ["codec", "opus"], "+": ["OPUS"], "-": ["SHARED"]}]}`,
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "list", cfg: Config{Action: ActionList}},
		{name: "build", cfg: Config{Action: "buildall", Selector: "app", Target: "Release", Platform: "x86"}},
		{name: "missing action", cfg: Config{}, wantErr: "Action is a required"},
		{name: "unknown action", cfg: Config{Action: "deploy"}, wantErr: `unknown action "deploy"`},
		{name: "build without selector", cfg: Config{Action: "build"}, wantErr: "needs a project selector"},
		{name: "bad target", cfg: Config{Action: ActionTest, Target: "Profile"}, wantErr: `unknown target "Profile"`},
		{name: "bad platform", cfg: Config{Action: ActionTest, Platform: "mips"}, wantErr: `unknown platform "mips"`},
		{name: "negative threads", cfg: Config{Action: ActionTest, Threads: -1}, wantErr: "must not be negative"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ".", c.RootDir)
		})
	}
}

func TestRun_List(t *testing.T) {
	root := testutil.WriteTree(t, solution)

	t.Run("all projects", func(t *testing.T) {
		f := setupAppTest(t, Config{RootDir: root, Action: ActionList})
		require.NoError(t, f.app.Run(context.Background()))
		assert.Contains(t, f.out.String(), "[app](executable)")
		assert.Contains(t, f.out.String(), "[core](static) core lib")
	})

	t.Run("dependency tree", func(t *testing.T) {
		f := setupAppTest(t, Config{RootDir: root, Action: ActionList, Selector: "app"})
		require.NoError(t, f.app.Run(context.Background()))
		out := f.out.String()
		assert.Contains(t, out, "[app](executable)")
		assert.Contains(t, out, "[core](static)")
		assert.Less(t, strings.Index(out, "[app]"), strings.Index(out, "[core]"))
	})

	t.Run("unknown project", func(t *testing.T) {
		f := setupAppTest(t, Config{RootDir: root, Action: ActionList, Selector: "nope"})
		err := f.app.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrConfiguration))
		assert.Contains(t, errs.FlattenHints(err), "xzbuild list")
	})
}

func TestRun_OverridesLayered(t *testing.T) {
	root := testutil.WriteTree(t, solution)
	f := setupAppTest(t, Config{RootDir: root, Action: ActionTest})
	require.NoError(t, f.app.Run(context.Background()))

	e := f.app.Env()
	require.True(t, e.Frozen())
	assert.ElementsMatch(t, []string{"SOL", "OPUS"}, e.Defines())
}

func TestRun_Test(t *testing.T) {
	root := testutil.WriteTree(t, solution)
	f := setupAppTest(t, Config{RootDir: root, Action: ActionTest})
	require.NoError(t, f.app.Run(context.Background()))

	assert.Empty(t, f.exec.Requests())
	assert.FileExists(t, filepath.Join(root, "x64", "Debug", "xzbuild.sol.mk"))
	assert.FileExists(t, filepath.Join(root, "app", "x64", "Debug", "xzbuild.proj.mk"))
	assert.FileExists(t, filepath.Join(root, "core", "x64", "Debug", "xzbuild.proj.mk"))
	assert.Contains(t, f.out.String(), "test [2/2] succeeded.")
}

func TestRun_BuildAll(t *testing.T) {
	root := testutil.WriteTree(t, solution)
	f := setupAppTest(t, Config{RootDir: root, Action: "rebuildall", Selector: "app", Verbose: true})
	require.NoError(t, f.app.Run(context.Background()))

	assert.Equal(t, []string{"core", "app"}, f.exec.Projects())
	req := f.exec.Requests()[1]
	assert.Equal(t, executor.Request{
		Project:   "app",
		SrcDir:    filepath.Join(root, "app"),
		SolDir:    root,
		BuildPath: "app",
		ObjPath:   "x64/Debug",
		MakeCore:  filepath.Join(root, "xzbuild", MakeCoreFile),
		Threads:   2,
		Goal:      executor.GoalRebuild,
		Verbose:   true,
	}, req)

	out := f.out.String()
	assert.Contains(t, out, "build dependency: core -> app")
	assert.Contains(t, out, "run 2 threads on")
	assert.Contains(t, out, "[cpp] Sources:\nmain.cpp")
	assert.Contains(t, out, "rebuild [2/2] succeeded.")

	frag, err := os.ReadFile(filepath.Join(root, "app", "x64", "Debug", "xzbuild.proj.mk"))
	require.NoError(t, err)
	assert.Contains(t, string(frag), "libStatic")
	assert.Contains(t, string(frag), "core")
}

func TestRun_BuildExactNeedsDependencies(t *testing.T) {
	root := testutil.WriteTree(t, solution)
	f := setupAppTest(t, Config{RootDir: root, Action: "build", Selector: "app"})
	err := f.app.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrDependency))
	assert.Empty(t, f.exec.Requests())
}

func TestRun_BuildPartialFailure(t *testing.T) {
	root := testutil.WriteTree(t, solution)
	f := setupAppTest(t, Config{RootDir: root, Action: "build", Selector: "all ghost"})
	f.exec.Fail = map[string]bool{"core": true}

	err := f.app.Run(context.Background())
	var tally *TallyError
	require.ErrorAs(t, err, &tally)
	assert.Equal(t, TallyError{Succeeded: 1, Total: 2}, *tally)
	assert.Equal(t, []string{"core", "app"}, f.exec.Projects())
	assert.Contains(t, f.out.String(), "build [1/2] succeeded.")
	assert.Contains(t, f.out.String(), "Skipping unknown projects.")
}

func TestRun_BuildUnsupportedHost(t *testing.T) {
	root := testutil.WriteTree(t, solution)
	f := setupAppTest(t, Config{RootDir: root, Action: "build", Selector: "all"}, WithHost("windows", "amd64"))
	err := f.app.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrConfiguration))
	assert.Contains(t, errs.FlattenHints(err), "Visual Studio")
	assert.Empty(t, f.exec.Requests())
}

func TestRun_CudaUnavailableIsIsolated(t *testing.T) {
	tree := map[string]string{
		"gpu/xzbuild.proj.json": `{"name": "gpu", "type": "dynamic", "targets": {"cuda": {"sources": ["*.cu"]}}}`,
		"gpu/k.cu":              "",
		"cli/xzbuild.proj.json": `{"name": "cli", "type": "executable", "targets": {"c": {"sources": ["*.c"]}}}`,
		"cli/main.c":            "",
	}
	root := testutil.WriteTree(t, tree)
	f := setupAppTest(t, Config{RootDir: root, Action: "build", Selector: "all", Sequential: true})

	err := f.app.Run(context.Background())
	var tally *TallyError
	require.ErrorAs(t, err, &tally)
	assert.Equal(t, 1, tally.Succeeded)
	assert.Equal(t, []string{"cli"}, f.exec.Projects())
}

func TestNewApp_InvalidRegistryPanics(t *testing.T) {
	c, err := NewConfig(Config{Action: ActionList})
	require.NoError(t, err)
	assert.Panics(t, func() {
		NewApp(&testutil.SafeBuffer{}, c, WithModules(badModule{}))
	})
}

type badFamily struct{}

func (badFamily) Prefix() string { return "Bad Prefix" }

func (badFamily) Resolve(context.Context, *registry.Request) (project.Target, error) {
	return nil, nil
}

type badModule struct{}

func (badModule) Register(r *registry.Registry) { r.Register(badFamily{}) }
