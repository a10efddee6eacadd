package executor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	base := Request{
		Project:   "app",
		SolDir:    "/sol",
		BuildPath: "app",
		ObjPath:   "x64/Debug",
		MakeCore:  "/sol/xzbuild/XZBuildMakeCore.mk",
		Threads:   8,
	}

	testCases := []struct {
		name    string
		goal    Goal
		verbose bool
		want    []string
	}{
		{"build", GoalBuild, false, []string{"SOLDIR=/sol", "OBJPATH=x64/Debug", "BUILDPATH=app", "CLEAN=0", "-f", "/sol/xzbuild/XZBuildMakeCore.mk", "-j8", "VERBOSE=0"}},
		{"rebuild", GoalRebuild, true, []string{"SOLDIR=/sol", "OBJPATH=x64/Debug", "BUILDPATH=app", "CLEAN=1", "-f", "/sol/xzbuild/XZBuildMakeCore.mk", "-j8", "VERBOSE=1"}},
		{"clean", GoalClean, false, []string{"clean", "SOLDIR=/sol", "OBJPATH=x64/Debug", "BUILDPATH=app", "CLEAN=1", "-f", "/sol/xzbuild/XZBuildMakeCore.mk", "-j8", "VERBOSE=0"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			req.Goal = tc.goal
			req.Verbose = tc.verbose
			assert.Equal(t, tc.want, Args(req))
		})
	}

	t.Run("threads floor at one", func(t *testing.T) {
		req := base
		req.Threads = 0
		assert.Contains(t, Args(req), "-j1")
	})
}

func TestParseGoal(t *testing.T) {
	for _, action := range []string{"build", "clean", "rebuild"} {
		g, ok := ParseGoal(action)
		require.True(t, ok, action)
		assert.Equal(t, action, g.String())
	}
	_, ok := ParseGoal("install")
	assert.False(t, ok)
}

func TestMake_Execute(t *testing.T) {
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not available")
	}
	dir := t.TempDir()
	core := filepath.Join(dir, "core.mk")
	require.NoError(t, os.WriteFile(core, []byte("all:\n\t@echo built $(BUILDPATH) $(CLEAN)\nclean:\n\t@echo cleaned\n"), 0o644))

	var out bytes.Buffer
	m := NewMake(&out, &out)
	req := Request{Project: "app", SrcDir: dir, SolDir: dir, BuildPath: "app", ObjPath: "Debug", MakeCore: core, Threads: 1}

	require.NoError(t, m.Execute(context.Background(), req))
	assert.Contains(t, out.String(), "built app 0")

	out.Reset()
	req.Goal = GoalClean
	require.NoError(t, m.Execute(context.Background(), req))
	assert.Contains(t, out.String(), "cleaned")

	t.Run("failure is reported", func(t *testing.T) {
		req := req
		req.MakeCore = filepath.Join(dir, "missing.mk")
		err := m.Execute(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "for project app")
	})
}
