package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/xzbuild/internal/app"
	"github.com/specialistvlad/xzbuild/internal/cli"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clashFamily struct{}

func (clashFamily) Prefix() string { return "cpp" }

func (clashFamily) Resolve(context.Context, *registry.Request) (project.Target, error) {
	return nil, nil
}

type clashModule struct{}

func (clashModule) Register(r *registry.Registry) {
	r.Register(clashFamily{})
	r.Register(clashFamily{})
}

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	runErr := run(out, []string{"--root", t.TempDir(), "list"}, app.WithModules(clashModule{}))

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	assert.Contains(t, runErr.Error(), "application startup panicked")
	assert.Contains(t, runErr.Error(), `family "cpp" registered twice`)
	assert.Equal(t, 1, exitCode(runErr))
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
	assert.Equal(t, 1, exitCode(err))
}

func TestRun_List(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "xzbuild.proj.json"),
		[]byte(`{"name": "core", "type": "static"}`), 0o644))

	out := &bytes.Buffer{}
	require.NoError(t, run(out, []string{"--root", dir, "--log-level", "error", "list"}))
	assert.Contains(t, out.String(), "[core](static)")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(&app.TallyError{Succeeded: 1, Total: 3}))
	assert.Equal(t, 2, exitCode(&app.TallyError{Succeeded: 0, Total: 3}))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 1, exitCode(&cli.ExitError{Code: 1, Message: "bad"}))
}
