package testutil

import (
	"context"
	"testing"

	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/probe"
	"github.com/stretchr/testify/require"
)

// EnvOption adjusts the options NewEnv builds with.
type EnvOption func(*env.Options, *FakeProbe)

// WithTarget selects Debug or Release.
func WithTarget(target string) EnvOption {
	return func(o *env.Options, _ *FakeProbe) { o.Target = target }
}

// WithPlatform overrides the host architecture, e.g. "arm64".
func WithPlatform(goarch string) EnvOption {
	return func(o *env.Options, _ *FakeProbe) { o.GOARCH = goarch }
}

// WithMacros replaces the probed macros.
func WithMacros(m probe.Macros) EnvOption {
	return func(_ *env.Options, p *FakeProbe) { p.Macros = m }
}

// WithParams sets run parameters.
func WithParams(params map[string]string) EnvOption {
	return func(o *env.Options, _ *FakeProbe) { o.Params = params }
}

// WithGetenv replaces the process environment lookup.
func WithGetenv(getenv func(string) string) EnvOption {
	return func(o *env.Options, _ *FakeProbe) { o.Getenv = getenv }
}

// NewEnv builds an unfrozen Linux x64 gcc 12 Debug environment rooted at root.
func NewEnv(t *testing.T, root string, opts ...EnvOption) *env.Environment {
	t.Helper()
	o := env.Options{
		RootDir: root,
		GOOS:    "linux",
		GOARCH:  "amd64",
		Threads: 2,
		Getenv:  func(string) string { return "" },
	}
	p := &FakeProbe{Macros: GCCMacros(12)}
	for _, opt := range opts {
		opt(&o, p)
	}
	e, err := env.Build(context.Background(), o, p)
	require.NoError(t, err)
	return e
}
