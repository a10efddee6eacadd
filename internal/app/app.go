package app

import (
	"context"
	"io"
	"log/slog"
	"runtime"

	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/executor"
	"github.com/specialistvlad/xzbuild/internal/glob"
	"github.com/specialistvlad/xzbuild/internal/probe"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry

	probe    probe.MacroProbe
	matcher  glob.Matcher
	executor executor.Executor
	getenv   func(string) string
	goos     string
	goarch   string

	env      *env.Environment
	projects *project.ProjectSet
}

// Option customizes an App. Options replace the host collaborators, mostly
// for tests.
type Option func(*App)

// WithProbe replaces the compiler macro probe.
func WithProbe(p probe.MacroProbe) Option { return func(a *App) { a.probe = p } }

// WithMatcher replaces the source pattern matcher.
func WithMatcher(m glob.Matcher) Option { return func(a *App) { a.matcher = m } }

// WithExecutor replaces the build executor.
func WithExecutor(e executor.Executor) Option { return func(a *App) { a.executor = e } }

// WithGetenv replaces the process environment lookup used for CXX.
func WithGetenv(getenv func(string) string) Option { return func(a *App) { a.getenv = getenv } }

// WithHost pretends to run on goos/goarch.
func WithHost(goos, goarch string) Option {
	return func(a *App) { a.goos, a.goarch = goos, goarch }
}

// WithModules replaces the compiled-in target families.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) {
		a.registry = registry.New()
		for _, m := range modules {
			m.Register(a.registry)
		}
	}
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		probe:    probe.NewExec(),
		matcher:  glob.NewDoublestar(),
		executor: executor.NewMake(outW, outW),
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		a.registry = registry.New()
		modules := coreModules()
		for _, m := range modules {
			m.Register(a.registry)
		}
		logger.Debug("All target modules registered.", "count", len(modules))
	}

	// A malformed family table is a programmer error, so we panic.
	if err := a.registry.Validate(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.", "families", a.registry.Prefixes())
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Env returns the environment after setup. This is primarily for testing.
func (a *App) Env() *env.Environment {
	return a.env
}

// Projects returns the loaded project set. This is primarily for testing.
func (a *App) Projects() *project.ProjectSet {
	return a.projects
}
