package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/descriptor"
	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/project"
)

// LoadProjects discovers every project descriptor under the solution root.
func (a *App) LoadProjects(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading projects...", "root", a.config.RootDir)

	root, err := filepath.Abs(a.config.RootDir)
	if err != nil {
		return fmt.Errorf("resolving root %q: %w", a.config.RootDir, err)
	}
	set, err := project.LoadTree(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to load projects: %w", err)
	}
	a.projects = set
	logger.Info("Projects loaded.", "count", set.Len())
	return nil
}

// SetupEnv builds the environment, applies the solution and user override
// files, lets families discover their toolchains, and freezes the result.
func (a *App) SetupEnv(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Setting up environment...")

	e, err := env.Build(ctx, env.Options{
		RootDir:  a.config.RootDir,
		GOOS:     a.goos,
		GOARCH:   a.goarch,
		Platform: a.config.Platform,
		Target:   a.config.Target,
		Threads:  a.config.Threads,
		Params:   a.config.params(),
		Getenv:   a.getenv,
	}, a.probe)
	if err != nil {
		return fmt.Errorf("failed to build environment: %w", err)
	}

	for _, stem := range []string{descriptor.SolutionStem, descriptor.UserStem} {
		path, ok := descriptor.FindOne(e.RootDir(), stem)
		if !ok {
			continue
		}
		doc, err := descriptor.ParseFile(ctx, path)
		if err != nil {
			return err
		}
		if err := e.ApplyOverrides(ctx, path, doc.Value()); err != nil {
			return fmt.Errorf("applying %s: %w", path, err)
		}
		logger.Debug("Overrides applied.", "file", path)
	}

	a.registry.InitEnv(ctx, e)
	e.Freeze()
	a.env = e
	logger.Debug("Environment frozen.", "objpath", e.ObjPath(), "threads", e.Threads())
	return nil
}
