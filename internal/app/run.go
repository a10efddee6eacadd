package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/specialistvlad/xzbuild/internal/executor"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/resolve"
)

// MakeCoreFile is the shared makefile core under the xzbuild path.
const MakeCoreFile = "XZBuildMakeCore.mk"

// TallyError reports an action where some projects failed.
type TallyError struct {
	Succeeded int
	Total     int
}

func (e *TallyError) Error() string {
	return fmt.Sprintf("%d of %d projects failed", e.Total-e.Succeeded, e.Total)
}

// Run executes the configured action.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "action", a.config.Action)

	if err := a.LoadProjects(ctx); err != nil {
		return err
	}
	if a.config.Action == ActionList {
		return a.list()
	}

	if err := a.SetupEnv(ctx); err != nil {
		return err
	}
	var err error
	if a.config.Action == ActionTest {
		err = a.test(ctx)
	} else {
		err = a.build(ctx)
	}
	a.logger.Debug("App.Run method finished.")
	return err
}

// list prints every project, or the dependency tree of the selected one.
func (a *App) list() error {
	if a.config.Selector == "" {
		for _, p := range a.projects.All() {
			fmt.Fprintln(a.outW, project.Headline(p))
		}
		return nil
	}

	p, ok := a.projects.Get(a.config.Selector)
	if !ok {
		return errs.WithHint(
			errs.Configuration("", "", "unknown project %q", a.config.Selector),
			"run 'xzbuild list' to see every project")
	}
	// The tree printer renders only the children of its root.
	root := pterm.TreeNode{Children: []pterm.TreeNode{project.DependencyTree(p)}}
	out, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return fmt.Errorf("rendering dependency tree: %w", err)
	}
	fmt.Fprint(a.outW, out)
	return nil
}

// test resolves every project and writes all fragments without building.
func (a *App) test(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if _, err := resolve.WriteSolutionFragment(a.env); err != nil {
		return err
	}

	results := a.resolveAll(ctx, a.projects.All())
	succeeded := 0
	for _, r := range results {
		fmt.Fprintln(a.outW, project.Headline(r.Project))
		if r.Err != nil {
			logger.Error("Project resolution failed.", "project", r.Project.Name, "error", r.Err)
			continue
		}
		path, err := resolve.WriteProjectFragment(r.Project, a.env)
		if err != nil {
			logger.Error("Writing fragment failed.", "project", r.Project.Name, "error", err)
			continue
		}
		a.printSources(r.Project)
		logger.Debug("Fragment written.", "project", r.Project.Name, "path", path)
		succeeded++
	}
	return a.tally("test", succeeded, len(results))
}

// build runs the build family of actions: it orders the selected projects,
// resolves them, writes their fragments and hands each to the executor.
func (a *App) build(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	e := a.env

	switch e.OSName() {
	case "Linux":
	case "Darwin":
		logger.Warn("Darwin support is experimental.")
	case "Windows":
		return errs.WithHint(
			errs.Configuration("", "", "Windows is not supported"),
			"use the Visual Studio solution instead")
	default:
		return errs.Configuration("", "", "unsupported operating system %q", e.OSName())
	}

	base, mode, _ := project.ParseMode(a.config.Action)
	goal, _ := executor.ParseGoal(base)

	selected, unknown := a.projects.Select(a.config.Selector)
	if len(unknown) > 0 {
		logger.Warn("Skipping unknown projects.", "projects", unknown)
	}
	if len(selected) == 0 {
		return errs.Configuration("", "", "no project matches %q", a.config.Selector)
	}
	order, err := a.projects.BuildOrder(selected, project.OrderOptions{Mode: mode})
	if err != nil {
		return err
	}

	names := make([]string, len(order))
	for i, p := range order {
		names[i] = p.Name
	}
	fmt.Fprintf(a.outW, "build dependency: %s\n", strings.Join(names, " -> "))
	fmt.Fprintf(a.outW, "run %d threads on %d cores\n", e.Threads(), e.CPUCount())

	if _, err := resolve.WriteSolutionFragment(e); err != nil {
		return err
	}
	results := a.resolveAll(ctx, order)

	root := e.RootDir()
	makeCore := filepath.Join(root, e.XZBuildPath(), MakeCoreFile)
	succeeded := 0
	for _, r := range results {
		p := r.Project
		plog := logger.With("project", p.Name)
		fmt.Fprintln(a.outW, project.Headline(p))
		if r.Err != nil {
			plog.Error("Project resolution failed.", "error", r.Err)
			continue
		}
		if _, err := resolve.WriteProjectFragment(p, e); err != nil {
			plog.Error("Writing fragment failed.", "error", err)
			continue
		}
		if goal != executor.GoalClean {
			a.printSources(p)
		}

		err := a.executor.Execute(ctx, executor.Request{
			Project:   p.Name,
			SrcDir:    p.SrcDir(root),
			SolDir:    root,
			BuildPath: p.BuildPath,
			ObjPath:   e.ObjPath(),
			MakeCore:  makeCore,
			Threads:   e.Threads(),
			Goal:      goal,
			Verbose:   e.Verbose(),
		})
		if err != nil {
			plog.Error("Build failed.", "goal", goal.String(), "error", err)
			continue
		}
		succeeded++
	}
	return a.tally(base, succeeded, len(results))
}

func (a *App) resolveAll(ctx context.Context, projects []*project.Project) []resolve.Result {
	threads := a.env.Threads()
	if a.config.Sequential {
		threads = 1
	}
	r := resolve.New(a.registry, a.env, a.matcher)
	return r.ResolveAll(ctx, projects, threads)
}

type sourceLister interface {
	SourceFiles() []string
}

func (a *App) printSources(p *project.Project) {
	if !a.env.Verbose() {
		return
	}
	for _, t := range p.Targets {
		if s, ok := t.(sourceLister); ok {
			fmt.Fprintf(a.outW, "[%s] Sources:\n%s\n", t.Prefix(), strings.Join(s.SourceFiles(), " "))
		}
	}
}

func (a *App) tally(action string, succeeded, total int) error {
	switch {
	case succeeded == total:
		pterm.Success.WithWriter(a.outW).Printfln("%s [%d/%d] succeeded.", action, succeeded, total)
		return nil
	case succeeded > 0:
		pterm.Warning.WithWriter(a.outW).Printfln("%s [%d/%d] succeeded.", action, succeeded, total)
	default:
		pterm.Error.WithWriter(a.outW).Printfln("%s [%d/%d] succeeded.", action, succeeded, total)
	}
	return &TallyError{Succeeded: succeeded, Total: total}
}
