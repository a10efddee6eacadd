package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/xzbuild/internal/app"
	"github.com/specialistvlad/xzbuild/internal/env"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// globals are the persistent flags shared by every command.
type globals struct {
	root       string
	logFormat  string
	logLevel   string
	threads    int
	verbose    bool
	gprof      bool
	sequential bool
	set        []string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	args, slashParams := splitParams(args)
	var (
		g      globals
		parsed *app.Config
	)
	finish := func(cfg app.Config) error {
		c, err := complete(cfg, g, slashParams)
		if err != nil {
			return err
		}
		parsed = c
		return nil
	}

	root := newRootCmd(&g, finish)
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	if err := root.Execute(); err != nil {
		return nil, false, &ExitError{Code: 1, Message: err.Error()}
	}
	if parsed == nil {
		// Help or usage was printed.
		return nil, true, nil
	}
	slog.Debug("CLI parser finished successfully.", "action", parsed.Action, "selector", parsed.Selector)
	return parsed, false, nil
}

func newRootCmd(g *globals, finish func(app.Config) error) *cobra.Command {
	root := &cobra.Command{
		Use:   "xzbuild",
		Short: "Native build configuration orchestrator",
		Long: `xzbuild resolves C, C++, assembly, ISPC and CUDA project descriptors into
build fragments and drives make over them in dependency order.

Run parameters can be given as --set key=value or as /key=value arguments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&g.root, "root", ".", "Solution root directory.")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.IntVar(&g.threads, "threads", 0, "Parallel jobs. 0 uses the logical CPU count.")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Print sources and verbose make output.")
	pf.BoolVar(&g.gprof, "gprof", false, "Build with gprof instrumentation.")
	pf.BoolVar(&g.sequential, "sequential", false, "Resolve projects one at a time.")
	pf.StringArrayVar(&g.set, "set", nil, "Run parameter key=value. May be repeated.")

	for _, action := range []string{"build", "clean", "rebuild", "buildall", "cleanall", "rebuildall"} {
		root.AddCommand(newBuildCmd(action, finish))
	}
	root.AddCommand(newListCmd(finish), newTestCmd(finish))
	return root
}

func newBuildCmd(action string, finish func(app.Config) error) *cobra.Command {
	base := strings.TrimSuffix(action, "all")
	short := strings.ToUpper(base[:1]) + base[1:] + " the selected projects"
	if strings.HasSuffix(action, "all") {
		short += " and their dependencies"
	}
	return &cobra.Command{
		Use:   action + " <projects> [Debug|Release] [x64|x86|ARM64|ARM]",
		Short: short,
		Long: `Projects are a selector such as "core,app" or "all,-tests". The reserved
names all, all-static, all-dynamic and all-executable expand to project sets,
and a leading '-' excludes a project.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := app.Config{Action: action, Selector: args[0]}
			for _, arg := range args[1:] {
				switch arg {
				case env.TargetDebug, env.TargetRelease:
					cfg.Target = arg
				case env.PlatformX64, env.PlatformX86, env.PlatformARM64, env.PlatformARM:
					cfg.Platform = arg
				default:
					return fmt.Errorf("unexpected argument %q, expected a target or platform", arg)
				}
			}
			return finish(cfg)
		},
	}
}

func newListCmd(finish func(app.Config) error) *cobra.Command {
	return &cobra.Command{
		Use:   "list [project]",
		Short: "List projects, or show the dependency tree of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := app.Config{Action: app.ActionList}
			if len(args) == 1 {
				cfg.Selector = args[0]
			}
			return finish(cfg)
		},
	}
}

func newTestCmd(finish func(app.Config) error) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Resolve every project and write fragments without building",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return finish(app.Config{Action: app.ActionTest})
		},
	}
}

// splitParams removes /key=value arguments from args.
func splitParams(args []string) (rest, params []string) {
	// A nil slice makes cobra fall back to os.Args.
	rest = []string{}
	for _, arg := range args {
		if p, ok := strings.CutPrefix(arg, "/"); ok && strings.Contains(p, "=") {
			params = append(params, p)
			continue
		}
		rest = append(rest, arg)
	}
	return rest, params
}

// complete validates the global flags and folds them into cfg.
func complete(cfg app.Config, g globals, slashParams []string) (*app.Config, error) {
	logFormat := strings.ToLower(g.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, fmt.Errorf("invalid log-format: must be 'text' or 'json'")
	}
	logLevel := strings.ToLower(g.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, fmt.Errorf("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	params := make(map[string]string)
	for _, kv := range append(g.set, slashParams...) {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid run parameter %q: expected key=value", kv)
		}
		params[key] = value
	}

	cfg.RootDir = g.root
	cfg.LogFormat = logFormat
	cfg.LogLevel = logLevel
	cfg.Threads = g.threads
	cfg.Verbose = g.verbose
	cfg.GProf = g.gprof
	cfg.Sequential = g.sequential
	cfg.Params = params
	return app.NewConfig(cfg)
}
