package executor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
)

// Make runs GNU make against the shared makefile core.
type Make struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

// NewMake creates an executor that streams make's output to stdout and stderr.
func NewMake(stdout, stderr io.Writer) *Make {
	return &Make{Binary: "make", Stdout: stdout, Stderr: stderr}
}

// Args returns the make command line for req, without the binary.
func Args(req Request) []string {
	var args []string
	if req.Goal == GoalClean {
		args = append(args, "clean")
	}
	clean := 0
	if req.Goal != GoalBuild {
		clean = 1
	}
	verbose := 0
	if req.Verbose {
		verbose = 1
	}
	threads := req.Threads
	if threads <= 0 {
		threads = 1
	}
	return append(args,
		"SOLDIR="+req.SolDir,
		"OBJPATH="+req.ObjPath,
		"BUILDPATH="+req.BuildPath,
		"CLEAN="+strconv.Itoa(clean),
		"-f", req.MakeCore,
		"-j"+strconv.Itoa(threads),
		"VERBOSE="+strconv.Itoa(verbose),
	)
}

// Execute implements Executor. The process runs in req.SrcDir; the caller's
// working directory is never changed.
func (m *Make) Execute(ctx context.Context, req Request) error {
	logger := ctxlog.FromContext(ctx).With("project", req.Project)

	args := Args(req)
	cmd := exec.CommandContext(ctx, m.Binary, args...)
	cmd.Dir = req.SrcDir
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr

	logger.Debug("Running build tool.", "dir", req.SrcDir, "command", shellquote.Join(append([]string{m.Binary}, args...)...))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s for project %s: %w", m.Binary, req.Goal, req.Project, err)
	}
	logger.Debug("Build tool done.")
	return nil
}
