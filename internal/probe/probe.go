// Package probe asks a compiler which macros it predefines. The environment
// derives compiler identity, standard library and capability labels from the
// result.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
)

// Macros maps a macro name to its replacement text.
type Macros map[string]string

// Has reports whether name is defined.
func (m Macros) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Request describes one probe invocation.
type Request struct {
	// Compiler is the compiler command line, e.g. ["ccache", "g++"].
	Compiler []string
	// Flags are appended after the compiler, e.g. ["-march=native"].
	Flags []string
	// Input is fed to the preprocessor on stdin.
	Input string
}

// MacroProbe returns the macros a toolchain predefines.
type MacroProbe interface {
	Probe(ctx context.Context, req Request) (Macros, error)
}

// Exec runs the compiler as `<compiler...> <flags...> -dM -E -`.
type Exec struct{}

// NewExec creates the default exec-backed probe.
func NewExec() *Exec {
	return &Exec{}
}

// Probe implements MacroProbe.
func (e *Exec) Probe(ctx context.Context, req Request) (Macros, error) {
	if len(req.Compiler) == 0 {
		return nil, fmt.Errorf("no compiler given")
	}
	args := append([]string{}, req.Compiler[1:]...)
	args = append(args, req.Flags...)
	args = append(args, "-dM", "-E", "-")

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Probing compiler macros.", "cmd", shellquote.Join(append([]string{req.Compiler[0]}, args...)...))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, req.Compiler[0], args...)
	cmd.Stdin = strings.NewReader(req.Input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("running %s: %w: %s", req.Compiler[0], err, msg)
		}
		return nil, fmt.Errorf("running %s: %w", req.Compiler[0], err)
	}

	macros, err := Parse(&stdout)
	if err != nil {
		return nil, err
	}
	logger.Debug("Compiler macros collected.", "count", len(macros))
	return macros, nil
}

// Parse reads `#define NAME VALUE` lines. Function-like macros are recorded
// under their bare name. Other lines are ignored.
func Parse(r io.Reader) (Macros, error) {
	macros := make(Macros)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(line, "#define ")
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, " \t")
		name, value, _ := strings.Cut(rest, " ")
		if i := strings.IndexByte(name, '('); i >= 0 {
			name = name[:i]
			// value of a function-like macro starts after the parameter list
			if j := strings.IndexByte(rest, ')'); j >= 0 {
				value = rest[j+1:]
			}
		}
		if name == "" {
			continue
		}
		macros[name] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading macro list: %w", err)
	}
	return macros, nil
}
