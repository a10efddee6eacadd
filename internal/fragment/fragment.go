// Package fragment writes the line-oriented build fragments the external
// executor reads. Every record has the form "KEY\t<op>= value...".
package fragment

import (
	"fmt"
	"io"
	"strings"
)

// Op is a record operator.
type Op string

// Record operators.
const (
	Assign        Op = ":"
	Append        Op = "+"
	DefaultAssign Op = "?"
)

// File names of emitted fragments.
const (
	ProjectFile  = "xzbuild.proj.mk"
	SolutionFile = "xzbuild.sol.mk"
)

// Writer emits records to an io.Writer. The first write error sticks and is
// reported by Err; later calls are no-ops.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Record writes one record. Empty values are dropped.
func (w *Writer) Record(key string, op Op, values ...string) {
	w.printf("%s\t%s= %s\n", key, op, strings.Join(nonEmpty(values), " "))
}

// Assign writes a ":=" record.
func (w *Writer) Assign(key string, values ...string) { w.Record(key, Assign, values...) }

// Append writes a "+=" record.
func (w *Writer) Append(key string, values ...string) { w.Record(key, Append, values...) }

// Comment writes a "# text" line.
func (w *Writer) Comment(text string) {
	w.printf("# %s\n", text)
}

// Section starts a titled block separated by blank lines.
func (w *Writer) Section(title string) {
	w.printf("\n\n# %s\n", title)
}

// Err returns the first write error.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintf(w.w, format, args...); err != nil {
		w.err = fmt.Errorf("writing fragment: %w", err)
	}
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
