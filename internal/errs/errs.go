// Package errs defines the error taxonomy shared by every resolution stage.
//
// Four kinds of failure exist:
//   - ConfigurationError: a malformed or missing descriptor field, or an
//     unrecognized project kind.
//   - DependencyError: an unresolved dependency name, or a build order that
//     cannot be satisfied (this covers true cycles).
//   - AmbiguousValueError: a scalar field that resolved to several literals or
//     was targeted by a deletion.
//   - ProbeError: a required toolchain or capability was not found.
//
// The concrete types carry structured detail for callers that want it, and
// every one of them also matches its sentinel through errors.Is, so callers
// that only care about the kind can write errors.Is(err, errs.ErrDependency).
// Errors are created through github.com/cockroachdb/errors so they carry a
// stack trace and can hold user-facing hints.
package errs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel kinds.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrDependency     = errors.New("dependency error")
	ErrAmbiguousValue = errors.New("ambiguous value")
	ErrProbe          = errors.New("probe error")
)

// Re-exported helpers so callers need a single import for error handling.
var (
	Is           = errors.Is
	As           = errors.As
	WithHint     = errors.WithHint
	WithHintf    = errors.WithHintf
	FlattenHints = errors.FlattenHints
)

// ConfigurationError reports a malformed descriptor or override file.
type ConfigurationError struct {
	Path   string // file or project the error refers to
	Field  string // offending field, may be empty
	Reason string
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration error")
	if e.Path != "" {
		fmt.Fprintf(&sb, " in %s", e.Path)
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, " (field %q)", e.Field)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DependencyError reports an unresolved dependency or an unsatisfiable order.
// Exactly one of Missing or Stuck is set. Cycle is set when the stuck
// projects contain a true cycle; otherwise they wait on projects outside the
// request.
type DependencyError struct {
	Project string   // project declaring the missing dependency
	Missing string   // name that did not resolve
	Stuck   []string // projects left pending when ordering stalled
	Cycle   []string // a -> b -> a, in dependency order
}

func (e *DependencyError) Error() string {
	if len(e.Stuck) > 0 {
		msg := fmt.Sprintf("dependency error: some dependency can not be fulfilled for {%s}", strings.Join(e.Stuck, ", "))
		if len(e.Cycle) > 0 {
			msg += fmt.Sprintf(": cycle %s", strings.Join(e.Cycle, " -> "))
		}
		return msg
	}
	return fmt.Sprintf("dependency error: project %q depends on missing project %q", e.Project, e.Missing)
}

// Is reports whether target is ErrDependency.
func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

// AmbiguousValueError reports a scalar field that did not resolve to a single literal.
type AmbiguousValueError struct {
	Field     string
	Values    []string
	Deletions []string
}

func (e *AmbiguousValueError) Error() string {
	if len(e.Deletions) > 0 {
		return fmt.Sprintf("ambiguous value for %q: scalar field cannot be deleted (deletions: %s)", e.Field, strings.Join(e.Deletions, " "))
	}
	return fmt.Sprintf("ambiguous value for %q: expected one literal, got [%s]", e.Field, strings.Join(e.Values, ", "))
}

// Is reports whether target is ErrAmbiguousValue.
func (e *AmbiguousValueError) Is(target error) bool { return target == ErrAmbiguousValue }

// ProbeError reports a toolchain or capability that could not be found.
type ProbeError struct {
	Tool string
	Err  error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("probe error: %s not found", e.Tool)
	}
	return fmt.Sprintf("probe error: %s: %v", e.Tool, e.Err)
}

// Is reports whether target is ErrProbe.
func (e *ProbeError) Is(target error) bool { return target == ErrProbe }

// Unwrap returns the underlying probe failure.
func (e *ProbeError) Unwrap() error { return e.Err }

// Configuration builds a ConfigurationError with a stack trace.
func Configuration(path, field, format string, args ...any) error {
	return errors.WithStack(&ConfigurationError{Path: path, Field: field, Reason: fmt.Sprintf(format, args...)})
}

// MissingDependency builds a DependencyError for an unresolved name.
func MissingDependency(project, missing string) error {
	return errors.WithStack(&DependencyError{Project: project, Missing: missing})
}

// Unsatisfiable builds a DependencyError naming the stuck projects, sorted,
// and the cycle among them if there is one.
func Unsatisfiable(stuck, cycle []string) error {
	names := append([]string(nil), stuck...)
	sort.Strings(names)
	err := errors.WithStack(&DependencyError{Stuck: names, Cycle: cycle})
	if len(cycle) == 0 {
		return errors.WithHint(err, "build them with a transitive action such as buildall, or select their dependencies too")
	}
	return errors.WithHint(err, "remove one of the dependency entries in the cycle")
}

// Ambiguous builds an AmbiguousValueError.
func Ambiguous(field string, values, deletions []string) error {
	return errors.WithStack(&AmbiguousValueError{Field: field, Values: values, Deletions: deletions})
}

// Probe builds a ProbeError.
func Probe(tool string, err error) error {
	return errors.WithStack(&ProbeError{Tool: tool, Err: err})
}
