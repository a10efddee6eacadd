package algebra

import (
	"fmt"
	"strconv"

	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/zclconf/go-cty/cty"
)

// PostProc rewrites the (adds, dels) pair of an applied entry. cond is nil for
// literal entries.
type PostProc func(adds, dels []string, cond *Condition, f Facts) ([]string, []string)

// Solve evaluates every entry against f and concatenates the contributions.
func (l List) Solve(f Facts, pp PostProc) (adds, dels []string) {
	for _, e := range l {
		var a, d []string
		if e.Cond == nil {
			a = e.Literal
		} else {
			if !e.Cond.Holds(f) {
				continue
			}
			a, d = e.Cond.Add, e.Cond.Del
		}
		if pp != nil {
			a, d = pp(a, d, e.Cond, f)
		}
		adds = append(adds, a...)
		dels = append(dels, d...)
	}
	return adds, dels
}

// SolveElementList parses the named field of block and solves it against f.
// A missing field contributes nothing.
func SolveElementList(block cty.Value, field string, f Facts, pp PostProc) (adds, dels []string, err error) {
	raw, ok := Field(block, field)
	if !ok {
		return nil, nil, nil
	}
	list, err := Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("field %q: %w", field, err)
	}
	adds, dels = list.Solve(f, pp)
	return adds, dels, nil
}

// CombineElements merges one layer onto original: original order is kept,
// new adds are appended in first-seen order with duplicates collapsed, and
// every item in dels is removed wherever it came from.
func CombineElements(original, adds, dels []string) []string {
	drop := make(map[string]struct{}, len(dels))
	for _, d := range dels {
		drop[d] = struct{}{}
	}
	seen := make(map[string]struct{}, len(original)+len(adds))
	out := make([]string, 0, len(original)+len(adds))
	for _, group := range [][]string{original, adds} {
		for _, item := range group {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			if _, ok := drop[item]; ok {
				continue
			}
			out = append(out, item)
		}
	}
	return out
}

// SolveSingleElement solves a scalar field. ok is false when nothing applied.
// Any deletion, or more than one distinct surviving literal, is an
// AmbiguousValueError.
func SolveSingleElement(block cty.Value, field string, f Facts, pp PostProc) (value string, ok bool, err error) {
	adds, dels, err := SolveElementList(block, field, f, pp)
	if err != nil {
		return "", false, err
	}
	return single(field, adds, dels)
}

// SolveSingleBool solves a scalar boolean field such as "lto".
func SolveSingleBool(block cty.Value, field string, f Facts) (value bool, ok bool, err error) {
	s, ok, err := SolveSingleElement(block, field, f, nil)
	if err != nil || !ok {
		return false, ok, err
	}
	b, perr := strconv.ParseBool(s)
	if perr != nil {
		return false, false, errs.Configuration("", field, "expected a boolean, got %q", s)
	}
	return b, true, nil
}

func single(field string, adds, dels []string) (string, bool, error) {
	if len(dels) > 0 {
		return "", false, errs.Ambiguous(field, adds, dels)
	}
	values := CombineElements(nil, adds, nil)
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		return values[0], true, nil
	default:
		return "", false, errs.Ambiguous(field, values, nil)
	}
}
