package algebra

import (
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Chain runs the given hooks in order. Nil hooks are skipped.
func Chain(hooks ...PostProc) PostProc {
	return func(adds, dels []string, cond *Condition, f Facts) ([]string, []string) {
		for _, h := range hooks {
			if h != nil {
				adds, dels = h(adds, dels, cond, f)
			}
		}
		return adds, dels
	}
}

// PrefixDir joins the condition's "dir" attribute onto every item.
func PrefixDir() PostProc {
	return func(adds, dels []string, cond *Condition, _ Facts) ([]string, []string) {
		dir, ok := cond.Attr("dir")
		if !ok || dir == "" {
			return adds, dels
		}
		join := func(items []string) []string {
			out := make([]string, len(items))
			for i, item := range items {
				out[i] = filepath.Join(dir, item)
			}
			return out
		}
		return join(adds), join(dels)
	}
}

// ExpandFacts replaces items of the form <sigil><key> with the string value of
// that fact. Set and list facts expand to every member. Items naming an absent
// fact are kept unchanged.
func ExpandFacts(sigil string) PostProc {
	return func(adds, dels []string, _ *Condition, f Facts) ([]string, []string) {
		expand := func(items []string) []string {
			var out []string
			for _, item := range items {
				key, ok := strings.CutPrefix(item, sigil)
				if !ok || key == "" {
					out = append(out, item)
					continue
				}
				fact, ok := f.Fact(key)
				if !ok {
					out = append(out, item)
					continue
				}
				out = append(out, factStrings(fact, item)...)
			}
			return out
		}
		return expand(adds), expand(dels)
	}
}

// AbsUnder makes every relative item absolute under root.
func AbsUnder(root string) PostProc {
	return func(adds, dels []string, _ *Condition, _ Facts) ([]string, []string) {
		abs := func(items []string) []string {
			out := make([]string, len(items))
			for i, item := range items {
				if filepath.IsAbs(item) {
					out[i] = filepath.Clean(item)
				} else {
					out[i] = filepath.Join(root, item)
				}
			}
			return out
		}
		return abs(adds), abs(dels)
	}
}

func factStrings(v cty.Value, fallback string) []string {
	if isSequence(v) {
		s, err := Literals(v)
		if err != nil {
			return []string{fallback}
		}
		return s
	}
	s, err := scalarString(v)
	if err != nil {
		return []string{fallback}
	}
	return []string{s}
}
