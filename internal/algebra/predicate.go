package algebra

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Clause is one parsed predicate of a condition. Key tests (ifhas, ifno) use
// Keys; every other test uses Pairs. Multiple keys or pairs are ANDed.
type Clause struct {
	Test  string
	Keys  []string
	Pairs []Pair
}

// Pair is a fact key and the operand it is compared against.
type Pair struct {
	Key   string
	Value cty.Value
}

type keyTest func(f Facts, key string) bool

type pairTest func(f Facts, p Pair) bool

var keyTests = map[string]keyTest{
	"ifhas": func(f Facts, key string) bool { _, ok := f.Fact(key); return ok },
	"ifno":  func(f Facts, key string) bool { _, ok := f.Fact(key); return !ok },
}

var pairTests = map[string]pairTest{
	"ifeq":  factEquals,
	"ifneq": func(f Facts, p Pair) bool { return !factEquals(f, p) },
	"ifin":  factContains,
	"ifnin": func(f Facts, p Pair) bool { return !factContains(f, p) },
	"ifgt":  numericTest(func(c int) bool { return c > 0 }),
	"ifge":  numericTest(func(c int) bool { return c >= 0 }),
	"iflt":  numericTest(func(c int) bool { return c < 0 }),
	"ifle":  numericTest(func(c int) bool { return c <= 0 }),
}

func isKnownTest(name string) bool {
	if _, ok := keyTests[name]; ok {
		return true
	}
	_, ok := pairTests[name]
	return ok
}

func isNumericTest(name string) bool {
	switch name {
	case "ifgt", "ifge", "iflt", "ifle":
		return true
	}
	return false
}

// parseClause validates the operand shape of a predicate.
func parseClause(name string, v cty.Value) (Clause, error) {
	c := Clause{Test: name}
	if _, ok := keyTests[name]; ok {
		if isMapping(v) {
			for it := v.ElementIterator(); it.Next(); {
				k, _ := it.Element()
				c.Keys = append(c.Keys, k.AsString())
			}
			return c, nil
		}
		keys, err := Literals(v)
		if err != nil {
			return c, fmt.Errorf("predicate %s: %w", name, err)
		}
		c.Keys = keys
		return c, nil
	}

	pairs, err := parsePairs(v)
	if err != nil {
		return c, fmt.Errorf("predicate %s: %w", name, err)
	}
	if isNumericTest(name) {
		for _, p := range pairs {
			if _, ok := asNumber(p.Value); !ok {
				return c, fmt.Errorf("predicate %s: operand for %q is not numeric", name, p.Key)
			}
		}
	}
	c.Pairs = pairs
	return c, nil
}

// parsePairs accepts [key, value], [[key, value], ...] or {key: value, ...}.
func parsePairs(v cty.Value) ([]Pair, error) {
	if isMapping(v) {
		var pairs []Pair
		for it := v.ElementIterator(); it.Next(); {
			k, val := it.Element()
			pairs = append(pairs, Pair{Key: k.AsString(), Value: val})
		}
		return pairs, nil
	}
	if !isSequence(v) {
		return nil, fmt.Errorf("expected [key, value] or a mapping, got %s", v.Type().FriendlyName())
	}
	elems := v.AsValueSlice()
	if len(elems) > 0 && allSequences(elems) {
		var pairs []Pair
		for _, el := range elems {
			p, err := singlePair(el.AsValueSlice())
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, p)
		}
		return pairs, nil
	}
	p, err := singlePair(elems)
	if err != nil {
		return nil, err
	}
	return []Pair{p}, nil
}

func singlePair(elems []cty.Value) (Pair, error) {
	if len(elems) != 2 {
		return Pair{}, fmt.Errorf("expected [key, value], got %d items", len(elems))
	}
	key, err := scalarString(elems[0])
	if err != nil {
		return Pair{}, err
	}
	return Pair{Key: key, Value: elems[1]}, nil
}

func allSequences(elems []cty.Value) bool {
	for _, el := range elems {
		if !isSequence(el) {
			return false
		}
	}
	return true
}

// Holds reports whether the clause is satisfied by f.
func (c Clause) Holds(f Facts) bool {
	if kt, ok := keyTests[c.Test]; ok {
		for _, k := range c.Keys {
			if !kt(f, k) {
				return false
			}
		}
		return true
	}
	pt, ok := pairTests[c.Test]
	if !ok {
		return true
	}
	for _, p := range c.Pairs {
		if !pt(f, p) {
			return false
		}
	}
	return true
}

// Holds reports whether every clause of the condition is satisfied.
func (c *Condition) Holds(f Facts) bool {
	for _, clause := range c.Clauses {
		if !clause.Holds(f) {
			return false
		}
	}
	return true
}

func factEquals(f Facts, p Pair) bool {
	fact, ok := f.Fact(p.Key)
	if !ok {
		return false
	}
	if fact.Type() == cty.Number {
		if want, ok := asNumber(p.Value); ok {
			return fact.AsBigFloat().Cmp(want) == 0
		}
	}
	if !fact.Type().IsPrimitiveType() {
		return false
	}
	got, err1 := scalarString(fact)
	want, err2 := scalarString(p.Value)
	return err1 == nil && err2 == nil && got == want
}

func factContains(f Facts, p Pair) bool {
	fact, ok := f.Fact(p.Key)
	if !ok {
		return false
	}
	want, err := scalarString(p.Value)
	if err != nil {
		return false
	}
	switch {
	case fact.Type() == cty.String:
		return strings.Contains(fact.AsString(), want)
	case isSequence(fact):
		for it := fact.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if s, err := scalarString(el); err == nil && s == want {
				return true
			}
		}
	case isMapping(fact):
		_, ok := Field(fact, want)
		return ok
	}
	return false
}

func numericTest(accept func(cmp int) bool) pairTest {
	return func(f Facts, p Pair) bool {
		want, ok := asNumber(p.Value)
		if !ok {
			return false
		}
		got := new(big.Float)
		if fact, ok := f.Fact(p.Key); ok {
			if n, ok := asNumber(fact); ok {
				got = n
			}
		}
		return accept(got.Cmp(want))
	}
}

func asNumber(v cty.Value) (*big.Float, bool) {
	if v.IsNull() || !v.Type().IsPrimitiveType() {
		return nil, false
	}
	n, err := convert.Convert(v, cty.Number)
	if err != nil || n.IsNull() {
		return nil, false
	}
	return n.AsBigFloat(), true
}
