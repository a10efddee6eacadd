package algebra

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Facts is the read-only fact context predicates are evaluated against.
type Facts interface {
	Fact(key string) (cty.Value, bool)
}

// MapFacts is a Facts backed by a plain map.
type MapFacts map[string]cty.Value

// Fact implements Facts. Null values count as absent.
func (m MapFacts) Fact(key string) (cty.Value, bool) {
	v, ok := m[key]
	if !ok || v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// Entry is one element of a configurable field. Exactly one of Literal or
// Cond is set.
type Entry struct {
	Literal []string
	Cond    *Condition
}

// Condition is a conditioned entry: all Clauses must hold for Add and Del to
// be contributed.
type Condition struct {
	Clauses []Clause
	Add     []string
	Del     []string
	// Attrs holds keys that are neither predicates nor "+"/"-", e.g. "dir".
	Attrs map[string]cty.Value
	// Unknown lists predicate names that are not in the catalogue.
	Unknown []string
}

// Attr returns a string attribute of the condition.
func (c *Condition) Attr(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.Attrs[name]
	if !ok {
		return "", false
	}
	s, err := scalarString(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// List is a parsed configurable field.
type List []Entry

// UnknownPredicates returns every unknown predicate name in the list, in order
// of first appearance.
func (l List) UnknownPredicates() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, e := range l {
		if e.Cond == nil {
			continue
		}
		for _, name := range e.Cond.Unknown {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// ScanUnknown walks an arbitrary value, such as a whole targets block, and
// returns the sorted set of "if*" keys that are not known predicates.
func ScanUnknown(v cty.Value) []string {
	seen := make(map[string]struct{})
	scanUnknown(v, seen)
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func scanUnknown(v cty.Value, seen map[string]struct{}) {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return
	}
	switch {
	case isMapping(v):
		for it := v.ElementIterator(); it.Next(); {
			k, el := it.Element()
			name := k.AsString()
			if strings.HasPrefix(name, "if") && !isKnownTest(name) {
				seen[name] = struct{}{}
			}
			scanUnknown(el, seen)
		}
	case isSequence(v):
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			scanUnknown(el, seen)
		}
	}
}

// Parse converts a raw field value into a List. A null value yields an empty
// list. A sequence is parsed element by element; anything else is parsed as a
// single entry.
func Parse(v cty.Value) (List, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("field value is not known")
	}
	if !isSequence(v) {
		e, err := parseEntry(v)
		if err != nil {
			return nil, err
		}
		return List{e}, nil
	}
	list := make(List, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		e, err := parseEntry(el)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

func parseEntry(v cty.Value) (Entry, error) {
	switch {
	case v.IsNull():
		return Entry{}, nil
	case isSequence(v):
		items, err := Literals(v)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Literal: items}, nil
	case isMapping(v):
		c, err := parseCondition(v)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Cond: c}, nil
	default:
		s, err := scalarString(v)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Literal: []string{s}}, nil
	}
}

func parseCondition(v cty.Value) (*Condition, error) {
	c := &Condition{Attrs: make(map[string]cty.Value)}
	for it := v.ElementIterator(); it.Next(); {
		k, val := it.Element()
		name := k.AsString()
		switch {
		case name == "+":
			items, err := Literals(val)
			if err != nil {
				return nil, fmt.Errorf(`invalid "+" list: %w`, err)
			}
			c.Add = items
		case name == "-":
			items, err := Literals(val)
			if err != nil {
				return nil, fmt.Errorf(`invalid "-" list: %w`, err)
			}
			c.Del = items
		case isKnownTest(name):
			clause, err := parseClause(name, val)
			if err != nil {
				return nil, err
			}
			c.Clauses = append(c.Clauses, clause)
		case strings.HasPrefix(name, "if"):
			c.Unknown = append(c.Unknown, name)
		default:
			c.Attrs[name] = val
		}
	}
	return c, nil
}

// Literals flattens a scalar or a sequence of scalars into strings.
func Literals(v cty.Value) ([]string, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	if !isSequence(v) {
		s, err := scalarString(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	out := make([]string, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		s, err := scalarString(el)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Field returns the named attribute of an object or map value.
func Field(block cty.Value, name string) (cty.Value, bool) {
	if block == cty.NilVal || block.IsNull() || !block.IsKnown() {
		return cty.NilVal, false
	}
	ty := block.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(name) {
			return cty.NilVal, false
		}
		v := block.GetAttr(name)
		return v, !v.IsNull()
	case ty.IsMapType():
		key := cty.StringVal(name)
		if block.HasIndex(key).False() {
			return cty.NilVal, false
		}
		v := block.Index(key)
		return v, !v.IsNull()
	}
	return cty.NilVal, false
}

func isSequence(v cty.Value) bool {
	ty := v.Type()
	return ty.IsTupleType() || ty.IsListType() || ty.IsSetType()
}

func isMapping(v cty.Value) bool {
	ty := v.Type()
	return ty.IsObjectType() || ty.IsMapType()
}

// scalarString renders a primitive value as a string.
func scalarString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("null item")
	}
	if !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("expected a string, number or bool, got %s", v.Type().FriendlyName())
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}
