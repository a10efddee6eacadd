package descriptor

import (
	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/zclconf/go-cty/cty"
)

// Document is one parsed descriptor or override file.
type Document struct {
	// Path is where the document was read from; used in error messages.
	Path string
	// Attrs holds the top-level fields.
	Attrs map[string]cty.Value
}

// Value returns the document as a single cty object.
func (d *Document) Value() cty.Value {
	if len(d.Attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(d.Attrs)
}

// Get returns a top-level field. Null fields count as absent.
func (d *Document) Get(field string) (cty.Value, bool) {
	v, ok := d.Attrs[field]
	if !ok || v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// String returns a scalar field rendered as a string.
func (d *Document) String(field string) (string, bool, error) {
	v, ok := d.Get(field)
	if !ok {
		return "", false, nil
	}
	items, err := algebra.Literals(v)
	if err != nil || len(items) != 1 || !v.Type().IsPrimitiveType() {
		return "", false, errs.Configuration(d.Path, field, "expected a single string")
	}
	return items[0], true, nil
}

// RequiredString is String with absence reported as a ConfigurationError.
func (d *Document) RequiredString(field string) (string, error) {
	s, ok, err := d.String(field)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", errs.Configuration(d.Path, field, "required field is missing")
	}
	return s, nil
}

// Strings returns a field holding a string or a list of strings.
func (d *Document) Strings(field string) ([]string, error) {
	v, ok := d.Get(field)
	if !ok {
		return nil, nil
	}
	items, err := algebra.Literals(v)
	if err != nil {
		return nil, errs.Configuration(d.Path, field, "expected a list of strings: %v", err)
	}
	return items, nil
}
