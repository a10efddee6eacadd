package target

import (
	"fmt"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/zclconf/go-cty/cty"
)

// Bucket returns a named block of the targets mapping.
func Bucket(targets cty.Value, name string) (cty.Value, bool) {
	return algebra.Field(targets, name)
}

// Layer solves field of block and merges the result onto dst.
func Layer(dst []string, block cty.Value, field string, f algebra.Facts, pp algebra.PostProc) ([]string, error) {
	adds, dels, err := algebra.SolveElementList(block, field, f, pp)
	if err != nil {
		return dst, err
	}
	return algebra.CombineElements(dst, adds, dels), nil
}

// Scalar returns the resolved scalar field, or cur when nothing applied.
func Scalar(cur string, block cty.Value, field string, f algebra.Facts) (string, error) {
	v, ok, err := algebra.SolveSingleElement(block, field, f, nil)
	if err != nil {
		return cur, err
	}
	if !ok {
		return cur, nil
	}
	return v, nil
}

// Layers applies a sequence of list fields in order, stopping at the first
// error. Each step names the destination and the field to solve into it.
type Layers struct {
	Block cty.Value
	Facts algebra.Facts
	err   error
}

// List merges field onto *dst.
func (l *Layers) List(dst *[]string, field string, pp algebra.PostProc) {
	if l.err != nil {
		return
	}
	out, err := Layer(*dst, l.Block, field, l.Facts, pp)
	if err != nil {
		l.err = err
		return
	}
	*dst = out
}

// Scalar overrides *dst with field when it resolves.
func (l *Layers) Scalar(dst *string, field string) {
	if l.err != nil {
		return
	}
	out, err := Scalar(*dst, l.Block, field, l.Facts)
	if err != nil {
		l.err = err
		return
	}
	*dst = out
}

// Bool overrides *dst with field when it resolves, and reports whether it did.
func (l *Layers) Bool(dst *bool, field string) bool {
	if l.err != nil {
		return false
	}
	v, ok, err := algebra.SolveSingleBool(l.Block, field, l.Facts)
	if err != nil {
		l.err = err
		return false
	}
	if ok {
		*dst = v
	}
	return ok
}

// Err returns the first failure, annotated with the bucket name.
func (l *Layers) Err(bucket string) error {
	if l.err == nil {
		return nil
	}
	return fmt.Errorf("bucket %s: %w", bucket, l.err)
}
