package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/specialistvlad/xzbuild/internal/ctxlog"
)

var prefixPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks that prefixes are well formed and that no shared bucket
// name collides with a family prefix.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var problems []error

	shared := make(map[string]string)
	for _, f := range r.Families() {
		prefix := f.Prefix()
		if !prefixPattern.MatchString(prefix) {
			problems = append(problems, fmt.Errorf("family %q: prefix must match %s", prefix, prefixPattern))
		}
		sb, ok := f.(SharedBucketer)
		if !ok {
			continue
		}
		for _, bucket := range sb.SharedBuckets() {
			if _, clash := r.families[bucket]; clash {
				problems = append(problems, fmt.Errorf("family %q: shared bucket %q is also a family prefix", prefix, bucket))
			}
			shared[bucket] = prefix
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("registry validation failed: %w", errors.Join(problems...))
	}
	logger.Debug("Registry validated.", "families", len(r.order), "shared_buckets", len(shared))
	return nil
}

// IsShared reports whether name is a shared bucket of some family rather
// than a family prefix.
func (r *Registry) IsShared(name string) bool {
	for _, f := range r.Families() {
		sb, ok := f.(SharedBucketer)
		if !ok {
			continue
		}
		for _, bucket := range sb.SharedBuckets() {
			if bucket == name {
				return true
			}
		}
	}
	return false
}
