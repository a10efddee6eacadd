package env

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Override fields.
const (
	FieldEnv     = "env"
	FieldIncDirs = "incDirs"
	FieldLibDirs = "libDirs"
	FieldDefines = "defines"
)

// ApplyOverrides layers one override document onto the environment. Fact
// injections in "env" are applied first, so directory and define conditions
// can test them. Adds are KEY=VALUE or a bare KEY (true); deletions name keys.
// Directories are made absolute under the solution root.
func (e *Environment) ApplyOverrides(ctx context.Context, source string, block cty.Value) error {
	if err := e.checkWritable(source); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx).With("source", source)

	adds, dels, err := algebra.SolveElementList(block, FieldEnv, e, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	for _, item := range adds {
		key, value, hasValue := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if IsWellKnown(key) {
			logger.Warn("Ignoring override of a built-in fact.", "key", key)
			continue
		}
		if hasValue {
			e.ext[key] = cty.StringVal(value)
		} else {
			e.ext[key] = cty.True
		}
	}
	for _, item := range dels {
		key, _, _ := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if IsWellKnown(key) {
			logger.Warn("Ignoring removal of a built-in fact.", "key", key)
			continue
		}
		delete(e.ext, key)
	}

	dirHook := algebra.Chain(algebra.PrefixDir(), algebra.AbsUnder(e.rootDir))
	for _, f := range []struct {
		field string
		dst   *[]string
		pp    algebra.PostProc
	}{
		{FieldIncDirs, &e.incDirs, dirHook},
		{FieldLibDirs, &e.libDirs, dirHook},
		{FieldDefines, &e.defines, nil},
	} {
		adds, dels, err := algebra.SolveElementList(block, f.field, e, f.pp)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		*f.dst = algebra.CombineElements(*f.dst, adds, dels)
	}

	logger.Debug("Overrides applied.", "inc_dirs", len(e.incDirs), "lib_dirs", len(e.libDirs), "defines", len(e.defines))
	return nil
}
