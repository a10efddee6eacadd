package descriptor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/specialistvlad/xzbuild/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// File name stems.
const (
	ProjectStem  = "xzbuild.proj"
	SolutionStem = "xzbuild.sol"
	UserStem     = "xzbuild.user"
)

// Extensions in lookup order.
var Extensions = []string{".json", ".hcl", ".yaml", ".yml"}

// FileNames returns every accepted file name for a stem.
func FileNames(stem string) []string {
	names := make([]string, len(Extensions))
	for i, ext := range Extensions {
		names[i] = stem + ext
	}
	return names
}

// ParseFile reads and parses a document, choosing the syntax by extension.
func ParseFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(ctx, path, data)
}

// Parse parses data as the syntax implied by filename's extension. Native HCL
// has no variables in scope: a "${name}" reference reads back as its own text.
func Parse(ctx context.Context, filename string, data []byte) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()

	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	switch ext := filepath.Ext(filename); ext {
	case ".json":
		file, diags = parser.ParseJSON(data, filename)
	case ".hcl":
		file, diags = parser.ParseHCL(data, filename)
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, errs.Configuration(filename, "", "invalid YAML: %v", err)
		}
		file, diags = parser.ParseJSON(converted, filename)
	default:
		return nil, errs.Configuration(filename, "", "unsupported descriptor format %q", ext)
	}
	if diags.HasErrors() {
		return nil, errs.Configuration(filename, "", "failed to parse: %s", diags.Error())
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, errs.Configuration(filename, "", "failed to decode: %s", diags.Error())
	}

	doc := &Document{Path: filename, Attrs: make(map[string]cty.Value, len(attrs))}
	native := filepath.Ext(filename) == ".hcl"
	for name, attr := range attrs {
		var evalCtx *hcl.EvalContext
		if native {
			evalCtx = templateLiterals(attr.Expr)
		}
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, errs.Configuration(filename, name, "invalid value: %s", diags.Error())
		}
		doc.Attrs[name] = val
	}
	logger.Debug("Parsed descriptor.", "file", filename, "fields", len(doc.Attrs))
	return doc, nil
}

// yamlToJSON re-encodes a YAML document so the JSON parser yields the same
// value shapes as a .json file.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if _, ok := normalizeYAML(raw).(map[string]any); !ok {
		return nil, fmt.Errorf("top level must be a mapping")
	}
	return json.Marshal(normalizeYAML(raw))
}

func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	}
	return v
}

// FindOne returns the first existing file for stem in dir, in Extensions
// order. ok is false when none exists.
func FindOne(dir, stem string) (path string, ok bool) {
	for _, name := range FileNames(stem) {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Discover finds every project descriptor under root. A directory holding
// several formats contributes only the first in Extensions order.
func Discover(ctx context.Context, root string) ([]string, error) {
	files, err := fsutil.FindFilesByName(root, FileNames(ProjectStem)...)
	if err != nil {
		return nil, fmt.Errorf("searching %s for descriptors: %w", root, err)
	}

	byDir := make(map[string]string)
	var order []string
	for _, f := range files {
		dir := filepath.Dir(f)
		prev, seen := byDir[dir]
		if !seen {
			order = append(order, dir)
			byDir[dir] = f
			continue
		}
		if extRank(f) < extRank(prev) {
			byDir[dir] = f
		}
	}

	out := make([]string, 0, len(order))
	for _, dir := range order {
		out = append(out, byDir[dir])
	}
	ctxlog.FromContext(ctx).Debug("Discovered project descriptors.", "root", root, "count", len(out))
	return out, nil
}

func extRank(path string) int {
	ext := filepath.Ext(path)
	for i, e := range Extensions {
		if e == ext {
			return i
		}
	}
	return len(Extensions)
}

// templateLiterals binds every variable referenced in a native HCL expression
// to its own "${name}" spelling, so version templates such as
// "${major}.${minor}" read as text, the same as in JSON and YAML. JSON
// expressions must keep a nil context to stay literal.
func templateLiterals(expr hcl.Expression) *hcl.EvalContext {
	refs := expr.Variables()
	if len(refs) == 0 {
		return nil
	}
	vars := make(map[string]cty.Value, len(refs))
	for _, ref := range refs {
		name := ref.RootName()
		vars[name] = cty.StringVal("${" + name + "}")
	}
	return &hcl.EvalContext{Variables: vars}
}
