package project

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/specialistvlad/xzbuild/internal/algebra"
	"github.com/specialistvlad/xzbuild/internal/descriptor"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/zclconf/go-cty/cty"
)

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadVersion resolves the "version" field. It is either a literal string or
// an extraction rule:
//
//	{"file": "include/ver.h", "template": "${major}.${minor}",
//	 "values": {"major": {"literal": "VER_MAJOR "}, "minor": {"regex": "VER_MINOR\\s+(\\d+)"}}}
//
// The file is read relative to the project directory. Without a template a
// single value is used as is.
func loadVersion(doc *descriptor.Document, dir string) (string, error) {
	raw, ok := doc.Get(FieldVersion)
	if !ok {
		return "", nil
	}
	if raw.Type().IsPrimitiveType() {
		s, _, err := doc.String(FieldVersion)
		return s, err
	}
	if !raw.Type().IsObjectType() && !raw.Type().IsMapType() {
		return "", errs.Configuration(doc.Path, FieldVersion, "expected a string or an extraction rule")
	}

	file, ok := stringAttr(raw, "file")
	if !ok || file == "" {
		return "", errs.Configuration(doc.Path, FieldVersion, `extraction rule needs a "file"`)
	}
	values, ok := algebra.Field(raw, "values")
	if !ok || !(values.Type().IsObjectType() || values.Type().IsMapType()) {
		return "", errs.Configuration(doc.Path, FieldVersion, `extraction rule needs a "values" mapping`)
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, file)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errs.Configuration(doc.Path, FieldVersion, "reading %s: %v", file, err)
	}

	extracted := make(map[string]string)
	var names []string
	for it := values.ElementIterator(); it.Next(); {
		k, rule := it.Element()
		name := k.AsString()
		v, err := extract(content, rule)
		if err != nil {
			return "", errs.Configuration(doc.Path, FieldVersion, "value %q: %v", name, err)
		}
		extracted[name] = v
		names = append(names, name)
	}
	sort.Strings(names)

	template, hasTemplate := stringAttr(raw, "template")
	if !hasTemplate {
		if len(names) != 1 {
			return "", errs.Configuration(doc.Path, FieldVersion, "a template is required with %d values", len(names))
		}
		return extracted[names[0]], nil
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := extracted[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", errs.Configuration(doc.Path, FieldVersion, "template references unknown values %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func extract(content []byte, rule cty.Value) (string, error) {
	if lit, ok := stringAttr(rule, "literal"); ok && lit != "" {
		sc := bufio.NewScanner(bytes.NewReader(content))
		for sc.Scan() {
			line := sc.Text()
			if i := strings.Index(line, lit); i >= 0 {
				return strings.TrimSpace(line[i+len(lit):]), nil
			}
		}
		return "", fmt.Errorf("literal %q not found", lit)
	}
	if expr, ok := stringAttr(rule, "regex"); ok && expr != "" {
		re, err := regexp.Compile(expr)
		if err != nil {
			return "", err
		}
		m := re.FindSubmatch(content)
		if m == nil {
			return "", fmt.Errorf("regex %q did not match", expr)
		}
		if len(m) < 2 {
			return strings.TrimSpace(string(m[0])), nil
		}
		return strings.TrimSpace(string(m[1])), nil
	}
	return "", fmt.Errorf(`expected a "literal" or "regex" rule`)
}

func stringAttr(block cty.Value, name string) (string, bool) {
	v, ok := algebra.Field(block, name)
	if !ok || !v.Type().IsPrimitiveType() {
		return "", false
	}
	items, err := algebra.Literals(v)
	if err != nil || len(items) != 1 {
		return "", false
	}
	return items[0], true
}
