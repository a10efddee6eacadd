package testutil

import (
	"testing"

	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/glob"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// JSONValue decodes a JSON snippet into a cty value the way descriptors are read.
func JSONValue(t *testing.T, src string) cty.Value {
	t.Helper()
	ty, err := ctyjson.ImpliedType([]byte(src))
	require.NoError(t, err)
	v, err := ctyjson.Unmarshal([]byte(src), ty)
	require.NoError(t, err)
	return v
}

// Request builds a resolution request for the prefix block of targetsJSON.
// An empty targetsJSON yields an empty block.
func Request(t *testing.T, p *project.Project, e *env.Environment, m glob.Matcher, prefix, targetsJSON string) *registry.Request {
	t.Helper()
	targets := cty.EmptyObjectVal
	if targetsJSON != "" {
		targets = JSONValue(t, targetsJSON)
	}
	block := cty.EmptyObjectVal
	if ty := targets.Type(); ty.IsObjectType() && ty.HasAttribute(prefix) {
		block = targets.GetAttr(prefix)
	}
	return &registry.Request{Project: p, Env: e, Targets: targets, Block: block, Matcher: m}
}
