package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByName(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{
		"xzbuild.proj.json",
		"core/xzbuild.proj.json",
		"core/src/main.cpp",
		"util/xzbuild.proj.yaml",
		".git/xzbuild.proj.json",
		"deep/a/b/xzbuild.proj.hcl",
	} {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	files, err := FindFilesByName(root, "xzbuild.proj.json", "xzbuild.proj.yaml", "xzbuild.proj.hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "core/xzbuild.proj.json"),
		filepath.Join(root, "deep/a/b/xzbuild.proj.hcl"),
		filepath.Join(root, "util/xzbuild.proj.yaml"),
		filepath.Join(root, "xzbuild.proj.json"),
	}, files)

	assert.Panics(t, func() { _, _ = FindFilesByName(root) })
}

func TestCommonAncestor(t *testing.T) {
	cases := []struct{ a, b, want string }{
		{"/sol/core/src", "/sol/3rdParty/zlib/inflate.c", "/sol"},
		{"/sol/core", "/sol/core/src/a.c", "/sol/core"},
		{"/a", "/b", "/"},
		{"x/y", "x/z", "x"},
		{"x", "y", "."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CommonAncestor(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestIsWithin(t *testing.T) {
	assert.True(t, IsWithin("/sol/core", "/sol/core/src/a.c"))
	assert.True(t, IsWithin("/sol/core", "/sol/core"))
	assert.False(t, IsWithin("/sol/core", "/sol/corelib/a.c"))
	assert.False(t, IsWithin("/sol/core", "/sol/a.c"))
	assert.True(t, IsWithin("/sol/core", "/sol/core/..hidden/a.c"))
}
