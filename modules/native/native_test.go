package native

import (
	"bytes"
	"context"
	"testing"

	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/specialistvlad/xzbuild/internal/fragment"
	"github.com/specialistvlad/xzbuild/internal/project"
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/sol"

var files = &testutil.FakeMatcher{Files: []string{
	"/sol/lib/src/a.cpp",
	"/sol/lib/src/b.c",
	"/sol/lib/src/start.S",
}}

func resolve(t *testing.T, e *env.Environment, prefix, targets string) *Target {
	t.Helper()
	r := registry.New()
	(&Module{}).Register(r)
	f, ok := r.Family(prefix)
	require.True(t, ok)

	p := &project.Project{Name: "lib", Kind: project.KindStatic, BuildPath: "lib", SrcPath: "lib/src"}
	got, err := f.Resolve(context.Background(), testutil.Request(t, p, e, files, prefix, targets))
	require.NoError(t, err)
	return got.(*Target)
}

func emit(t *testing.T, tg *Target) string {
	t.Helper()
	var buf bytes.Buffer
	w := fragment.NewWriter(&buf)
	tg.Emit(w)
	require.NoError(t, w.Err())
	return buf.String()
}

func TestResolve_GCCDebugDefaults(t *testing.T) {
	e := testutil.NewEnv(t, root)
	tg := resolve(t, e, "cpp", `{"cpp": {"sources": ["*.cpp"]}}`)

	want := "\n\n# For target [cpp]\n" +
		"cpp_srcs\t:= a.cpp\n" +
		"cpp_flags\t:= -Wall -pedantic -march=native -pthread -Wno-unknown-pragmas -Wno-ignored-attributes -Wno-unused-local-typedefs -m64\n" +
		"cpp_defs\t:= \n" +
		"cpp_incpaths\t:= \n" +
		"cpp_flags\t+= -std=c++17 -g3 -O0\n" +
		"cpp_pch\t:= \n"
	assert.Equal(t, want, emit(t, tg))
}

func TestResolve_ClangReleaseOnARM(t *testing.T) {
	e := testutil.NewEnv(t, root,
		testutil.WithTarget(env.TargetRelease),
		testutil.WithPlatform("arm64"),
		testutil.WithMacros(testutil.ClangMacros(16)),
	)
	tg := resolve(t, e, "c", `{"c": {"sources": ["*.c"]}}`)

	assert.Equal(t, []string{"b.c"}, tg.Sources)
	assert.Contains(t, tg.Flags, "-mcpu=native")
	assert.Contains(t, tg.Flags, "-Wno-newline-eof")
	assert.NotContains(t, tg.Flags, "-march=native")
	assert.NotContains(t, tg.Flags, "-m64")
	assert.Equal(t, "-flto", tg.Flags[len(tg.Flags)-1])
	assert.Equal(t, []string{"NDEBUG"}, tg.Defines)
	assert.Equal(t, "-O2", tg.Optimize)
	assert.Equal(t, "-std=c11", tg.Version)
}

func TestResolve_SharedBucketThenLanguage(t *testing.T) {
	e := testutil.NewEnv(t, root)
	targets := `{
		"cxx": {"flags": ["-fPIC"], "defines": ["SHARED"], "optimize": "-O1", "incpath": ["$(SolDir)/include"]},
		"cpp": {"defines": ["LANG", {"-": ["SHARED"]}], "optimize": "-O3"},
		"c": {}
	}`

	t.Run("language overrides shared", func(t *testing.T) {
		tg := resolve(t, e, "cpp", targets)
		assert.Contains(t, tg.Flags, "-fPIC")
		assert.Equal(t, []string{"LANG"}, tg.Defines)
		assert.Equal(t, "-O3", tg.Optimize)
		assert.Equal(t, []string{"/sol/include"}, tg.IncPath)
	})

	t.Run("shared alone", func(t *testing.T) {
		tg := resolve(t, e, "c", targets)
		assert.Contains(t, tg.Flags, "-fPIC")
		assert.Equal(t, []string{"SHARED"}, tg.Defines)
		assert.Equal(t, "-O1", tg.Optimize)
	})
}

func TestResolve_Extras(t *testing.T) {
	e := testutil.NewEnv(t, root,
		testutil.WithTarget(env.TargetRelease),
		testutil.WithParams(map[string]string{"gprof": "true"}),
	)
	tg := resolve(t, e, "cpp", `{"cpp": {
		"visibility": "hidden",
		"lto": "false",
		"pch": "$(SolDir)/pch.h",
		"debug": [{"ifeq": ["target", "Release"], "+": ["-g1"]}]
	}}`)

	assert.Contains(t, tg.Flags, "-pg")
	assert.Contains(t, tg.Flags, "-fvisibility=hidden")
	assert.NotContains(t, tg.Flags, "-flto")
	assert.Equal(t, "/sol/pch.h", tg.PCH)
	assert.Equal(t, "-g1", tg.DebugLevel)
}

func TestResolve_LTO(t *testing.T) {
	debug := testutil.NewEnv(t, root)
	release := testutil.NewEnv(t, root, testutil.WithTarget(env.TargetRelease))

	t.Run("explicit flag kept in Debug", func(t *testing.T) {
		tg := resolve(t, debug, "cpp", `{"cpp": {"sources": ["*.cpp"], "flags": ["-flto"]}}`)
		assert.Contains(t, tg.Flags, "-flto")
		assert.False(t, tg.LTO)
	})

	t.Run("explicit flag from shared bucket kept in Debug", func(t *testing.T) {
		tg := resolve(t, debug, "cpp", `{"cxx": {"flags": ["-flto"]}, "cpp": {}}`)
		assert.Contains(t, tg.Flags, "-flto")
	})

	t.Run("lto true in Debug adds the flag", func(t *testing.T) {
		tg := resolve(t, debug, "cpp", `{"cxx": {"lto": "true"}, "cpp": {}}`)
		assert.Equal(t, "-flto", tg.Flags[len(tg.Flags)-1])
	})

	t.Run("Release default removable through flags", func(t *testing.T) {
		tg := resolve(t, release, "cpp", `{"cpp": {"flags": [{"-": ["-flto"]}]}}`)
		assert.NotContains(t, tg.Flags, "-flto")
	})

	t.Run("lto false in shared bucket wins over Release", func(t *testing.T) {
		tg := resolve(t, release, "c", `{"cxx": {"lto": "false"}, "c": {}}`)
		assert.NotContains(t, tg.Flags, "-flto")
	})
}

func TestResolve_AssemblyHasNoStandard(t *testing.T) {
	e := testutil.NewEnv(t, root)
	tg := resolve(t, e, "asm", `{"asm": {"sources": ["*.S"]}}`)

	assert.Equal(t, []string{"start.S"}, tg.Sources)
	assert.Contains(t, emit(t, tg), "asm_flags\t+= -g3 -O0\n")
}

func TestResolve_AmbiguousScalar(t *testing.T) {
	e := testutil.NewEnv(t, root)
	r := registry.New()
	(&Module{}).Register(r)
	f, _ := r.Family("cpp")

	p := &project.Project{Name: "lib", Kind: project.KindStatic, BuildPath: "lib", SrcPath: "lib/src"}
	req := testutil.Request(t, p, e, files, "cpp", `{"cxx": {"pch": ["a.h", "b.h"]}}`)
	_, err := f.Resolve(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrAmbiguousValue)
	var ambiguous *errs.AmbiguousValueError
	require.True(t, errs.As(err, &ambiguous))
	assert.Equal(t, "pch", ambiguous.Field)
}

func TestDowngradeStandard(t *testing.T) {
	testCases := []struct {
		name    string
		macros  map[string]string
		version string
		want    string
	}{
		{"gcc 9 c++20", testutil.GCCMacros(9), "-std=c++20", "-std=c++2a"},
		{"gcc 10 c++20", testutil.GCCMacros(10), "-std=c++20", "-std=c++20"},
		{"gcc 9 gnu++20", testutil.GCCMacros(9), "-std=gnu++20", "-std=gnu++2a"},
		{"gcc 6 c++17", testutil.GCCMacros(6), "-std=c++17", "-std=c++1z"},
		{"gcc 10 c++23", testutil.GCCMacros(10), "-std=c++23", "-std=c++2b"},
		{"gcc 7 c17", testutil.GCCMacros(7), "-std=c17", "-std=c11"},
		{"gcc 7 c++14", testutil.GCCMacros(7), "-std=c++14", "-std=c++14"},
		{"clang 4 c++17", testutil.ClangMacros(4), "-std=c++17", "-std=c++1z"},
		{"clang 16 c++23", testutil.ClangMacros(16), "-std=c++23", "-std=c++2b"},
		{"clang 17 c++23", testutil.ClangMacros(17), "-std=c++23", "-std=c++23"},
		{"not a standard flag", testutil.GCCMacros(4), "-fno-rtti", "-fno-rtti"},
		{"empty", testutil.GCCMacros(4), "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := testutil.NewEnv(t, root, testutil.WithMacros(tc.macros))
			assert.Equal(t, tc.want, downgradeStandard(tc.version, e))
		})
	}
}

func TestModuleRegistersSharedBucket(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	assert.Equal(t, []string{"c", "cpp", "asm"}, r.Prefixes())
	assert.True(t, r.IsShared(SharedBucket))
	require.NoError(t, r.Validate(context.Background()))
}
