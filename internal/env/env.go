// Package env holds the fact snapshot that every configuration condition is
// evaluated against.
//
// An Environment is built once per run from the host platform, a compiler
// macro probe and run parameters. Solution-level and then user-level
// overrides are applied on top, toolchain families record their homes, and
// the environment is frozen before any project is resolved. A frozen
// Environment is read-only and safe for concurrent use.
package env

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/zclconf/go-cty/cty"
)

// Well-known fact keys.
const (
	KeyOSName          = "osname"
	KeyPlatform        = "platform"
	KeyArch            = "arch"
	KeyBits            = "bits"
	KeyCompiler        = "compiler"
	KeyCompilerVersion = "compilerVersion"
	KeyGCCVer          = "gccVer"
	KeyClangVer        = "clangVer"
	KeyStdlib          = "stdlib"
	KeyStdlibVersion   = "stdlibVersion"
	KeyIntrin          = "intrin"
	KeyTarget          = "target"
	KeyThreads         = "threads"
	KeyCPUCount        = "cpuCount"
	KeyVerbose         = "verbose"
	KeyGProf           = "gprof"
	KeyRootDir         = "rootDir"
	KeyObjPath         = "objpath"
	KeyInstallDir      = "installDir"
	KeyXZBuildPath     = "xzbuildPath"
	KeyIncDirs         = "incDirs"
	KeyLibDirs         = "libDirs"
	KeyDefines         = "defines"
)

var wellKnown = map[string]struct{}{
	KeyOSName: {}, KeyPlatform: {}, KeyArch: {}, KeyBits: {}, KeyCompiler: {},
	KeyCompilerVersion: {}, KeyGCCVer: {}, KeyClangVer: {}, KeyStdlib: {},
	KeyStdlibVersion: {}, KeyIntrin: {}, KeyTarget: {}, KeyThreads: {},
	KeyCPUCount: {}, KeyVerbose: {}, KeyGProf: {}, KeyRootDir: {}, KeyObjPath: {},
	KeyInstallDir: {}, KeyXZBuildPath: {}, KeyIncDirs: {}, KeyLibDirs: {}, KeyDefines: {},
}

// IsWellKnown reports whether key is owned by the environment itself.
func IsWellKnown(key string) bool {
	_, ok := wellKnown[key]
	return ok
}

// Environment is the resolved fact snapshot of one run.
type Environment struct {
	osName          string
	platform        string
	arch            string
	bits            int
	compiler        string
	compilerVersion Version
	stdlib          string
	stdlibVersion   int
	intrin          []string
	target          string
	threads         int
	cpuCount        int
	verbose         bool
	gprof           bool
	rootDir         string
	objPath         string
	installDir      string
	xzbuildPath     string

	incDirs []string
	libDirs []string
	defines []string

	toolHomes map[string]string
	ext       map[string]cty.Value
	frozen    bool
}

// Version is a dotted compiler version.
type Version struct {
	Major, Minor, Patch int
}

// Number encodes the version as major*10000 + minor*100 + patch.
func (v Version) Number() int {
	return v.Major*10000 + v.Minor*100 + v.Patch
}

// String renders the version as major.minor.patch.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// OSName returns Linux, Darwin, Windows or the raw GOOS value.
func (e *Environment) OSName() string { return e.osName }

// Platform returns x64, x86, ARM64 or ARM.
func (e *Environment) Platform() string { return e.platform }

// Arch returns the architecture family, "x86" or "arm".
func (e *Environment) Arch() string { return e.arch }

// Bits returns 64 or 32.
func (e *Environment) Bits() int { return e.bits }

// Compiler returns "gcc" or "clang".
func (e *Environment) Compiler() string { return e.compiler }

// CompilerVersion returns the detected compiler version.
func (e *Environment) CompilerVersion() Version { return e.compilerVersion }

// Stdlib returns the detected C++ standard library, or "" when unknown.
func (e *Environment) Stdlib() string { return e.stdlib }

// StdlibVersion returns the encoded standard library version.
func (e *Environment) StdlibVersion() int { return e.stdlibVersion }

// Intrin returns the sorted capability labels.
func (e *Environment) Intrin() []string { return append([]string(nil), e.intrin...) }

// HasIntrin reports whether the capability label is present.
func (e *Environment) HasIntrin(label string) bool {
	i := sort.SearchStrings(e.intrin, label)
	return i < len(e.intrin) && e.intrin[i] == label
}

// Target returns Debug or Release.
func (e *Environment) Target() string { return e.target }

// IsRelease reports whether the run targets Release.
func (e *Environment) IsRelease() bool { return e.target == TargetRelease }

// Threads returns the parallel job count passed to the build tool.
func (e *Environment) Threads() int { return e.threads }

// CPUCount returns the logical CPU count of the host.
func (e *Environment) CPUCount() int { return e.cpuCount }

// Verbose reports whether sources and build commands are printed.
func (e *Environment) Verbose() bool { return e.verbose }

// GProf reports whether gprof instrumentation is on.
func (e *Environment) GProf() bool { return e.gprof }

// RootDir returns the absolute solution root.
func (e *Environment) RootDir() string { return e.rootDir }

// ObjPath returns the output sub path, relative to a project or the root.
func (e *Environment) ObjPath() string { return e.objPath }

// InstallDir returns the OS install prefix.
func (e *Environment) InstallDir() string { return e.installDir }

// XZBuildPath returns the directory holding the make core, relative to root.
func (e *Environment) XZBuildPath() string { return e.xzbuildPath }

// IncDirs returns the solution include directories.
func (e *Environment) IncDirs() []string { return append([]string(nil), e.incDirs...) }

// LibDirs returns the solution library directories.
func (e *Environment) LibDirs() []string { return append([]string(nil), e.libDirs...) }

// Defines returns the solution-wide defines.
func (e *Environment) Defines() []string { return append([]string(nil), e.defines...) }

// ToolHome returns the home directory a toolchain family recorded.
func (e *Environment) ToolHome(name string) (string, bool) {
	home, ok := e.toolHomes[name]
	return home, ok
}

// SetToolHome records a toolchain home. It is exposed as the fact <name>Home.
func (e *Environment) SetToolHome(name, path string) error {
	if err := e.checkWritable("tool home " + name); err != nil {
		return err
	}
	e.toolHomes[name] = path
	return nil
}

// Set stores an extension fact. Well-known keys cannot be set this way.
func (e *Environment) Set(key string, v cty.Value) error {
	if err := e.checkWritable(key); err != nil {
		return err
	}
	if IsWellKnown(key) {
		return errs.Configuration("", key, "fact %q is owned by the environment and cannot be overridden", key)
	}
	e.ext[key] = v
	return nil
}

// Delete removes an extension fact.
func (e *Environment) Delete(key string) error {
	if err := e.checkWritable(key); err != nil {
		return err
	}
	if IsWellKnown(key) {
		return errs.Configuration("", key, "fact %q is owned by the environment and cannot be removed", key)
	}
	delete(e.ext, key)
	return nil
}

// Freeze forbids further writes.
func (e *Environment) Freeze() { e.frozen = true }

// Frozen reports whether Freeze was called.
func (e *Environment) Frozen() bool { return e.frozen }

func (e *Environment) checkWritable(what string) error {
	if e.frozen {
		return errs.Configuration("", what, "environment is frozen")
	}
	return nil
}

// Fact implements algebra.Facts.
func (e *Environment) Fact(key string) (cty.Value, bool) {
	switch key {
	case KeyOSName:
		return nonEmpty(e.osName)
	case KeyPlatform:
		return nonEmpty(e.platform)
	case KeyArch:
		return nonEmpty(e.arch)
	case KeyBits:
		return cty.NumberIntVal(int64(e.bits)), true
	case KeyCompiler:
		return nonEmpty(e.compiler)
	case KeyCompilerVersion:
		return cty.NumberIntVal(int64(e.compilerVersion.Number())), e.compiler != ""
	case KeyGCCVer:
		return cty.NumberIntVal(int64(e.compilerVersion.Number())), e.compiler == CompilerGCC
	case KeyClangVer:
		return cty.NumberIntVal(int64(e.compilerVersion.Number())), e.compiler == CompilerClang
	case KeyStdlib:
		return nonEmpty(e.stdlib)
	case KeyStdlibVersion:
		return cty.NumberIntVal(int64(e.stdlibVersion)), e.stdlib != ""
	case KeyIntrin:
		return stringSet(e.intrin), true
	case KeyTarget:
		return nonEmpty(e.target)
	case KeyThreads:
		return cty.NumberIntVal(int64(e.threads)), true
	case KeyCPUCount:
		return cty.NumberIntVal(int64(e.cpuCount)), true
	case KeyVerbose:
		return cty.BoolVal(e.verbose), true
	case KeyGProf:
		return cty.BoolVal(e.gprof), true
	case KeyRootDir:
		return nonEmpty(e.rootDir)
	case KeyObjPath:
		return nonEmpty(e.objPath)
	case KeyInstallDir:
		return nonEmpty(e.installDir)
	case KeyXZBuildPath:
		return nonEmpty(e.xzbuildPath)
	case KeyIncDirs:
		return stringList(e.incDirs)
	case KeyLibDirs:
		return stringList(e.libDirs)
	case KeyDefines:
		return stringList(e.defines)
	}
	if v, ok := e.ext[key]; ok && !v.IsNull() {
		return v, true
	}
	if name, ok := strings.CutSuffix(key, "Home"); ok && name != "" {
		if home, ok := e.toolHomes[name]; ok {
			return cty.StringVal(home), true
		}
	}
	return cty.NilVal, false
}

// Keys returns every present fact key, sorted.
func (e *Environment) Keys() []string {
	var keys []string
	for k := range wellKnown {
		if _, ok := e.Fact(k); ok {
			keys = append(keys, k)
		}
	}
	for k, v := range e.ext {
		if !v.IsNull() {
			keys = append(keys, k)
		}
	}
	for name := range e.toolHomes {
		key := name + "Home"
		if _, clash := e.ext[key]; !clash {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func nonEmpty(s string) (cty.Value, bool) {
	if s == "" {
		return cty.NilVal, false
	}
	return cty.StringVal(s), true
}

func stringSet(items []string) cty.Value {
	if len(items) == 0 {
		return cty.SetValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.SetVal(vals)
}

func stringList(items []string) (cty.Value, bool) {
	if len(items) == 0 {
		return cty.NilVal, false
	}
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals), true
}
