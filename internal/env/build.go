package env

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/specialistvlad/xzbuild/internal/ctxlog"
	"github.com/specialistvlad/xzbuild/internal/errs"
	"github.com/specialistvlad/xzbuild/internal/probe"
	"github.com/zclconf/go-cty/cty"
)

// Build targets.
const (
	TargetDebug   = "Debug"
	TargetRelease = "Release"
)

// Compiler ids.
const (
	CompilerGCC   = "gcc"
	CompilerClang = "clang"
)

// Platforms.
const (
	PlatformX64   = "x64"
	PlatformX86   = "x86"
	PlatformARM64 = "ARM64"
	PlatformARM   = "ARM"
)

const (
	defaultCompiler    = "g++"
	defaultInstallDir  = "/usr/local"
	defaultXZBuildPath = "xzbuild"
)

// stdlibProbe pulls in a libstdc++ or libc++ configuration header when one is
// available so their version macros show up in the macro dump.
const stdlibProbe = `#if defined(__has_include)
#if __has_include(<cstddef>)
#include <cstddef>
#endif
#endif
`

// intrinMap maps predefined macros to capability labels.
var intrinMap = map[string]string{
	"__SSE__":              "sse",
	"__SSE2__":             "sse2",
	"__SSE3__":             "sse3",
	"__SSSE3__":            "ssse3",
	"__SSE4_1__":           "sse41",
	"__SSE4_2__":           "sse42",
	"__AVX__":              "avx",
	"__FMA__":              "fma",
	"__AVX2__":             "avx2",
	"__AVX512F__":          "avx512f",
	"__AVX512BW__":         "avx512bw",
	"__AVX512DQ__":         "avx512dq",
	"__AVX512VL__":         "avx512vl",
	"__AES__":              "aes",
	"__SHA__":              "sha",
	"__PCLMUL__":           "pclmul",
	"__F16C__":             "f16c",
	"__BMI__":              "bmi",
	"__BMI2__":             "bmi2",
	"__ARM_NEON":           "neon",
	"__ARM_FEATURE_CRC32":  "crc32",
	"__ARM_FEATURE_CRYPTO": "crypto",
}

// Options are the inputs of Build. Zero values select host defaults.
type Options struct {
	// RootDir is the solution root. Defaults to the working directory.
	RootDir string
	// GOOS and GOARCH describe the host. Default to the running binary's.
	GOOS   string
	GOARCH string
	// Platform overrides the platform derived from GOARCH.
	Platform string
	// Target is Debug or Release. Defaults to Debug.
	Target string
	// Compiler is the compiler command line. Defaults to $CXX, then g++.
	Compiler []string
	// Threads overrides the logical CPU count.
	Threads int
	// Params are run parameters given on the command line as key=value.
	Params map[string]string
	// InstallDir overrides the OS install prefix.
	InstallDir string
	// XZBuildPath is where the make core lives, relative to RootDir.
	XZBuildPath string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Build probes the host and assembles a new, unfrozen Environment.
func Build(ctx context.Context, opts Options, p probe.MacroProbe) (*Environment, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building environment.")

	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.GOARCH == "" {
		opts.GOARCH = runtime.GOARCH
	}

	e := &Environment{
		osName:      osName(opts.GOOS),
		target:      TargetDebug,
		installDir:  defaultInstallDir,
		xzbuildPath: defaultXZBuildPath,
		toolHomes:   make(map[string]string),
		ext:         make(map[string]cty.Value),
	}

	root := opts.RootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}
	e.rootDir = abs

	if err := e.setPlatform(opts.Platform, opts.GOARCH); err != nil {
		return nil, err
	}
	if opts.Target != "" {
		switch opts.Target {
		case TargetDebug, TargetRelease:
			e.target = opts.Target
		default:
			return nil, errs.Configuration("", KeyTarget, "unknown target %q, expected Debug or Release", opts.Target)
		}
	}
	if opts.InstallDir != "" {
		e.installDir = opts.InstallDir
	}
	if opts.XZBuildPath != "" {
		e.xzbuildPath = opts.XZBuildPath
	}

	e.cpuCount = logicalCPUs(ctx)
	e.threads = e.cpuCount
	if opts.Threads > 0 {
		e.threads = opts.Threads
	}

	if err := e.applyParams(opts.Params); err != nil {
		return nil, err
	}

	if e.platform == PlatformX86 {
		e.objPath = e.target
	} else {
		e.objPath = e.platform + "/" + e.target
	}

	compiler, err := compilerCommand(opts)
	if err != nil {
		return nil, err
	}
	if e.osName != "Windows" {
		if p == nil {
			return nil, errs.Probe("compiler", fmt.Errorf("no macro probe available"))
		}
		macros, err := p.Probe(ctx, probe.Request{
			Compiler: compiler,
			Flags:    e.probeFlags(),
			Input:    stdlibProbe,
		})
		if err != nil {
			return nil, errs.Probe(compiler[0], err)
		}
		if err := e.applyMacros(macros); err != nil {
			return nil, errs.Probe(compiler[0], err)
		}
	}

	logger.Debug("Environment built.",
		"os", e.osName, "platform", e.platform, "compiler", e.compiler,
		"compiler_version", e.compilerVersion.String(), "stdlib", e.stdlib,
		"intrin", e.intrin, "target", e.target, "threads", e.threads)
	return e, nil
}

func osName(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	}
	return goos
}

func (e *Environment) setPlatform(override, goarch string) error {
	platform := override
	if platform == "" {
		switch goarch {
		case "amd64":
			platform = PlatformX64
		case "386":
			platform = PlatformX86
		case "arm64":
			platform = PlatformARM64
		case "arm":
			platform = PlatformARM
		default:
			return errs.Configuration("", KeyPlatform, "unsupported architecture %q", goarch)
		}
	}
	switch platform {
	case PlatformX64:
		e.arch, e.bits = "x86", 64
	case PlatformX86:
		e.arch, e.bits = "x86", 32
	case PlatformARM64:
		e.arch, e.bits = "arm", 64
	case PlatformARM:
		e.arch, e.bits = "arm", 32
	default:
		return errs.Configuration("", KeyPlatform, "unknown platform %q, expected x64, x86, ARM64 or ARM", platform)
	}
	e.platform = platform
	return nil
}

// probeFlags mirror the native defaults so the capability labels match what
// the compiler will actually target.
func (e *Environment) probeFlags() []string {
	flags := []string{"-x", "c++"}
	if e.arch == "arm" {
		return append(flags, "-mcpu=native")
	}
	flags = append(flags, "-march=native")
	if e.bits == 64 {
		return append(flags, "-m64")
	}
	return append(flags, "-m32")
}

func compilerCommand(opts Options) ([]string, error) {
	if len(opts.Compiler) > 0 {
		return opts.Compiler, nil
	}
	raw := strings.TrimSpace(opts.Getenv("CXX"))
	if raw == "" {
		return []string{defaultCompiler}, nil
	}
	words, err := shellquote.Split(raw)
	if err != nil {
		return nil, errs.Configuration("CXX", "", "cannot split compiler command %q: %v", raw, err)
	}
	if len(words) == 0 {
		return []string{defaultCompiler}, nil
	}
	return words, nil
}

func (e *Environment) applyMacros(m probe.Macros) error {
	switch {
	case m.Has("__clang__"):
		e.compiler = CompilerClang
		e.compilerVersion = Version{
			Major: macroInt(m, "__clang_major__"),
			Minor: macroInt(m, "__clang_minor__"),
			Patch: macroInt(m, "__clang_patchlevel__"),
		}
	case m.Has("__GNUC__"):
		e.compiler = CompilerGCC
		e.compilerVersion = Version{
			Major: macroInt(m, "__GNUC__"),
			Minor: macroInt(m, "__GNUC_MINOR__"),
			Patch: macroInt(m, "__GNUC_PATCHLEVEL__"),
		}
	default:
		return fmt.Errorf("unrecognized compiler: neither __clang__ nor __GNUC__ is defined")
	}

	switch {
	case m.Has("_LIBCPP_VERSION"):
		e.stdlib = "libc++"
		e.stdlibVersion = macroInt(m, "_LIBCPP_VERSION")
	case m.Has("_GLIBCXX_RELEASE"):
		e.stdlib = "libstdc++"
		e.stdlibVersion = macroInt(m, "_GLIBCXX_RELEASE") * 10000
	}

	e.intrin = e.intrin[:0]
	for macro, label := range intrinMap {
		if m.Has(macro) {
			e.intrin = append(e.intrin, label)
		}
	}
	sort.Strings(e.intrin)
	return nil
}

func macroInt(m probe.Macros, name string) int {
	v := strings.TrimRight(strings.TrimSpace(m[name]), "LlUu")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func logicalCPUs(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n <= 0 {
		ctxlog.FromContext(ctx).Debug("Falling back to runtime CPU count.", "error", err)
		return runtime.NumCPU()
	}
	return n
}

// applyParams maps run parameters onto typed facts. Unknown keys become
// extension strings.
func (e *Environment) applyParams(params map[string]string) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := params[k]
		switch k {
		case KeyVerbose, KeyGProf:
			b := true
			if v != "" {
				parsed, err := strconv.ParseBool(v)
				if err != nil {
					return errs.Configuration("", k, "expected a boolean, got %q", v)
				}
				b = parsed
			}
			if k == KeyVerbose {
				e.verbose = b
			} else {
				e.gprof = b
			}
		case KeyThreads:
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return errs.Configuration("", k, "expected a positive integer, got %q", v)
			}
			e.threads = n
		default:
			if IsWellKnown(k) {
				return errs.Configuration("", k, "fact %q cannot be set as a run parameter", k)
			}
			e.ext[k] = cty.StringVal(v)
		}
	}
	return nil
}
