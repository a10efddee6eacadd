package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/specialistvlad/xzbuild/internal/probe"
)

// FakeProbe returns canned macros and records every request.
type FakeProbe struct {
	Macros probe.Macros
	Err    error

	mu       sync.Mutex
	requests []probe.Request
}

// Probe implements probe.MacroProbe.
func (f *FakeProbe) Probe(_ context.Context, req probe.Request) (probe.Macros, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.Macros, f.Err
}

// Requests returns the recorded requests.
func (f *FakeProbe) Requests() []probe.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]probe.Request(nil), f.requests...)
}

// GCCMacros reports a gcc of the given major version with libstdc++ and
// x86 SIMD support.
func GCCMacros(major int) probe.Macros {
	return probe.Macros{
		"__GNUC__":            strconv.Itoa(major),
		"__GNUC_MINOR__":      "1",
		"__GNUC_PATCHLEVEL__": "0",
		"_GLIBCXX_RELEASE":    strconv.Itoa(major),
		"__SSE2__":            "1",
		"__SSE4_1__":          "1",
		"__AVX2__":            "1",
	}
}

// ClangMacros reports a clang of the given major version with libc++.
func ClangMacros(major int) probe.Macros {
	return probe.Macros{
		"__clang__":            "1",
		"__clang_major__":      strconv.Itoa(major),
		"__clang_minor__":      "0",
		"__clang_patchlevel__": "0",
		"__GNUC__":             "4",
		"_LIBCPP_VERSION":      strconv.Itoa(major*10000 + 1),
	}
}
