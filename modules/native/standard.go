package native

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/specialistvlad/xzbuild/internal/env"
)

var stdFlag = regexp.MustCompile(`^-std=(c|gnu)(\+\+)?(\w+)$`)

type fallback struct {
	cxx      bool
	year     string
	compiler string
	below    *semver.Constraints
	to       string
}

func mustConstraint(c string) *semver.Constraints {
	out, err := semver.NewConstraint(c)
	if err != nil {
		panic(fmt.Sprintf("native: bad constraint %q: %v", c, err))
	}
	return out
}

// fallbacks lists the pre-standard spellings older compilers accept.
var fallbacks = []fallback{
	{cxx: true, year: "23", compiler: env.CompilerGCC, below: mustConstraint("< 11"), to: "2b"},
	{cxx: true, year: "23", compiler: env.CompilerClang, below: mustConstraint("< 17"), to: "2b"},
	{cxx: true, year: "20", compiler: env.CompilerGCC, below: mustConstraint("< 10"), to: "2a"},
	{cxx: true, year: "20", compiler: env.CompilerClang, below: mustConstraint("< 10"), to: "2a"},
	{cxx: true, year: "17", compiler: env.CompilerGCC, below: mustConstraint("< 7"), to: "1z"},
	{cxx: true, year: "17", compiler: env.CompilerClang, below: mustConstraint("< 5"), to: "1z"},
	{cxx: false, year: "17", compiler: env.CompilerGCC, below: mustConstraint("< 8"), to: "11"},
	{cxx: false, year: "17", compiler: env.CompilerClang, below: mustConstraint("< 6"), to: "11"},
}

// downgradeStandard rewrites a -std flag the detected compiler is too old to
// accept. Unknown compilers and unrecognized flags are returned unchanged.
func downgradeStandard(version string, e *env.Environment) string {
	m := stdFlag.FindStringSubmatch(version)
	if m == nil {
		return version
	}
	cv := e.CompilerVersion()
	if cv.Major == 0 {
		return version
	}
	have := semver.New(uint64(cv.Major), uint64(cv.Minor), uint64(cv.Patch), "", "")
	dialect, cxx, year := m[1], m[2] != "", m[3]
	for _, fb := range fallbacks {
		if fb.cxx != cxx || fb.year != year || fb.compiler != e.Compiler() {
			continue
		}
		if fb.below.Check(have) {
			return "-std=" + dialect + m[2] + fb.to
		}
	}
	return version
}
