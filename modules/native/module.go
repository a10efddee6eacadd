// Package native resolves the C, C++ and assembly target families. All three
// share one set of defaults and the "cxx" bucket, which is applied before the
// language's own block.
package native

import (
	"github.com/specialistvlad/xzbuild/internal/registry"
)

// SharedBucket is the block applied to every native language.
const SharedBucket = "cxx"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the c, cpp and asm families.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&Family{prefix: "c", defaultVersion: "-std=c11"})
	r.Register(&Family{prefix: "cpp", defaultVersion: "-std=c++17"})
	r.Register(&Family{prefix: "asm"})
}
