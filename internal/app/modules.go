package app

import (
	"github.com/specialistvlad/xzbuild/internal/registry"
	"github.com/specialistvlad/xzbuild/modules/cuda"
	"github.com/specialistvlad/xzbuild/modules/ispc"
	"github.com/specialistvlad/xzbuild/modules/nasm"
	"github.com/specialistvlad/xzbuild/modules/native"
	"github.com/specialistvlad/xzbuild/modules/rc"
)

// coreModules is the definitive list of all target families compiled into
// the xzbuild binary.
func coreModules() []registry.Module {
	return []registry.Module{
		&native.Module{},
		&nasm.Module{},
		&rc.Module{},
		&ispc.Module{},
		&cuda.Module{},
	}
}
