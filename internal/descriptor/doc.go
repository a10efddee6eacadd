// Package descriptor reads project descriptors and solution/user override
// files. A file is parsed by extension (.json, .hcl, .yaml/.yml) into a
// Document whose values are cty values, so every format feeds the condition
// algebra the same way.
package descriptor
