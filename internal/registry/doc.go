// Package registry is the static table of target families.
//
// Each family owns one language prefix ("cpp", "nasm", "cuda", ...) and knows
// how to resolve the descriptor block stored under that prefix. Modules add
// their families through Register at startup; nothing is discovered at run
// time. Before any project is resolved, every family that needs one-time
// toolchain discovery gets an InitEnv call against the still-writable
// environment.
package registry
