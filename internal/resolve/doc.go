// Package resolve turns loaded projects into resolved link requirements and
// targets, and writes the build fragments the executor consumes.
//
// Resolution reads only the frozen environment and the project being
// resolved, so independent projects are resolved concurrently.
package resolve
