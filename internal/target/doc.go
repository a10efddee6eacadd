// Package target holds what every target family shares: source solving with
// the force-keep rule, layering of configurable buckets onto defaults, and the
// finishing pass that expands path placeholders and rebases sources that live
// outside the project's source tree.
package target
