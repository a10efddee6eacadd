// Package algebra implements the conditional list-override algebra that every
// configurable field of a descriptor goes through.
//
// A field holds a list of entries. An entry is either a literal (a scalar or a
// sequence of scalars, always applied) or a conditioned object:
//
//	{ "ifeq": ["target", "Release"], "ifin": {"intrin": "avx2"}, "+": ["-O2"], "-": "-O0" }
//
// A conditioned object applies only when all of its predicates hold against
// the fact context. Applied entries contribute their "+" items to the adds and
// their "-" items to the dels. CombineElements then merges one layer of
// (adds, dels) onto an existing list, so solving general layers first and
// specific layers last gives later layers the power to both add and retract.
//
// Predicate names beginning with "if" that are not in the catalogue are
// treated as satisfied, and recorded on the parsed condition so callers can
// report them.
package algebra
