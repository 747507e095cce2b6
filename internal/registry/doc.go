// Package registry owns the set of modules declared for one pipeline scope.
//
// A Registry maps module ids to modules, remembers the workspace root every
// module must live under, and answers queries with selector predicates. All
// queries iterate in creation order over a snapshot, so predicates may run
// while other goroutines register modules or mutate module state.
package registry
