// Package model owns one shard's parameter TensorMap: initialisation from
// each parameter's GraphNode initialiser descriptor, thread-safe pull of a
// worker's requested subset, and gradient-driven update via an injected
// optimiser (spec.md §4.5).
//
// Parameters are locked per name rather than globally: Pull takes a read
// lock on every name it touches, Update takes a write lock, so pulls and
// updates to disjoint parameters never contend (spec.md §5).
package model
