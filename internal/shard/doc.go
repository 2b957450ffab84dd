// Package shard implements the routing layer that maps dense parameter
// names and sparse row ids to one of a fixed number of parameter-server
// shards, and splits the three per-step payloads (pull request, gradient,
// full parameter snapshot) across them (spec.md §4.7).
//
// Routing is deterministic and stateless: the same name or id always maps
// to the same shard index for a given shard_size, which is what lets a
// worker build disjoint per-shard payloads without any coordination with
// the parameter servers beyond knowing shard_size.
package shard
