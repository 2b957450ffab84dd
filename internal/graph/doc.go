// Package graph implements the immutable compiled dataflow DAG described in
// spec.md §3/§4.4 (component D): a Spec, built by the caller as an ordinary
// pointer-linked graph of Spec nodes, compiles into a Graph — an arena of
// Nodes addressed by a dense uint16 id, with each compile target's forward
// evaluation order precomputed as a topologically-sorted node-id slice.
//
// Per spec.md §9's re-architecture note, node-to-node references inside a
// compiled Graph are indices into Graph.Nodes rather than raw pointers: this
// keeps the compiled form trivially copyable and serialisable, and lets
// Compile reject cycles and duplicate names in one validation pass instead
// of threading ownership through a shared heap.
package graph
