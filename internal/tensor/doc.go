// Package tensor implements FluxGraph's heterogeneous tensor type system: a
// dense row-major Tensor[T], a sparse id-keyed SparseRowMatrix, a
// compressed-sparse-row CSRMatrix, and the type-erased TensorMap container
// that lets the graph and operator layers hold any of them under a string
// name (spec.md §3, component A/B).
//
// In the original deepx_core this container was a dynamic Any; per
// spec.md §9's re-architecture note, FluxGraph replaces it with Value, a
// tagged sum type switched on by a Kind enum. Operators pattern-match on
// Kind rather than performing runtime type assertions against an interface.
package tensor
