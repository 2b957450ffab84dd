// Package shape implements the multi-dimensional shape arithmetic shared by
// every tensor type in FluxGraph: Tensor, SparseRowMatrix and CSRMatrix all
// carry a Shape describing their logical dimensions.
//
// A Shape is an ordered list of non-negative dimensions with rank bounded by
// MaxRank; a Reshape target may also carry Any. Reshape supports a single wildcard dimension (Any), inferred from
// the total element count of the other side, mirroring the reshape contract
// used by most array libraries.
//
// Two flavours of most operations are exposed: a "throwing" form that
// returns an error, and a "nothrow" form whose name ends in "OrClear" and
// which resets the receiver to the empty shape on failure instead of
// returning an error. Both forms exist because graph compilation wants hard
// failures while some hot paths prefer to fall back to a safe empty shape.
package shape
