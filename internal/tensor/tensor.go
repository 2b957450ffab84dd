package tensor

import (
	"github.com/dreamware/fluxgraph/internal/shape"
)

// Elem is the set of scalar element types FluxGraph tensors may hold: dense
// floats (the common case), dense ints ("tsri" in spec.md §3) and dense
// strings ("tsrs").
type Elem interface {
	float32 | int32 | string
}

// Tensor is a contiguous, row-major, shaped buffer of T. It may own its
// backing slice or merely view memory owned elsewhere (spec.md §4.2): View
// makes a Tensor non-owning, Resize/SetData always operate on an owned
// buffer.
type Tensor[T Elem] struct {
	data  []T
	sh    shape.Shape
	owned bool
}

// New allocates an owned, zero-valued Tensor with the given shape.
func New[T Elem](sh shape.Shape) *Tensor[T] {
	return &Tensor[T]{data: make([]T, sh.TotalDim()), sh: sh, owned: true}
}

// View wraps externally-owned memory; the resulting Tensor is non-owning
// and Resize will always reallocate rather than mutate ptr in place.
func View[T Elem](sh shape.Shape, ptr []T) *Tensor[T] {
	return &Tensor[T]{data: ptr, sh: sh, owned: false}
}

// Shape returns the tensor's shape.
func (t *Tensor[T]) Shape() shape.Shape { return t.sh }

// Owned reports whether the tensor owns its backing buffer.
func (t *Tensor[T]) Owned() bool { return t.owned }

// Data returns the backing slice. Mutating it mutates the tensor, whether
// owned or viewed.
func (t *Tensor[T]) Data() []T { return t.data }

// Resize changes the tensor's shape. If the new total size exceeds the
// current buffer's capacity, or the tensor is a non-owning view, a fresh
// owned buffer is allocated; otherwise the existing buffer is reused
// (re-sliced), matching the spec's "reallocates if needed" contract.
func (t *Tensor[T]) Resize(sh shape.Shape) {
	n := sh.TotalDim()
	if t.owned && cap(t.data) >= n {
		t.data = t.data[:n]
	} else {
		t.data = make([]T, n)
		t.owned = true
	}
	t.sh = sh
}

// SetData copies src into the tensor, resizing to match len(src) with the
// shape the caller already set via Resize. It always leaves the tensor
// owning its buffer.
func (t *Tensor[T]) SetData(src []T) {
	if !t.owned || cap(t.data) < len(src) {
		t.data = make([]T, len(src))
		t.owned = true
	} else {
		t.data = t.data[:len(src)]
	}
	copy(t.data, src)
}

// GetView returns a new, non-owning Tensor aliasing the same backing slice
// and shape as the receiver.
func (t *Tensor[T]) GetView() *Tensor[T] {
	return &Tensor[T]{data: t.data, sh: t.sh, owned: false}
}

// Fill sets every element to v.
func (t *Tensor[T]) Fill(v T) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Zeros resets every element to the zero value of T.
func (t *Tensor[T]) Zeros() {
	var zero T
	t.Fill(zero)
}

// Clone returns an owned deep copy of the tensor.
func (t *Tensor[T]) Clone() *Tensor[T] {
	out := New[T](t.sh)
	copy(out.data, t.data)
	return out
}
