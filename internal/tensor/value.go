package tensor

// Kind tags which alternative a Value currently holds. It replaces the
// dynamic Any container from the original implementation with an explicit
// sum type per spec.md §9.
type Kind int

const (
	// KindTSR is a dense float32 tensor (a parameter, activation or
	// gradient).
	KindTSR Kind = iota
	// KindSRM is a sparse row matrix of float32 rows (a sparse parameter
	// or gradient).
	KindSRM
	// KindCSR is a compressed-sparse-row matrix (instance input feature).
	KindCSR
	// KindTSRI is a dense int32 tensor (e.g. a label or index tensor).
	KindTSRI
	// KindTSRS is a dense string tensor (e.g. raw text features).
	KindTSRS
)

// String renders the Kind's spec.md §3 name.
func (k Kind) String() string {
	switch k {
	case KindTSR:
		return "tsr"
	case KindSRM:
		return "srm"
	case KindCSR:
		return "csr"
	case KindTSRI:
		return "tsri"
	case KindTSRS:
		return "tsrs"
	default:
		return "unknown"
	}
}

// Value is the type-erased container held under every TensorMap key: a
// tagged union over the tensor type system's five alternatives. Exactly one
// of the pointer fields matching Kind is non-nil; a "pointer-to-tensor"
// (non-owning alias) variant from spec.md §3 is represented by a Tensor
// whose own Owned() is false rather than a distinct Kind, since the
// dense-tensor view/owned distinction already lives on Tensor itself.
type Value struct {
	Kind Kind
	Tsr  *Tensor[float32]
	Srm  *SparseRowMatrix
	Csr  *CSRMatrix
	Tsri *Tensor[int32]
	Tsrs *Tensor[string]
}

// FromTsr wraps a dense float32 tensor.
func FromTsr(t *Tensor[float32]) Value { return Value{Kind: KindTSR, Tsr: t} }

// FromSrm wraps a sparse row matrix.
func FromSrm(s *SparseRowMatrix) Value { return Value{Kind: KindSRM, Srm: s} }

// FromCsr wraps a CSR matrix.
func FromCsr(c *CSRMatrix) Value { return Value{Kind: KindCSR, Csr: c} }

// FromTsri wraps a dense int32 tensor.
func FromTsri(t *Tensor[int32]) Value { return Value{Kind: KindTSRI, Tsri: t} }

// FromTsrs wraps a dense string tensor.
func FromTsrs(t *Tensor[string]) Value { return Value{Kind: KindTSRS, Tsrs: t} }

// Map is a type-erased keyed container holding any tensor Value under a
// string name (spec.md §3 "TensorMap"). Insertion order is not significant.
type Map struct {
	entries map[string]Value
}

// NewMap returns an empty Map.
func NewMap() *Map { return &Map{entries: make(map[string]Value)} }

// Set inserts or replaces the value under name.
func (m *Map) Set(name string, v Value) { m.entries[name] = v }

// Get returns the value under name and whether it was present.
func (m *Map) Get(name string) (Value, bool) {
	v, ok := m.entries[name]
	return v, ok
}

// Has reports whether name is present.
func (m *Map) Has(name string) bool {
	_, ok := m.entries[name]
	return ok
}

// Delete removes name, if present.
func (m *Map) Delete(name string) { delete(m.entries, name) }

// Names returns every key currently present, in unspecified order.
func (m *Map) Names() []string {
	out := make([]string, 0, len(m.entries))
	for name := range m.entries {
		out = append(out, name)
	}
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Range calls fn for every (name, value) pair.
func (m *Map) Range(fn func(name string, v Value)) {
	for name, v := range m.entries {
		fn(name, v)
	}
}

// Tsr is a convenience accessor returning the dense float32 tensor under
// name, or nil if absent or of a different Kind.
func (m *Map) Tsr(name string) *Tensor[float32] {
	v, ok := m.entries[name]
	if !ok || v.Kind != KindTSR {
		return nil
	}
	return v.Tsr
}

// Srm is a convenience accessor returning the sparse row matrix under name,
// or nil if absent or of a different Kind.
func (m *Map) Srm(name string) *SparseRowMatrix {
	v, ok := m.entries[name]
	if !ok || v.Kind != KindSRM {
		return nil
	}
	return v.Srm
}

// Reduce folds src into dst in place using the two-level dispatch spec.md
// §9 calls out explicitly: TSR accumulates into TSR, SRM accumulates into
// SRM (via SparseRowMatrix.Add), and any other pairing — including a name
// present in one map but not the other, or present with mismatched Kind —
// is silently skipped. This mirrors the original's unsafe_to_ref traversal,
// which is "behaviour, not a bug" per spec.md §9.
func Reduce(dst, src *Map) {
	src.Range(func(name string, sv Value) {
		dv, ok := dst.entries[name]
		if !ok || dv.Kind != sv.Kind {
			return
		}
		switch sv.Kind {
		case KindTSR:
			if dv.Tsr == nil || sv.Tsr == nil || len(dv.Tsr.Data()) != len(sv.Tsr.Data()) {
				return
			}
			dd, sd := dv.Tsr.Data(), sv.Tsr.Data()
			for i := range dd {
				dd[i] += sd[i]
			}
		case KindSRM:
			if dv.Srm == nil || sv.Srm == nil {
				return
			}
			dv.Srm.Add(sv.Srm)
		default:
			// Non-numeric or non-accumulable kinds (CSR, TSRI, TSRS) are
			// never gradient targets and are skipped.
		}
	})
}
