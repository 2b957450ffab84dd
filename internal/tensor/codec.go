package tensor

import (
	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/stream"
)

// WriteShape writes sh's dimensions as a versioned int slice.
func WriteShape(w *stream.Writer, sh shape.Shape) {
	stream.WriteSlice(w, sh.Dims(), func(w *stream.Writer, d int) { w.WriteI64(int64(d)) })
}

// ReadShape reads a Shape written by WriteShape.
func ReadShape(r *stream.Reader) shape.Shape {
	dims := stream.ReadSlice(r, func(r *stream.Reader) int { return int(r.ReadI64()) })
	return shape.NewOrClear(dims...)
}

// WriteTsr writes a dense float32 tensor: shape followed by its data slice.
func WriteTsr(w *stream.Writer, t *Tensor[float32]) {
	WriteShape(w, t.Shape())
	stream.WriteSlice(w, t.Data(), func(w *stream.Writer, v float32) { w.WriteF32(v) })
}

// ReadTsr reads a dense float32 tensor written by WriteTsr.
func ReadTsr(r *stream.Reader) *Tensor[float32] {
	sh := ReadShape(r)
	data := stream.ReadSlice(r, func(r *stream.Reader) float32 { return r.ReadF32() })
	t := New[float32](sh)
	copy(t.Data(), data)
	return t
}

// WriteTsri writes a dense int32 tensor.
func WriteTsri(w *stream.Writer, t *Tensor[int32]) {
	WriteShape(w, t.Shape())
	stream.WriteSlice(w, t.Data(), func(w *stream.Writer, v int32) { w.WriteI32(v) })
}

// ReadTsri reads a dense int32 tensor written by WriteTsri.
func ReadTsri(r *stream.Reader) *Tensor[int32] {
	sh := ReadShape(r)
	data := stream.ReadSlice(r, func(r *stream.Reader) int32 { return r.ReadI32() })
	t := New[int32](sh)
	copy(t.Data(), data)
	return t
}

// WriteTsrs writes a dense string tensor.
func WriteTsrs(w *stream.Writer, t *Tensor[string]) {
	WriteShape(w, t.Shape())
	stream.WriteSlice(w, t.Data(), func(w *stream.Writer, v string) { w.WriteString(v) })
}

// ReadTsrs reads a dense string tensor written by WriteTsrs.
func ReadTsrs(r *stream.Reader) *Tensor[string] {
	sh := ReadShape(r)
	data := stream.ReadSlice(r, func(r *stream.Reader) string { return r.ReadString() })
	t := New[string](sh)
	copy(t.Data(), data)
	return t
}

func writeInitializer(w *stream.Writer, init Initializer) {
	w.WriteI32(int32(init.Type))
	w.WriteF64(init.Param0)
	w.WriteF64(init.Param1)
}

func readInitializer(r *stream.Reader) Initializer {
	t := InitializerType(r.ReadI32())
	p0 := r.ReadF64()
	p1 := r.ReadF64()
	return Initializer{Type: t, Param0: p0, Param1: p1}
}

// WriteSrm writes a SparseRowMatrix: col, initialiser, then the (id,row)
// entries as a versioned map.
func WriteSrm(w *stream.Writer, m *SparseRowMatrix) {
	w.WriteI64(int64(m.Col()))
	writeInitializer(w, m.Initializer())
	rows := make(map[int][]float32, m.Len())
	m.Range(func(id int, row []float32) { rows[id] = row })
	stream.WriteMap(w, rows,
		func(w *stream.Writer, k int) { w.WriteI64(int64(k)) },
		func(w *stream.Writer, v []float32) {
			stream.WriteSlice(w, v, func(w *stream.Writer, f float32) { w.WriteF32(f) })
		})
}

// ReadSrm reads a SparseRowMatrix written by WriteSrm.
func ReadSrm(r *stream.Reader) *SparseRowMatrix {
	col := int(r.ReadI64())
	init := readInitializer(r)
	rows := stream.ReadMap(r,
		func(r *stream.Reader) int { return int(r.ReadI64()) },
		func(r *stream.Reader) []float32 {
			return stream.ReadSlice(r, func(r *stream.Reader) float32 { return r.ReadF32() })
		})
	m := NewSRM(col, init)
	for id, row := range rows {
		m.Assign(id, row)
	}
	return m
}

// WriteCsr writes a CSRMatrix's row_offset/col/value triple.
func WriteCsr(w *stream.Writer, m *CSRMatrix) {
	stream.WriteSlice(w, m.RowOffset, func(w *stream.Writer, v int) { w.WriteI64(int64(v)) })
	stream.WriteSlice(w, m.Col, func(w *stream.Writer, v int) { w.WriteI64(int64(v)) })
	stream.WriteSlice(w, m.Value, func(w *stream.Writer, v float32) { w.WriteF32(v) })
}

// ReadCsr reads a CSRMatrix written by WriteCsr.
func ReadCsr(r *stream.Reader) *CSRMatrix {
	rowOffset := stream.ReadSlice(r, func(r *stream.Reader) int { return int(r.ReadI64()) })
	col := stream.ReadSlice(r, func(r *stream.Reader) int { return int(r.ReadI64()) })
	value := stream.ReadSlice(r, func(r *stream.Reader) float32 { return r.ReadF32() })
	return &CSRMatrix{RowOffset: rowOffset, Col: col, Value: value}
}

// WriteValue writes a Kind-tagged Value.
func WriteValue(w *stream.Writer, v Value) {
	w.WriteI32(int32(v.Kind))
	switch v.Kind {
	case KindTSR:
		WriteTsr(w, v.Tsr)
	case KindSRM:
		WriteSrm(w, v.Srm)
	case KindCSR:
		WriteCsr(w, v.Csr)
	case KindTSRI:
		WriteTsri(w, v.Tsri)
	case KindTSRS:
		WriteTsrs(w, v.Tsrs)
	}
}

// ReadValue reads a Value written by WriteValue. An unrecognised Kind marks
// the stream bad per spec.md §7's SerializationError contract.
func ReadValue(r *stream.Reader) Value {
	k := Kind(r.ReadI32())
	switch k {
	case KindTSR:
		return FromTsr(ReadTsr(r))
	case KindSRM:
		return FromSrm(ReadSrm(r))
	case KindCSR:
		return FromCsr(ReadCsr(r))
	case KindTSRI:
		return FromTsri(ReadTsri(r))
	case KindTSRS:
		return FromTsrs(ReadTsrs(r))
	default:
		r.SetBad()
		return Value{}
	}
}

// WriteTensorMap writes a TensorMap's name→Value entries as a versioned map.
func WriteTensorMap(w *stream.Writer, m *Map) {
	entries := make(map[string]Value, m.Len())
	m.Range(func(name string, v Value) { entries[name] = v })
	stream.WriteMap(w, entries,
		func(w *stream.Writer, k string) { w.WriteString(k) },
		func(w *stream.Writer, v Value) { WriteValue(w, v) })
}

// ReadTensorMap reads a TensorMap written by WriteTensorMap.
func ReadTensorMap(r *stream.Reader) *Map {
	entries := stream.ReadMap(r,
		func(r *stream.Reader) string { return r.ReadString() },
		func(r *stream.Reader) Value { return ReadValue(r) })
	m := NewMap()
	for name, v := range entries {
		m.Set(name, v)
	}
	return m
}
