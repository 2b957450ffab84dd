package tensor

// CSRMatrix is a compressed-sparse-row matrix over int columns and float32
// values (spec.md §3 "CSR", concretely CSR<int,float>). Rows are built
// incrementally: Emplace appends a (col,value) pair to the row currently
// being assembled, and AddRow closes it, recording its end offset.
type CSRMatrix struct {
	RowOffset []int
	Col       []int
	Value     []float32
}

// NewCSR returns an empty CSRMatrix with a single implicit row boundary at
// offset 0, matching the invariant that RowOffset always has row()+1
// entries.
func NewCSR() *CSRMatrix {
	return &CSRMatrix{RowOffset: []int{0}}
}

// Emplace appends a (col, val) pair to the row currently being built.
func (m *CSRMatrix) Emplace(col int, val float32) {
	m.Col = append(m.Col, col)
	m.Value = append(m.Value, val)
}

// AddRow closes the current row, recording its end offset so Row can
// delimit it.
func (m *CSRMatrix) AddRow() {
	m.RowOffset = append(m.RowOffset, len(m.Col))
}

// Row returns the number of completed rows.
func (m *CSRMatrix) Row() int { return len(m.RowOffset) - 1 }

// ColSize returns the total number of (col,value) entries across all rows.
func (m *CSRMatrix) ColSize() int { return len(m.Col) }

// RowSlice returns the [col, value] entries belonging to row i.
func (m *CSRMatrix) RowSlice(i int) ([]int, []float32) {
	start, end := m.RowOffset[i], m.RowOffset[i+1]
	return m.Col[start:end], m.Value[start:end]
}
