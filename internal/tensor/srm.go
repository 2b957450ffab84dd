package tensor

import (
	"math"
	"math/rand"
)

// InitializerType selects how a SparseRowMatrix lazily generates a row that
// has never been assigned, mirroring the initialiser descriptors used for
// dense parameters (spec.md §4.5).
type InitializerType int

const (
	// InitZeros fills missing rows with zero.
	InitZeros InitializerType = iota
	// InitOnes fills missing rows with one.
	InitOnes
	// InitConstant fills missing rows with Param0.
	InitConstant
	// InitRand fills missing rows uniformly in [Param0, Param1).
	InitRand
	// InitRandn fills missing rows from Normal(Param0, Param1).
	InitRandn
	// InitRandLecun fills uniformly with a LeCun fan_in-scaled range.
	InitRandLecun
	// InitRandnLecun fills from a LeCun fan_in-scaled normal.
	InitRandnLecun
	// InitRandXavier fills uniformly with a Xavier (fan_in+fan_out)-scaled range.
	InitRandXavier
	// InitRandnXavier fills from a Xavier (fan_in+fan_out)-scaled normal.
	InitRandnXavier
	// InitRandHe fills uniformly with a He (2/fan_in)-scaled range.
	InitRandHe
	// InitRandnHe fills from a He (2/fan_in)-scaled normal.
	InitRandnHe
	// InitRandInt fills integer tensors uniformly in [Param0, Param1).
	InitRandInt
	// InitArange fills with 0,1,2,... in row-major order.
	InitArange
)

// Initializer describes how a SparseRowMatrix should generate a row it has
// never seen before.
type Initializer struct {
	Type   InitializerType
	Param0 float64
	Param1 float64
}

func (init Initializer) generate(col int, rng *rand.Rand) []float32 {
	row := make([]float32, col)
	// SRM rows have no separate fan_in/fan_out axis to scale against; the
	// scaled variants treat the row width itself as both fan_in and
	// fan_out, the natural reading when a sparse embedding row is the only
	// dimension being initialised.
	fanIn, fanOut := col, col
	switch init.Type {
	case InitOnes:
		for i := range row {
			row[i] = 1
		}
	case InitConstant:
		c := float32(init.Param0)
		for i := range row {
			row[i] = c
		}
	case InitRand:
		fillUniform(row, rng, init.Param0, init.Param1)
	case InitRandn:
		fillNormal(row, rng, init.Param0, init.Param1)
	case InitRandLecun:
		bound := 1 / sqrtf(fanIn)
		fillUniform(row, rng, -bound, bound)
	case InitRandnLecun:
		fillNormal(row, rng, 0, 1/sqrtf(fanIn))
	case InitRandXavier:
		bound := sqrtf(6) / sqrtf(fanIn+fanOut)
		fillUniform(row, rng, -bound, bound)
	case InitRandnXavier:
		fillNormal(row, rng, 0, sqrtf(2)/sqrtf(fanIn+fanOut))
	case InitRandHe:
		bound := sqrtf(6) / sqrtf(fanIn)
		fillUniform(row, rng, -bound, bound)
	case InitRandnHe:
		fillNormal(row, rng, 0, sqrtf(2)/sqrtf(fanIn))
	case InitArange:
		for i := range row {
			row[i] = float32(i)
		}
	case InitZeros, InitRandInt:
		// already zero; InitRandInt is only meaningful for integer tensors.
	}
	return row
}

func fillUniform(row []float32, rng *rand.Rand, lo, hi float64) {
	for i := range row {
		row[i] = float32(lo + rng.Float64()*(hi-lo))
	}
}

func fillNormal(row []float32, rng *rand.Rand, mu, sigma float64) {
	for i := range row {
		row[i] = float32(mu + rng.NormFloat64()*sigma)
	}
}

func sqrtf(v int) float64 { return math.Sqrt(float64(v)) }

type srmRow struct {
	data  []float32
	owned bool
}

// SparseRowMatrix maps an integer key to a fixed-width row of float32s
// (spec.md §3 "SRM", concretely SRM<int,float> — the only instantiation the
// model, shard and optimiser layers ever use, so FluxGraph specialises
// rather than carrying generic key/value type parameters through every
// caller). Col is fixed after the first row is assigned. Rows may be owned
// (heap-allocated, copied in) or viewed (aliasing external memory);
// insertion is idempotent and iteration order is unspecified.
type SparseRowMatrix struct {
	rows map[int]*srmRow
	init Initializer
	col  int
}

// NewSRM creates an empty SparseRowMatrix with the given row width and
// lazy-row initialiser.
func NewSRM(col int, init Initializer) *SparseRowMatrix {
	return &SparseRowMatrix{rows: make(map[int]*srmRow), col: col, init: init}
}

// Col returns the fixed row width. Zero until the first row is assigned if
// the matrix was created with col=0.
func (m *SparseRowMatrix) Col() int { return m.col }

// Len returns the number of rows currently present.
func (m *SparseRowMatrix) Len() int { return len(m.rows) }

// Initializer returns the matrix's lazy-row initialiser descriptor.
func (m *SparseRowMatrix) Initializer() Initializer { return m.init }

func (m *SparseRowMatrix) ensureCol(n int) {
	if m.col == 0 {
		m.col = n
	}
}

// Assign copies row into the matrix under id, replacing any existing row.
func (m *SparseRowMatrix) Assign(id int, row []float32) {
	m.ensureCol(len(row))
	cp := make([]float32, len(row))
	copy(cp, row)
	m.rows[id] = &srmRow{data: cp, owned: true}
}

// AssignView records a pointer to externally-owned row memory under id,
// replacing any existing row. The caller must keep row alive and unchanged
// for as long as the matrix is read.
func (m *SparseRowMatrix) AssignView(id int, row []float32) {
	m.ensureCol(len(row))
	m.rows[id] = &srmRow{data: row, owned: false}
}

// GetRowNoInit returns the row for id, or nil if absent. It never
// allocates.
func (m *SparseRowMatrix) GetRowNoInit(id int) []float32 {
	r, ok := m.rows[id]
	if !ok {
		return nil
	}
	return r.data
}

// GetRow returns the existing row for id, or lazily generates, inserts and
// returns a new owned row using rng and the matrix's Initializer.
func (m *SparseRowMatrix) GetRow(rng *rand.Rand, id int) []float32 {
	if r, ok := m.rows[id]; ok {
		return r.data
	}
	row := m.init.generate(m.col, rng)
	m.rows[id] = &srmRow{data: row, owned: true}
	return row
}

// Has reports whether id has an assigned row.
func (m *SparseRowMatrix) Has(id int) bool {
	_, ok := m.rows[id]
	return ok
}

// Remove drops the row for id, if any.
func (m *SparseRowMatrix) Remove(id int) { delete(m.rows, id) }

// Keys returns every id currently present, in unspecified order.
func (m *SparseRowMatrix) Keys() []int {
	out := make([]int, 0, len(m.rows))
	for id := range m.rows {
		out = append(out, id)
	}
	return out
}

// Range calls fn for every (id, row) pair. fn must not mutate the matrix.
func (m *SparseRowMatrix) Range(fn func(id int, row []float32)) {
	for id, r := range m.rows {
		fn(id, r.data)
	}
}

// Upsert replaces rows with the same id as in other, and inserts rows
// present only in other; existing rows not in other are left untouched.
func (m *SparseRowMatrix) Upsert(other *SparseRowMatrix) {
	other.Range(func(id int, row []float32) {
		m.Assign(id, row)
	})
}

// Merge inserts only the rows from other whose id is not already present
// in the receiver.
func (m *SparseRowMatrix) Merge(other *SparseRowMatrix) {
	other.Range(func(id int, row []float32) {
		if !m.Has(id) {
			m.Assign(id, row)
		}
	})
}

// RemoveIf deletes every row for which pred returns true.
func (m *SparseRowMatrix) RemoveIf(pred func(id int, row []float32) bool) {
	for id, r := range m.rows {
		if pred(id, r.data) {
			delete(m.rows, id)
		}
	}
}

// Zeros drops every row but preserves Col and Initializer.
func (m *SparseRowMatrix) Zeros() {
	m.rows = make(map[int]*srmRow)
}

// Equal reports set-equality of (id, row-slice) pairs between m and other,
// per spec.md §4.2.
func (m *SparseRowMatrix) Equal(other *SparseRowMatrix) bool {
	if m.Len() != other.Len() {
		return false
	}
	for id, r := range m.rows {
		or, ok := other.rows[id]
		if !ok || len(or.data) != len(r.data) {
			return false
		}
		for i := range r.data {
			if r.data[i] != or.data[i] {
				return false
			}
		}
	}
	return true
}

// Add accumulates src's rows into the receiver elementwise, inserting any
// id not already present. Used by optimiser SRM×SRM gradient aggregation
// and by Shard's grad-merge path.
func (m *SparseRowMatrix) Add(src *SparseRowMatrix) {
	src.Range(func(id int, row []float32) {
		if dst, ok := m.rows[id]; ok {
			for i := range row {
				dst.data[i] += row[i]
			}
			return
		}
		m.Assign(id, row)
	})
}
