package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreamware/fluxgraph/internal/shape"
)

func TestTensorViewIsNonOwning(t *testing.T) {
	buf := []float32{1, 2, 3}
	ten := View[float32](shape.New(3), buf)
	assert.False(t, ten.Owned())
	ten.Data()[0] = 9
	assert.Equal(t, float32(9), buf[0])
}

func TestTensorResizeReusesCapacity(t *testing.T) {
	ten := New[float32](shape.New(2))
	old := ten.Data()
	ten.Resize(shape.New(2))
	assert.True(t, &old[0] == &ten.Data()[0])
}

func TestTensorGetViewAliasesBuffer(t *testing.T) {
	ten := New[float32](shape.New(2))
	ten.Data()[0] = 5
	v := ten.GetView()
	assert.False(t, v.Owned())
	assert.Equal(t, float32(5), v.Data()[0])
}

func TestSRMAssignIdempotent(t *testing.T) {
	m := NewSRM(2, Initializer{Type: InitZeros})
	m.Assign(1, []float32{1, 2})
	m.Assign(1, []float32{3, 4})
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []float32{3, 4}, m.GetRowNoInit(1))
}

func TestSRMGetRowLazyInit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewSRM(3, Initializer{Type: InitZeros})
	row := m.GetRow(rng, 7)
	assert.Equal(t, []float32{0, 0, 0}, row)
	assert.True(t, m.Has(7))
}

func TestSRMMergeOnlyMissing(t *testing.T) {
	a := NewSRM(1, Initializer{Type: InitZeros})
	a.Assign(1, []float32{10})
	b := NewSRM(1, Initializer{Type: InitZeros})
	b.Assign(1, []float32{99})
	b.Assign(2, []float32{20})

	a.Merge(b)
	assert.Equal(t, []float32{10}, a.GetRowNoInit(1))
	assert.Equal(t, []float32{20}, a.GetRowNoInit(2))
}

func TestSRMUpsertOverwrites(t *testing.T) {
	a := NewSRM(1, Initializer{Type: InitZeros})
	a.Assign(1, []float32{10})
	b := NewSRM(1, Initializer{Type: InitZeros})
	b.Assign(1, []float32{99})

	a.Upsert(b)
	assert.Equal(t, []float32{99}, a.GetRowNoInit(1))
}

func TestSRMEqualitySetEquality(t *testing.T) {
	a := NewSRM(1, Initializer{Type: InitZeros})
	a.Assign(1, []float32{1})
	b := NewSRM(1, Initializer{Type: InitZeros})
	b.Assign(1, []float32{1})
	assert.True(t, a.Equal(b))

	b.Assign(2, []float32{2})
	assert.False(t, a.Equal(b))
}

func TestCSRConstruction(t *testing.T) {
	m := NewCSR()
	m.Emplace(6, 1)
	m.Emplace(16, 1)
	m.AddRow()
	m.Emplace(777, 1)
	m.Emplace(888, 1)
	m.Emplace(999, 1)
	m.AddRow()

	assert.Equal(t, 2, m.Row())
	assert.Equal(t, 5, m.ColSize())
}

func TestMapReduceSkipsMismatch(t *testing.T) {
	dst := NewMap()
	dst.Set("w", FromTsr(New[float32](shape.New(2))))
	src := NewMap()
	src.Set("w", FromTsr(View[float32](shape.New(2), []float32{1, 1})))
	src.Set("only-in-src", FromCsr(NewCSR()))

	Reduce(dst, src)
	assert.Equal(t, []float32{1, 1}, dst.Tsr("w").Data())
	assert.False(t, dst.Has("only-in-src"))
}

func TestMapReduceSRM(t *testing.T) {
	dst := NewMap()
	d := NewSRM(1, Initializer{Type: InitZeros})
	d.Assign(1, []float32{1})
	dst.Set("e", FromSrm(d))

	src := NewMap()
	s := NewSRM(1, Initializer{Type: InitZeros})
	s.Assign(1, []float32{2})
	src.Set("e", FromSrm(s))

	Reduce(dst, src)
	assert.Equal(t, []float32{3}, dst.Srm("e").GetRowNoInit(1))
}
