package tensor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/stream"
)

func TestTsrRoundTrip(t *testing.T) {
	ten := New[float32](shape.New(2, 2))
	copy(ten.Data(), []float32{1, 2, 3, 4})

	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	WriteTsr(w, ten)

	r := stream.NewReader(&buf)
	got := ReadTsr(r)
	require.False(t, r.Bad())
	assert.Equal(t, ten.Data(), got.Data())
	assert.True(t, ten.Shape().Equal(got.Shape()))
}

func TestValueRoundTripEverKind(t *testing.T) {
	srm := NewSRM(2, Initializer{Type: InitZeros})
	srm.Assign(5, []float32{1, 2})
	csr := NewCSR()
	csr.Emplace(1, 1)
	csr.AddRow()

	values := []Value{
		FromTsr(New[float32](shape.New(2))),
		FromSrm(srm),
		FromCsr(csr),
		FromTsri(New[int32](shape.New(2))),
		FromTsrs(New[string](shape.New(1))),
	}

	for _, v := range values {
		var buf bytes.Buffer
		w := stream.NewWriter(&buf)
		WriteValue(w, v)
		r := stream.NewReader(&buf)
		got := ReadValue(r)
		require.False(t, r.Bad())
		assert.Equal(t, v.Kind, got.Kind)
	}
}

func TestTensorMapRoundTrip(t *testing.T) {
	m := NewMap()
	m.Set("w", FromTsr(View[float32](shape.New(2), []float32{1, 2})))

	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	WriteTensorMap(w, m)

	r := stream.NewReader(&buf)
	got := ReadTensorMap(r)
	require.False(t, r.Bad())
	assert.Equal(t, []float32{1, 2}, got.Tsr("w").Data())
}
