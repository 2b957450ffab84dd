package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReshapeSingleWildcard(t *testing.T) {
	s := New(2, 3)
	out, err := s.Reshape(New(Any, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, out.Dims())
}

func TestReshapeNotDivisible(t *testing.T) {
	s := New(2, 3)
	_, err := s.Reshape(New(Any, 5))
	assert.ErrorIs(t, err, ErrNotReshapable)
}

func TestReshapeTwoWildcards(t *testing.T) {
	s := New(2, 3)
	_, err := s.Reshape(New(Any, Any))
	assert.Error(t, err)
}

func TestReshapeExactMatch(t *testing.T) {
	s := New(2, 3)
	out, err := s.Reshape(New(6))
	require.NoError(t, err)
	assert.Equal(t, 6, out.TotalDim())
}

func TestReshapeMismatchNoWildcard(t *testing.T) {
	s := New(2, 3)
	_, err := s.Reshape(New(7))
	assert.ErrorIs(t, err, ErrNotReshapable)
}

func TestExpandSqueezeRoundTrip(t *testing.T) {
	s := New(2, 3)
	expanded, err := s.ExpandDim(1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 3}, expanded.Dims())

	squeezed, err := expanded.Squeeze(1)
	require.NoError(t, err)
	assert.True(t, squeezed.Equal(s))
}

func TestRealAxisNegative(t *testing.T) {
	s := New(2, 3, 4)
	a, err := s.RealAxis(-1)
	require.NoError(t, err)
	assert.Equal(t, 2, a)

	_, err = s.RealAxis(-4)
	assert.ErrorIs(t, err, ErrBadAxis)
}

func TestRankExceeded(t *testing.T) {
	_, err := build(make([]int, MaxRank+1))
	assert.ErrorIs(t, err, ErrRankExceeded)
}

func TestNewOrClearInvalid(t *testing.T) {
	s := NewOrClear(make([]int, MaxRank+1)...)
	assert.True(t, s.IsEmpty())
}

func TestEmptyShapeTotalDim(t *testing.T) {
	var s Shape
	assert.Equal(t, 1, s.TotalDim())
	assert.Equal(t, 0, s.Rank())
}
