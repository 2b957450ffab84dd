package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

func TestMergeIntoAdoptsDisjointTSRNames(t *testing.T) {
	merged := tensor.NewMap()

	shard0 := tensor.NewMap()
	w0 := tensor.New[float32](shape.New(2))
	copy(w0.Data(), []float32{1, 2})
	shard0.Set("w0", tensor.FromTsr(w0))

	shard1 := tensor.NewMap()
	w1 := tensor.New[float32](shape.New(2))
	copy(w1.Data(), []float32{3, 4})
	shard1.Set("w1", tensor.FromTsr(w1))

	mergeInto(merged, shard0)
	mergeInto(merged, shard1)

	assert.Equal(t, []float32{1, 2}, merged.Tsr("w0").Data())
	assert.Equal(t, []float32{3, 4}, merged.Tsr("w1").Data())
	assert.Equal(t, 2, merged.Len())
}

func TestMergeIntoUpsertsSRMRowsAcrossShards(t *testing.T) {
	merged := tensor.NewMap()

	shard0 := tensor.NewMap()
	srm0 := tensor.NewSRM(2, tensor.Initializer{})
	srm0.Assign(1, []float32{0.1, 0.2})
	shard0.Set("embed", tensor.FromSrm(srm0))

	shard1 := tensor.NewMap()
	srm1 := tensor.NewSRM(2, tensor.Initializer{})
	srm1.Assign(5, []float32{0.5, 0.6})
	shard1.Set("embed", tensor.FromSrm(srm1))

	mergeInto(merged, shard0)
	mergeInto(merged, shard1)

	got := merged.Srm("embed")
	assert.True(t, got.Has(1))
	assert.True(t, got.Has(5))
	assert.Equal(t, []float32{0.1, 0.2}, got.GetRowNoInit(1))
	assert.Equal(t, []float32{0.5, 0.6}, got.GetRowNoInit(5))
}
