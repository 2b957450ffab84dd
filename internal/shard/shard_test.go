package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

func TestDefaultSrmShardFnInRange(t *testing.T) {
	for _, id := range []int{-7, -1, 0, 1, 42, 1000003} {
		idx := DefaultSrmShardFn(id, 8)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 8)
	}
}

func TestDefaultTsrShardFnDeterministic(t *testing.T) {
	a := DefaultTsrShardFn("embedding_0", 16)
	b := DefaultTsrShardFn("embedding_0", 16)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0)
	assert.Less(t, a, 16)
}

func TestSplitPullRequestDisjointUnion(t *testing.T) {
	pr := tensor.NewPullRequest(true)
	pr.AddTsr("w0")
	pr.AddTsr("w1")
	pr.AddSrmID("emb", 1)
	pr.AddSrmID("emb", 2)
	pr.AddSrmID("emb", 3)
	pr.AddFreq(1, 5)
	pr.AddFreq(2, 9)

	d := New(0, 4)
	parts := d.SplitPullRequest(pr)
	require.Len(t, parts, 4)

	unionTsr := map[string]struct{}{}
	unionIDs := map[int]struct{}{}
	for _, p := range parts {
		for name := range p.TsrSet {
			_, dup := unionTsr[name]
			assert.False(t, dup, "name %q assigned to more than one shard", name)
			unionTsr[name] = struct{}{}
		}
		for _, ids := range p.SrmMap {
			for id := range ids {
				unionIDs[id] = struct{}{}
			}
		}
	}
	assert.Equal(t, pr.TsrSet, unionTsr)
	assert.Len(t, unionIDs, 3)
}

func TestSplitGradTsrIsView(t *testing.T) {
	grad := tensor.NewMap()
	w := tensor.New[float32](shape.New(2))
	copy(w.Data(), []float32{1, 2})
	grad.Set("w0", tensor.FromTsr(w))

	d := New(0, 4)
	parts := d.SplitGrad(grad)

	idx := DefaultTsrShardFn("w0", 4)
	got := parts[idx].Tsr("w0")
	require.NotNil(t, got)
	assert.False(t, got.Owned(), "SplitGrad must hand TSR gradients as views, not copies")
	assert.Equal(t, []float32{1, 2}, got.Data())
}

func TestSplitGradSrmResetsSource(t *testing.T) {
	srm := tensor.NewSRM(2, tensor.Initializer{Type: tensor.InitZeros})
	srm.Assign(10, []float32{1, 1})
	srm.Assign(11, []float32{2, 2})

	grad := tensor.NewMap()
	grad.Set("emb", tensor.FromSrm(srm))

	d := New(0, 4)
	parts := d.SplitGrad(grad)

	var total int
	for _, p := range parts {
		if s := p.Srm("emb"); s != nil {
			total += s.Len()
		}
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, srm.Len(), "source SRM gradient must be cleared after split")
	assert.Equal(t, 2, srm.Col(), "Col must be preserved across a reset")
}
