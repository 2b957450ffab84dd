package modelshard

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/optimizer"
	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	emb := &graph.Spec{
		Name:       "emb",
		NodeType:   graph.NodeParam,
		TensorType: tensor.KindSRM,
		Shape:      shape.New(4),
		Init:       tensor.Initializer{Type: tensor.InitZeros},
		NeedGrad:   true,
	}
	x := &graph.Spec{Name: "x", NodeType: graph.NodeInstance, TensorType: tensor.KindTSR, Shape: shape.New(4)}
	loss := &graph.Spec{
		Name:       "loss",
		Inputs:     []*graph.Spec{emb, x},
		NodeType:   graph.NodeHidden,
		TensorType: tensor.KindTSR,
		Shape:      shape.New(1),
	}
	g, err := graph.Compile([]*graph.Spec{loss}, false)
	require.NoError(t, err)
	return g
}

func newShard(t *testing.T) *ModelShard {
	t.Helper()
	g := buildGraph(t)
	cfg := optimizer.Config{Rule: optimizer.RuleSGD, Alpha: 0.1}
	ms, err := New(0, 1, g, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return ms
}

func TestModelShardPullFiltersColdIdsThenCopies(t *testing.T) {
	ms := newShard(t)

	pr := tensor.NewPullRequest(true)
	pr.AddSrmID("emb", 1)
	pr.AddSrmID("emb", 2)
	pr.IDFreqMap[1] = 10
	pr.IDFreqMap[2] = 1

	remote, err := ms.Pull(pr, 5)
	require.NoError(t, err)

	v, ok := remote.Get("emb")
	require.True(t, ok)
	assert.True(t, v.Srm.Has(1))
	assert.False(t, v.Srm.Has(2))
}

func TestModelShardPushUpdatesTSAndOL(t *testing.T) {
	ms := newShard(t)

	grad := tensor.NewMap()
	srm := tensor.NewSRM(4, tensor.Initializer{Type: tensor.InitZeros})
	srm.Assign(1, []float32{1, 1, 1, 1})
	grad.Set("emb", tensor.FromSrm(srm))

	require.NoError(t, ms.Push(grad, 100))
	assert.True(t, ms.TS.Has(1))

	v, ok := ms.Model.Params().Get("emb")
	require.True(t, ok)
	assert.True(t, v.Srm.Has(1))

	collected := ms.CollectOnlineLearning(0, 1e9)
	assert.Contains(t, collected["emb"], 1)
}

func TestModelShardExpireStale(t *testing.T) {
	ms := newShard(t)
	grad := tensor.NewMap()
	srm := tensor.NewSRM(4, tensor.Initializer{Type: tensor.InitZeros})
	srm.Assign(1, []float32{1, 1, 1, 1})
	grad.Set("emb", tensor.FromSrm(srm))
	require.NoError(t, ms.Push(grad, 100))

	expired := ms.ExpireStale(1000, 50)
	assert.ElementsMatch(t, []int{1}, expired)
}

func TestModelShardWorkerPoolRunsPosted(t *testing.T) {
	ms := newShard(t)
	ms.StartWorkers(2)
	defer ms.StopWorkers()

	done := make(chan struct{})
	require.NoError(t, ms.pool.Post(func() { close(done) }))
	<-done
}
