package modelshard

import (
	"math/rand"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/model"
	"github.com/dreamware/fluxgraph/internal/optimizer"
	"github.com/dreamware/fluxgraph/internal/pool"
	"github.com/dreamware/fluxgraph/internal/shard"
	"github.com/dreamware/fluxgraph/internal/store"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// ModelShard binds one shard's parameter Model to its Optimizer, its three
// auxiliary stores, its routing Descriptor, and a worker pool (spec.md §2
// component K, §4.8, §4.7). Pull and Push do not use the pool.
type ModelShard struct {
	Descriptor *shard.Descriptor
	Model      *model.Model
	Optimizer  *optimizer.Optimizer
	TS         *store.TSStore
	Freq       *store.FreqStore
	OL         *store.OLStore

	pool *pool.ThreadPool
	rng  *rand.Rand
}

// New builds a ModelShard for shardID of shardSize total shards, compiling
// the given graph's parameters into Model and allocating optimiser slots.
// rng seeds every stochastic initialiser and lazily-materialised SRM row.
func New(shardID, shardSize int, g *graph.Graph, cfg optimizer.Config, rng *rand.Rand) (*ModelShard, error) {
	m := model.New()
	m.InitLock(g)
	if err := m.InitParam(g, rng); err != nil {
		return nil, err
	}

	opt := optimizer.New(cfg, m.Params())
	opt.InitParam()

	ms := &ModelShard{
		Descriptor: shard.New(shardID, shardSize),
		Model:      m,
		Optimizer:  opt,
		TS:         store.NewTSStore(),
		Freq:       store.NewFreqStore(),
		OL:         store.NewOLStore(),
		pool:       pool.NewThreadPool(),
		rng:        rng,
	}
	return ms, nil
}

// StartWorkers launches the shard's worker pool with n goroutines. Pull and
// Push still run on their caller's goroutine.
func (ms *ModelShard) StartWorkers(n int) { ms.pool.Start(n) }

// StopWorkers drains and stops the worker pool.
func (ms *ModelShard) StopWorkers() { ms.pool.Stop() }

// Pull answers a worker's pull request: the frequency store drops cold
// sparse ids first, then the model copies out the remaining requested
// parameters (spec.md §4.8 FreqStore.Filter, §4.5 Model.Pull).
func (ms *ModelShard) Pull(pr *tensor.PullRequest, freqFilterThreshold uint32) (*tensor.Map, error) {
	ms.Freq.FilterPullRequest(pr, freqFilterThreshold)

	remote := tensor.NewMap()
	if err := ms.Model.Pull(ms.rng, pr, remote); err != nil {
		return nil, err
	}
	return remote, nil
}

// Push folds grad into the model via the bound optimiser, then records
// freshness (TSStore) and update pressure (OLStore) for every touched
// sparse row (spec.md §2 "Model.Update with Optimiser → TSStore/OLStore
// updated").
func (ms *ModelShard) Push(grad *tensor.Map, now uint32) error {
	if err := ms.Model.Update(grad, ms.Optimizer); err != nil {
		return err
	}
	ms.TS.Update(grad, now)
	ms.OL.Update(ms.Model.Params())
	return nil
}

// ExpireStale removes and returns every sparse id whose last-touched
// timestamp is older than expireThreshold seconds before now.
func (ms *ModelShard) ExpireStale(now, expireThreshold uint32) []int {
	return ms.TS.Expire(now, expireThreshold)
}

// CollectOnlineLearning returns the per-parameter ids ready for
// online-learning export per OLStore's update-count/distance thresholds.
func (ms *ModelShard) CollectOnlineLearning(updateThreshold uint32, distanceThreshold float64) map[string][]int {
	return ms.OL.Collect(ms.Model.Params(), updateThreshold, distanceThreshold)
}
