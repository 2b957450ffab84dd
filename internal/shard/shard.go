package shard

import (
	"github.com/spaolacci/murmur3"

	"github.com/dreamware/fluxgraph/internal/tensor"
)

// TsrShardFn maps a dense parameter name to a shard index in [0, size).
type TsrShardFn func(name string, size int) int

// SrmShardFn maps a sparse row id to a shard index in [0, size).
type SrmShardFn func(id int, size int) int

// DefaultTsrShardFn hashes name with MurmurHash and reduces it modulo size
// (spec.md §4.7's default TSR routing function). The pack carries murmur3's
// modern (v3) implementation rather than the legacy MurmurHash2 the source
// names; both are uniform, non-cryptographic hashes over the same byte
// input, so substituting the actively maintained sibling preserves the
// routing contract (determinism, uniformity) without reviving an unported
// legacy algorithm.
func DefaultTsrShardFn(name string, size int) int {
	return int(murmur3.Sum32([]byte(name))) % size
}

// DefaultSrmShardFn routes by id modulo size, normalising Go's
// truncated-toward-zero modulo into a non-negative result for negative ids.
func DefaultSrmShardFn(id int, size int) int {
	m := id % size
	if m < 0 {
		m += size
	}
	return m
}

// Descriptor is a single shard's routing configuration: its own index plus
// the total shard count and the two routing functions (spec.md §3 "Shard
// descriptor").
type Descriptor struct {
	ShardID    int
	ShardSize  int
	TsrShardFn TsrShardFn
	SrmShardFn SrmShardFn
}

// New returns a Descriptor for shardID of shardSize total shards, using the
// default MurmurHash/modulo routing functions.
func New(shardID, shardSize int) *Descriptor {
	return &Descriptor{
		ShardID:    shardID,
		ShardSize:  shardSize,
		TsrShardFn: DefaultTsrShardFn,
		SrmShardFn: DefaultSrmShardFn,
	}
}

// SplitPullRequest partitions pr into ShardSize sub-requests: each TSR name
// goes to exactly one shard; each SRM name's id set is partitioned by
// SrmShardFn; id-frequency entries follow the same routing as the SRM ids
// they describe (spec.md §4.7, §8 properties 5–6).
func (d *Descriptor) SplitPullRequest(pr *tensor.PullRequest) []*tensor.PullRequest {
	out := make([]*tensor.PullRequest, d.ShardSize)
	for i := range out {
		out[i] = tensor.NewPullRequest(pr.IsTrain)
	}

	for name := range pr.TsrSet {
		out[d.TsrShardFn(name, d.ShardSize)].AddTsr(name)
	}

	routedIDs := map[int]bool{}
	for name, ids := range pr.SrmMap {
		for id := range ids {
			shardIdx := d.SrmShardFn(id, d.ShardSize)
			out[shardIdx].AddSrmID(name, id)
			routedIDs[id] = true
		}
	}

	for id, freq := range pr.IDFreqMap {
		if !routedIDs[id] {
			continue
		}
		out[d.SrmShardFn(id, d.ShardSize)].AddFreq(id, freq)
	}

	return out
}

// SplitGrad partitions a gradient TensorMap across ShardSize maps. TSR
// gradients are handed to their owning shard as a non-owning view (no
// copy); SRM gradients are partitioned row-wise, each destination shard
// receiving a view over the source row, after which the source row is
// removed from m (cleared but Col/Initializer preserved) — spec.md §4.7
// "SplitGrad".
func (d *Descriptor) SplitGrad(m *tensor.Map) []*tensor.Map {
	out := make([]*tensor.Map, d.ShardSize)
	for i := range out {
		out[i] = tensor.NewMap()
	}

	for _, name := range m.Names() {
		v, _ := m.Get(name)
		switch v.Kind {
		case tensor.KindTSR:
			idx := d.TsrShardFn(name, d.ShardSize)
			out[idx].Set(name, tensor.FromTsr(v.Tsr.GetView()))
		case tensor.KindSRM:
			d.splitSrmGrad(name, v.Srm, out)
		default:
			// Non-gradient-bearing kinds never appear in a gradient map.
		}
	}

	return out
}

func (d *Descriptor) splitSrmGrad(name string, srm *tensor.SparseRowMatrix, out []*tensor.Map) {
	perShard := make(map[int]*tensor.SparseRowMatrix, d.ShardSize)
	ids := srm.Keys()
	for _, id := range ids {
		idx := d.SrmShardFn(id, d.ShardSize)
		dst, ok := perShard[idx]
		if !ok {
			dst = tensor.NewSRM(srm.Col(), srm.Initializer())
			perShard[idx] = dst
		}
		dst.AssignView(id, srm.GetRowNoInit(id))
	}
	for idx, dst := range perShard {
		out[idx].Set(name, tensor.FromSrm(dst))
	}
	srm.Zeros()
}

// SplitParam partitions a full parameter snapshot the same way SplitGrad
// does, but over owned data rather than gradient views (spec.md §4.7
// "SplitParam": "identical routing but on a full parameter snapshot").
func (d *Descriptor) SplitParam(m *tensor.Map) []*tensor.Map {
	out := make([]*tensor.Map, d.ShardSize)
	for i := range out {
		out[i] = tensor.NewMap()
	}

	for _, name := range m.Names() {
		v, _ := m.Get(name)
		switch v.Kind {
		case tensor.KindTSR:
			idx := d.TsrShardFn(name, d.ShardSize)
			out[idx].Set(name, tensor.FromTsr(v.Tsr.Clone()))
		case tensor.KindSRM:
			perShard := make(map[int]*tensor.SparseRowMatrix, d.ShardSize)
			v.Srm.Range(func(id int, row []float32) {
				idx := d.SrmShardFn(id, d.ShardSize)
				dst, ok := perShard[idx]
				if !ok {
					dst = tensor.NewSRM(v.Srm.Col(), v.Srm.Initializer())
					perShard[idx] = dst
				}
				dst.Assign(id, row)
			})
			for idx, dst := range perShard {
				out[idx].Set(name, tensor.FromSrm(dst))
			}
		}
	}

	return out
}
