package store

import (
	"math"
	"sync"

	"github.com/dreamware/fluxgraph/internal/tensor"
)

// OLStore tracks per-parameter, per-id update counts plus a snapshot of the
// previous parameter TensorMap, so that an online-learning exporter can
// collect only the ids that moved enough to be worth shipping (spec.md
// §4.8).
type OLStore struct {
	mu       sync.Mutex
	counts   map[string]map[int]uint32
	snapshot *tensor.Map
}

// NewOLStore returns an OLStore with an empty snapshot. Snapshot rows are
// created lazily, the first time Update sees a given (name, id).
func NewOLStore() *OLStore {
	return &OLStore{
		counts:   map[string]map[int]uint32{},
		snapshot: tensor.NewMap(),
	}
}

// Update increments the per-id update counter for every SRM row present in
// param, seeding the snapshot with the row's current value the first time
// an id is seen.
func (s *OLStore) Update(param *tensor.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()

	param.Range(func(name string, v tensor.Value) {
		if v.Kind != tensor.KindSRM {
			return
		}
		ids, ok := s.counts[name]
		if !ok {
			ids = map[int]uint32{}
			s.counts[name] = ids
		}
		snap := s.snapshotSRM(name, v.Srm.Col())
		v.Srm.Range(func(id int, row []float32) {
			ids[id] = addSaturating(ids[id], 1)
			if !snap.Has(id) {
				snap.Assign(id, append([]float32(nil), row...))
			}
		})
	})
}

func (s *OLStore) snapshotSRM(name string, col int) *tensor.SparseRowMatrix {
	v, ok := s.snapshot.Get(name)
	if !ok {
		srm := tensor.NewSRM(col, tensor.Initializer{Type: tensor.InitZeros})
		s.snapshot.Set(name, tensor.FromSrm(srm))
		return srm
	}
	return v.Srm
}

// Collect returns, per parameter name, the ids whose update count exceeds
// updateThreshold OR whose current embedding's L2 distance from the
// snapshot exceeds distanceThreshold. Collected ids are folded back into
// the snapshot (their counter reset to 0) and their distance no longer
// contributes on the next call.
func (s *OLStore) Collect(param *tensor.Map, updateThreshold uint32, distanceThreshold float64) map[string][]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string][]int{}
	param.Range(func(name string, v tensor.Value) {
		if v.Kind != tensor.KindSRM {
			return
		}
		ids := s.counts[name]
		snap := s.snapshotSRM(name, v.Srm.Col())

		var collected []int
		v.Srm.Range(func(id int, row []float32) {
			due := ids[id] > updateThreshold
			if !due {
				if old := snap.GetRowNoInit(id); old != nil && l2Distance(old, row) > distanceThreshold {
					due = true
				}
			}
			if due {
				collected = append(collected, id)
			}
		})
		for _, id := range collected {
			row := v.Srm.GetRowNoInit(id)
			snap.Assign(id, append([]float32(nil), row...))
			ids[id] = 0
		}
		if len(collected) > 0 {
			out[name] = collected
		}
	})
	return out
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
