package store

import (
	"sync"

	"github.com/dreamware/fluxgraph/internal/tensor"
)

// FreqStore maps a sparse row id to a saturating u32 access frequency
// (spec.md §3/§4.8), used to filter cold ids out of pull requests and
// gradients below freqFilterThreshold.
type FreqStore struct {
	mu   sync.RWMutex
	freq map[int]uint32
}

// NewFreqStore returns an empty FreqStore.
func NewFreqStore() *FreqStore { return &FreqStore{freq: map[int]uint32{}} }

func addSaturating(cur, delta uint32) uint32 {
	sum := cur + delta
	if sum < cur {
		return ^uint32(0)
	}
	return sum
}

// FilterPullRequest accumulates pr's id-frequency contributions, then
// removes from every SRM id-set any id whose accumulated frequency is
// below threshold (spec.md §4.8 "FreqStore: Filter(pull_request)"). This
// is the locked entry point; FilterPullRequestLocked is exposed for
// callers that already hold a broader lock spanning multiple stores.
func (s *FreqStore) FilterPullRequest(pr *tensor.PullRequest, threshold uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilterPullRequestLocked(pr, threshold)
}

// FilterPullRequestLocked is FilterPullRequest without taking s.mu.
func (s *FreqStore) FilterPullRequestLocked(pr *tensor.PullRequest, threshold uint32) {
	for id, delta := range pr.IDFreqMap {
		s.freq[id] = addSaturating(s.freq[id], delta)
	}
	for name, ids := range pr.SrmMap {
		for id := range ids {
			if s.freq[id] < threshold {
				delete(ids, id)
			}
		}
		if len(ids) == 0 {
			delete(pr.SrmMap, name)
		}
	}
}

// FilterGrad drops every SRM row keyed on an id below threshold (spec.md
// §4.8 "Filter(grad)"). Locked entry point; FilterGradLocked for callers
// already holding a broader lock.
func (s *FreqStore) FilterGrad(grad *tensor.Map, threshold uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.FilterGradLocked(grad, threshold)
}

// FilterGradLocked is FilterGrad without taking s.mu.
func (s *FreqStore) FilterGradLocked(grad *tensor.Map, threshold uint32) {
	grad.Range(func(_ string, v tensor.Value) {
		if v.Kind != tensor.KindSRM {
			return
		}
		v.Srm.RemoveIf(func(id int, _ []float32) bool {
			return s.freq[id] < threshold
		})
	})
}

// Freq returns id's current accumulated frequency.
func (s *FreqStore) Freq(id int) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freq[id]
}
