package store

import (
	"sync"

	"github.com/dreamware/fluxgraph/internal/tensor"
)

// TSStore maps a sparse row id to the u32 timestamp it was last touched by
// a gradient (spec.md §3/§4.8). now is always supplied by the caller
// rather than read from the wall clock, keeping the store deterministic
// for tests.
type TSStore struct {
	mu sync.Mutex
	ts map[int]uint32
}

// NewTSStore returns an empty TSStore.
func NewTSStore() *TSStore { return &TSStore{ts: map[int]uint32{}} }

// Update stamps every id referenced by any SRM gradient in grad with now.
func (s *TSStore) Update(grad *tensor.Map, now uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grad.Range(func(_ string, v tensor.Value) {
		if v.Kind != tensor.KindSRM {
			return
		}
		v.Srm.Range(func(id int, _ []float32) { s.ts[id] = now })
	})
}

// Expire removes and returns every id whose stamp is older than
// expireThreshold seconds before now.
func (s *TSStore) Expire(now, expireThreshold uint32) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []int
	for id, stamp := range s.ts {
		if now-stamp > expireThreshold {
			expired = append(expired, id)
			delete(s.ts, id)
		}
	}
	return expired
}

// Len returns the number of tracked ids.
func (s *TSStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ts)
}

// Has reports whether id is currently tracked.
func (s *TSStore) Has(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ts[id]
	return ok
}
