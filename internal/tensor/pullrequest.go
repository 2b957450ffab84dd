package tensor

// PullRequest describes which parameters a worker needs before its next
// forward pass: dense parameters by name, sparse parameters by the set of
// ids touched, plus an accumulated per-id frequency contribution used by
// FreqStore filtering (spec.md §3 "PullRequest").
type PullRequest struct {
	IsTrain bool

	TsrSet map[string]struct{}

	SrmMap map[string]map[int]struct{}

	IDFreqMap map[int]uint32
}

// NewPullRequest returns an empty request for the given training mode.
func NewPullRequest(isTrain bool) *PullRequest {
	return &PullRequest{
		IsTrain:   isTrain,
		TsrSet:    map[string]struct{}{},
		SrmMap:    map[string]map[int]struct{}{},
		IDFreqMap: map[int]uint32{},
	}
}

// AddTsr marks name as a dense parameter needed for the next forward pass.
func (pr *PullRequest) AddTsr(name string) { pr.TsrSet[name] = struct{}{} }

// AddSrmID marks id as a sparse row needed from the SRM parameter name.
func (pr *PullRequest) AddSrmID(name string, id int) {
	ids, ok := pr.SrmMap[name]
	if !ok {
		ids = map[int]struct{}{}
		pr.SrmMap[name] = ids
	}
	ids[id] = struct{}{}
}

// AddFreq accumulates a frequency contribution for id, saturating at
// math.MaxUint32.
func (pr *PullRequest) AddFreq(id int, delta uint32) {
	cur := pr.IDFreqMap[id]
	sum := cur + delta
	if sum < cur {
		sum = ^uint32(0)
	}
	pr.IDFreqMap[id] = sum
}

// Clear empties the request in place, preserving IsTrain.
func (pr *PullRequest) Clear() {
	pr.TsrSet = map[string]struct{}{}
	pr.SrmMap = map[string]map[int]struct{}{}
	pr.IDFreqMap = map[int]uint32{}
}
