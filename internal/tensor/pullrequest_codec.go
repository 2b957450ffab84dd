package tensor

import "github.com/dreamware/fluxgraph/internal/stream"

// WritePullRequest serialises a PullRequest.
func WritePullRequest(w *stream.Writer, pr *PullRequest) {
	w.WriteBool(pr.IsTrain)
	stream.WriteMap(w, pr.TsrSet,
		func(w *stream.Writer, k string) { w.WriteString(k) },
		func(w *stream.Writer, _ struct{}) {})
	stream.WriteMap(w, pr.SrmMap,
		func(w *stream.Writer, k string) { w.WriteString(k) },
		func(w *stream.Writer, ids map[int]struct{}) {
			stream.WriteMap(w, ids,
				func(w *stream.Writer, id int) { w.WriteI64(int64(id)) },
				func(w *stream.Writer, _ struct{}) {})
		})
	stream.WriteMap(w, pr.IDFreqMap,
		func(w *stream.Writer, id int) { w.WriteI64(int64(id)) },
		func(w *stream.Writer, f uint32) { w.WriteU32(f) })
}

// ReadPullRequest reads a PullRequest written by WritePullRequest.
func ReadPullRequest(r *stream.Reader) *PullRequest {
	pr := NewPullRequest(false)
	pr.IsTrain = r.ReadBool()
	tsrSet := stream.ReadMap(r,
		func(r *stream.Reader) string { return r.ReadString() },
		func(r *stream.Reader) struct{} { return struct{}{} })
	if tsrSet != nil {
		pr.TsrSet = tsrSet
	}
	srmMap := stream.ReadMap(r,
		func(r *stream.Reader) string { return r.ReadString() },
		func(r *stream.Reader) map[int]struct{} {
			ids := stream.ReadMap(r,
				func(r *stream.Reader) int { return int(r.ReadI64()) },
				func(r *stream.Reader) struct{} { return struct{}{} })
			return ids
		})
	if srmMap != nil {
		pr.SrmMap = srmMap
	}
	idFreq := stream.ReadMap(r,
		func(r *stream.Reader) int { return int(r.ReadI64()) },
		func(r *stream.Reader) uint32 { return r.ReadU32() })
	if idFreq != nil {
		pr.IDFreqMap = idFreq
	}
	return pr
}
