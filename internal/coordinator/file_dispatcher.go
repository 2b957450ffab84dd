// Package coordinator implements the epoch-driven training orchestration
// layer: a FileDispatcher handing out work files to workers with
// timeout-based reassignment, and a CoordServer sequencing epochs end to
// end.
package coordinator

import (
	"container/list"
	"sync"
	"time"
)

// Outcome is the tri-state result of a WorkerDispatchFile call: a file was
// handed out, the queue is empty but the epoch isn't done, or the epoch has
// finished.
type Outcome int

const (
	// Dispatched means File holds a file name just handed to the caller.
	Dispatched Outcome = iota
	// NoFile means the queue is currently empty but files remain in flight.
	NoFile
	// EpochDone means every file for this epoch has finished.
	EpochDone
)

// FileDispatcher hands files out to workers, re-queues files whose dispatch
// has run longer than timeout without a finish notification, and tracks
// when every file in the current epoch has finished (spec.md §4.10).
type FileDispatcher struct {
	mu sync.Mutex

	files   []string
	pending *list.List // queue of not-yet-dispatched file names
	inFlight map[string]time.Time
	finished map[string]struct{}

	timeout time.Duration
}

// NewFileDispatcher returns a dispatcher with no files loaded. Call
// PreTrain (once) and PreEpoch (per epoch) before dispatching.
func NewFileDispatcher(timeout time.Duration) *FileDispatcher {
	return &FileDispatcher{
		pending:  list.New(),
		inFlight: map[string]time.Time{},
		finished: map[string]struct{}{},
		timeout:  timeout,
	}
}

// PreTrain records the full file list for the training run, optionally
// reversed.
func (d *FileDispatcher) PreTrain(files []string, reverse bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.files = append([]string(nil), files...)
	if reverse {
		for i, j := 0, len(d.files)-1; i < j; i, j = i+1, j-1 {
			d.files[i], d.files[j] = d.files[j], d.files[i]
		}
	}
}

// PreEpoch loads the current file list into the pending queue, optionally
// shuffled via rng, and clears in-flight/finished bookkeeping from any
// previous epoch.
func (d *FileDispatcher) PreEpoch(shuffle bool, rng interface{ Shuffle(n int, swap func(i, j int)) }) {
	d.mu.Lock()
	defer d.mu.Unlock()

	order := append([]string(nil), d.files...)
	if shuffle && rng != nil {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	d.pending.Init()
	for _, f := range order {
		d.pending.PushBack(f)
	}
	d.inFlight = map[string]time.Time{}
	d.finished = map[string]struct{}{}
}

// WorkerDispatchFile pops the next file from the queue. If the queue is
// empty and timeout > 0, it first scans in-flight files for one whose
// elapsed dispatch time exceeds timeout and requeues it (spec.md §4.10).
func (d *FileDispatcher) WorkerDispatchFile(now time.Time) (file string, outcome Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending.Len() == 0 && d.timeout > 0 {
		d.requeueTimedOutLocked(now)
	}

	if d.pending.Len() == 0 {
		if len(d.finished) >= len(d.files) && len(d.files) > 0 {
			return "", EpochDone
		}
		return "", NoFile
	}

	e := d.pending.Front()
	d.pending.Remove(e)
	f := e.Value.(string)
	d.inFlight[f] = now
	return f, Dispatched
}

func (d *FileDispatcher) requeueTimedOutLocked(now time.Time) {
	for f, dispatchedAt := range d.inFlight {
		if now.Sub(dispatchedAt) > d.timeout {
			delete(d.inFlight, f)
			d.pending.PushBack(f)
		}
	}
}

// WorkerFinishFile moves file from in-flight to finished. It reports
// whether every file in the epoch has now finished.
func (d *FileDispatcher) WorkerFinishFile(file string) (epochDone bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.inFlight, file)
	d.finished[file] = struct{}{}
	return len(d.finished) >= len(d.files)
}

// WorkerFailureFile requeues file after a worker reports (or is detected
// to have suffered) a failure processing it. Only a file still recorded as
// in-flight is requeued — a second failure report for a file already
// finished or already requeued must not push a duplicate entry onto
// pending (original_source/src/ps/file_dispatcher.cc's dispatch_time_
// guard).
func (d *FileDispatcher) WorkerFailureFile(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.inFlight[file]; !ok {
		return
	}
	delete(d.inFlight, file)
	d.pending.PushBack(file)
}

// Finished reports how many distinct files have finished this epoch.
func (d *FileDispatcher) Finished() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.finished)
}
