package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDispatcherWorkedExample(t *testing.T) {
	now := time.Now()
	d := NewFileDispatcher(0)
	d.PreTrain([]string{"a", "b", "c"}, false)
	d.PreEpoch(false, nil)

	f, outcome := d.WorkerDispatchFile(now)
	require.Equal(t, Dispatched, outcome)
	assert.Equal(t, "a", f)

	f, outcome = d.WorkerDispatchFile(now)
	require.Equal(t, Dispatched, outcome)
	assert.Equal(t, "b", f)

	f, outcome = d.WorkerDispatchFile(now)
	require.Equal(t, Dispatched, outcome)
	assert.Equal(t, "c", f)

	d.WorkerFailureFile("c")
	d.WorkerFailureFile("c")

	f, outcome = d.WorkerDispatchFile(now)
	require.Equal(t, Dispatched, outcome)
	assert.Equal(t, "c", f)

	assert.False(t, d.WorkerFinishFile("a"))
	assert.False(t, d.WorkerFinishFile("b"))
	assert.True(t, d.WorkerFinishFile("c"))
}

func TestWorkerFailureFileIgnoresRepeatedReportsForSameFile(t *testing.T) {
	now := time.Now()
	d := NewFileDispatcher(0)
	d.PreTrain([]string{"a"}, false)
	d.PreEpoch(false, nil)

	f, outcome := d.WorkerDispatchFile(now)
	require.Equal(t, Dispatched, outcome)
	require.Equal(t, "a", f)

	d.WorkerFailureFile("a")
	d.WorkerFailureFile("a")

	f, outcome = d.WorkerDispatchFile(now)
	require.Equal(t, Dispatched, outcome)
	assert.Equal(t, "a", f)

	_, outcome = d.WorkerDispatchFile(now)
	assert.Equal(t, NoFile, outcome, "a second repeated failure report must not leave a duplicate entry queued")
}

func TestWorkerFailureFileIgnoresFileNotInFlight(t *testing.T) {
	d := NewFileDispatcher(0)
	d.PreTrain([]string{"a"}, false)
	d.PreEpoch(false, nil)

	d.WorkerFailureFile("never-dispatched")

	_, outcome := d.WorkerDispatchFile(time.Now())
	require.Equal(t, Dispatched, outcome, "the real pending file should dispatch first")

	_, outcome = d.WorkerDispatchFile(time.Now())
	assert.Equal(t, NoFile, outcome, "the bogus failure report must not have queued a phantom file")
}

func TestFileDispatcherEmptyQueueNoTimeout(t *testing.T) {
	d := NewFileDispatcher(0)
	d.PreTrain([]string{"a"}, false)
	d.PreEpoch(false, nil)

	_, outcome := d.WorkerDispatchFile(time.Now())
	require.Equal(t, Dispatched, outcome)

	_, outcome = d.WorkerDispatchFile(time.Now())
	assert.Equal(t, NoFile, outcome)
}

func TestFileDispatcherRequeuesOnTimeout(t *testing.T) {
	d := NewFileDispatcher(10 * time.Millisecond)
	d.PreTrain([]string{"a"}, false)
	d.PreEpoch(false, nil)

	start := time.Now()
	f, outcome := d.WorkerDispatchFile(start)
	require.Equal(t, Dispatched, outcome)
	assert.Equal(t, "a", f)

	later := start.Add(50 * time.Millisecond)
	f, outcome = d.WorkerDispatchFile(later)
	require.Equal(t, Dispatched, outcome)
	assert.Equal(t, "a", f)
}

func TestFileDispatcherReverseAppliesAtPreTrain(t *testing.T) {
	d := NewFileDispatcher(0)
	d.PreTrain([]string{"a", "b", "c"}, true)
	d.PreEpoch(false, nil)

	f, _ := d.WorkerDispatchFile(time.Now())
	assert.Equal(t, "c", f)
}
