package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/wire"
)

type fakeBroadcaster struct {
	sent []wire.Type
}

func (b *fakeBroadcaster) Broadcast(msg *wire.Message) error {
	b.sent = append(b.sent, msg.Type)
	return nil
}

func drainEpoch(ctx context.Context, d *FileDispatcher) error {
	now := time.Now()
	for {
		f, outcome := d.WorkerDispatchFile(now)
		switch outcome {
		case Dispatched:
			d.WorkerFinishFile(f)
		case EpochDone:
			return nil
		case NoFile:
			return nil
		}
	}
}

func TestCoordServerRunsAllEpochsAndBroadcasts(t *testing.T) {
	d := NewFileDispatcher(0)
	b := &fakeBroadcaster{}
	s := NewCoordServer(d, b, drainEpoch)

	err := s.Run(context.Background(), []string{"a", "b"}, 3, false, false, nil, true)
	require.NoError(t, err)

	assert.Equal(t, []wire.Type{wire.ModelSaveRequest, wire.TerminationNotify}, b.sent)
}

func TestCoordServerSkipsBroadcastWhenNotRequested(t *testing.T) {
	d := NewFileDispatcher(0)
	b := &fakeBroadcaster{}
	s := NewCoordServer(d, b, drainEpoch)

	err := s.Run(context.Background(), []string{"a"}, 1, false, false, nil, false)
	require.NoError(t, err)
	assert.Empty(t, b.sent)
}

func TestCoordServerStopCancelsContext(t *testing.T) {
	d := NewFileDispatcher(0)
	var canceled bool
	run := func(ctx context.Context, d *FileDispatcher) error {
		<-ctx.Done()
		canceled = true
		return nil
	}
	s := NewCoordServer(d, nil, run)

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Stop()
	}()

	err := s.Run(context.Background(), []string{"a"}, 1, false, false, nil, false)
	require.NoError(t, err)
	assert.True(t, canceled)
}
