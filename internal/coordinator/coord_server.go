package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/wire"
)

// Broadcaster sends a message to every known parameter shard, used by
// CoordServer to fan out MODEL_SAVE_REQUEST and TERMINATION_NOTIFY at the
// end of training (spec.md §4.10).
type Broadcaster interface {
	Broadcast(msg *wire.Message) error
}

// EpochRunner drives one epoch's TCP loop until the dispatcher reports the
// epoch done, typically by serving FILE_REQUEST/FILE_FINISH_NOTIFY messages
// against a FileDispatcher.
type EpochRunner func(ctx context.Context, dispatcher *FileDispatcher) error

// CoordServer orchestrates a full training run: PreTrain, then PreEpoch →
// run the epoch's TCP loop → PostEpoch for each epoch, then PostTrain and
// an optional save-and-terminate broadcast (spec.md §4.10 "CoordServer
// orchestrates").
type CoordServer struct {
	Dispatcher *FileDispatcher
	Broadcaster Broadcaster
	RunEpoch   EpochRunner

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCoordServer binds a dispatcher, a shard broadcaster, and the function
// that drives one epoch's network loop.
func NewCoordServer(dispatcher *FileDispatcher, b Broadcaster, run EpochRunner) *CoordServer {
	return &CoordServer{Dispatcher: dispatcher, Broadcaster: b, RunEpoch: run}
}

// Run executes epochs epochs over files, reversing the file order once
// up-front if reverse is set and shuffling it fresh every epoch if shuffle
// is set. saveAndTerminate, if true, broadcasts MODEL_SAVE_REQUEST then
// TERMINATION_NOTIFY to every shard once training completes. The broadcast
// is best-effort: it does not wait for in-flight worker RPCs to finish.
func (s *CoordServer) Run(ctx context.Context, files []string, epochs int, reverse, shuffle bool, rng interface {
	Shuffle(n int, swap func(i, j int))
}, saveAndTerminate bool) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	log := logging.Named("coordinator")
	s.Dispatcher.PreTrain(files, reverse)

	for epoch := 0; epoch < epochs; epoch++ {
		log.Info().Int("epoch", epoch).Msg("epoch starting")
		s.Dispatcher.PreEpoch(shuffle, rng)

		if err := s.RunEpoch(ctx, s.Dispatcher); err != nil {
			return err
		}
		log.Info().Int("epoch", epoch).Int("finished", s.Dispatcher.Finished()).Msg("epoch done")
	}

	if saveAndTerminate && s.Broadcaster != nil {
		epochI32 := int32(epochs)
		if err := s.Broadcaster.Broadcast(&wire.Message{
			Type: wire.ModelSaveRequest,
			ModelSaveRequest: &wire.ModelSaveRequestBody{
				Epoch:     epochI32,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		}); err != nil {
			return err
		}
		if err := s.Broadcaster.Broadcast(&wire.Message{Type: wire.TerminationNotify}); err != nil {
			return err
		}
	}
	return nil
}

// Stop cancels the context passed to the in-flight Run call, if any.
func (s *CoordServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
