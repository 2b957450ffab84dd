package main

import (
	"fmt"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/modelio"
	"github.com/dreamware/fluxgraph/internal/modelshard"
	"github.com/dreamware/fluxgraph/internal/rpc"
	"github.com/dreamware/fluxgraph/internal/tensor"
	"github.com/dreamware/fluxgraph/internal/wire"
)

// applyWarmStart overwrites ms's freshly-initialised parameters with loaded
// values for every name loaded carries, leaving names absent from loaded
// (e.g. a parameter added to the graph since the last save) at their
// random initial value.
func applyWarmStart(ms *modelshard.ModelShard, loaded *tensor.Map) {
	loaded.Range(func(name string, v tensor.Value) {
		ms.Model.Params().Set(name, v)
	})
}

// registerHandlers wires every wire.Type this shard answers onto srv:
// ECHO_REQUEST for liveness checks, PULL_REQUEST/PUSH_NOTIFY for the
// training loop, and MODEL_SAVE_REQUEST/TERMINATION_NOTIFY for the
// coordinator's end-of-run broadcast (spec.md §4.9, §4.10).
func registerHandlers(srv *rpc.Server, ms *modelshard.ModelShard, freqFilterThreshold uint32, outDir string, shardID int, g *graph.Graph) {
	log := logging.Named("ps.rpc")

	srv.HandleRequest(wire.EchoRequest, func(_ *rpc.Connection, msg *wire.Message) (*wire.Message, error) {
		return &wire.Message{Type: wire.EchoResponse, Echo: msg.Echo}, nil
	})

	srv.HandleRequest(wire.PullRequest, func(_ *rpc.Connection, msg *wire.Message) (*wire.Message, error) {
		result, err := ms.Pull(msg.PullRequest, freqFilterThreshold)
		if err != nil {
			return nil, fmt.Errorf("ps: pull: %w", err)
		}
		return &wire.Message{Type: wire.PullResponse, PullResponse: result}, nil
	})

	srv.HandleNotify(wire.PushNotify, func(_ *rpc.Connection, msg *wire.Message) {
		if err := ms.Push(msg.PushNotify, nowUnix()); err != nil {
			log.Warn().Err(err).Msg("push failed")
		}
	})

	srv.HandleRequest(wire.ModelSaveRequest, func(_ *rpc.Connection, msg *wire.Message) (*wire.Message, error) {
		if err := saveShard(outDir, shardID, g, ms); err != nil {
			log.Error().Err(err).Int("shard_id", shardID).Msg("model save failed")
			return nil, err
		}
		log.Info().Int("shard_id", shardID).Int32("epoch", msg.ModelSaveRequest.Epoch).Msg("model saved")
		return &wire.Message{Type: wire.ModelSaveResponse}, nil
	})

	srv.HandleNotify(wire.TerminationNotify, func(_ *rpc.Connection, _ *wire.Message) {
		log.Info().Msg("termination notice received")
	})
}

// saveShard persists this shard's graph and parameters to dir, backing up
// any previous files, then writes the shard's success marker last so a
// reader can tell the save completed (spec.md §6).
func saveShard(dir string, shardID int, g *graph.Graph, ms *modelshard.ModelShard) error {
	if err := modelio.WriteGraph(dir, g); err != nil {
		return fmt.Errorf("ps: write graph: %w", err)
	}
	if err := modelio.WriteModelShard(dir, shardID, ms.Model.Params()); err != nil {
		return fmt.Errorf("ps: write model shard: %w", err)
	}
	if err := modelio.WriteShardInfo(dir, modelio.ShardInfo{ShardSize: ms.Descriptor.ShardSize}); err != nil {
		return fmt.Errorf("ps: write shard info: %w", err)
	}
	return modelio.WriteSuccessMarker(dir, shardID)
}
