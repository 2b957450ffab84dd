package main

import (
	"fmt"

	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/rpc"
	"github.com/dreamware/fluxgraph/internal/wire"
)

// shardBroadcaster fans a message out to every parameter-server shard by
// dialing each address fresh and issuing the request/notify over it,
// satisfying coordinator.Broadcaster for the end-of-run
// MODEL_SAVE_REQUEST/TERMINATION_NOTIFY pair (spec.md §4.10).
type shardBroadcaster struct {
	addrs []string
}

func newShardBroadcaster(addrs []string) *shardBroadcaster {
	return &shardBroadcaster{addrs: addrs}
}

// Broadcast dials every shard and sends msg, continuing past individual
// dial/send failures and returning the first error encountered once all
// shards have been attempted (spec.md §7: "coordinator treats any PS
// failure as terminal" for the run, but a save/terminate broadcast should
// still reach every healthy shard before reporting the failure).
func (b *shardBroadcaster) Broadcast(msg *wire.Message) error {
	log := logging.Named("coordinator.broadcast")
	var firstErr error
	for _, addr := range b.addrs {
		if err := sendOne(addr, msg); err != nil {
			log.Error().Err(err).Str("addr", addr).Str("type", msg.Type.String()).Msg("broadcast failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("broadcast to %s: %w", addr, err)
			}
			continue
		}
		log.Info().Str("addr", addr).Str("type", msg.Type.String()).Msg("broadcast sent")
	}
	return firstErr
}

func sendOne(addr string, msg *wire.Message) error {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if msg.Type.RequiresResponse() {
		_, err := c.Request(msg)
		return err
	}
	return c.Notify(msg)
}
