// Package main implements the coordinator binary: it drives epoch-by-epoch
// training by handing out work files to workers over FILE_REQUEST/
// FILE_FINISH_NOTIFY and, once training completes, broadcasts
// MODEL_SAVE_REQUEST then TERMINATION_NOTIFY to every parameter-server
// shard (spec.md §2 component O, §4.10).
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/fluxgraph/internal/coordinator"
	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/rpc"
	"github.com/dreamware/fluxgraph/internal/wire"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Run a FluxGraph training coordinator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":7000", "address to accept worker connections on")
	flags.StringArray("ps", nil, "parameter-server shard address, in shard order (repeatable)")
	flags.StringArray("file", nil, "training data file path (repeatable)")
	flags.String("files-from", "", "path to a newline-separated list of training data files, merged with --file")
	flags.Int("epochs", 1, "number of epochs to run")
	flags.Bool("reverse", false, "reverse the file order once before the first epoch")
	flags.Bool("shuffle", false, "shuffle the file order at the start of every epoch")
	flags.Int64("seed", 1, "rng seed for shuffling")
	flags.Duration("dispatch-timeout", 0, "requeue a file if no finish notice arrives within this long (0 disables)")
	flags.Bool("save-and-terminate", true, "broadcast MODEL_SAVE_REQUEST then TERMINATION_NOTIFY to every shard once training completes")
	flags.Duration("epoch-poll-interval", 50*time.Millisecond, "how often to check whether an epoch's files have all finished")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("FLUXGRAPH_COORDINATOR")
	v.AutomaticEnv()

	return cmd
}

func loadFiles(v *viper.Viper) ([]string, error) {
	files := append([]string(nil), v.GetStringSlice("file")...)
	if path := v.GetString("files-from"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("coordinator: read --files-from: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				files = append(files, line)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("coordinator: no training files given (--file / --files-from)")
	}
	return files, nil
}

func run(v *viper.Viper) error {
	log := logging.Named("coordinator")

	files, err := loadFiles(v)
	if err != nil {
		return err
	}

	dispatcher := coordinator.NewFileDispatcher(v.GetDuration("dispatch-timeout"))
	broadcaster := newShardBroadcaster(v.GetStringSlice("ps"))

	var currentEpoch int32
	pollInterval := v.GetDuration("epoch-poll-interval")
	total := len(files)

	runEpoch := func(ctx context.Context, d *coordinator.FileDispatcher) error {
		atomic.AddInt32(&currentEpoch, 1)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if d.Finished() >= total {
					return nil
				}
			}
		}
	}

	coord := coordinator.NewCoordServer(dispatcher, broadcaster, runEpoch)

	srv := rpc.NewServer()
	registerFileHandlers(srv, dispatcher, &currentEpoch)

	ln, err := net.Listen("tcp", v.GetString("listen"))
	if err != nil {
		return fmt.Errorf("coordinator: listen: %w", err)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", v.GetString("listen")).Msg("coordinator listening")
		serveErrCh <- srv.Serve(ln)
	}()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-stop:
			log.Info().Msg("shutdown signal received")
			coord.Stop()
		case <-ctx.Done():
		}
	}()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- coord.Run(ctx, files, v.GetInt("epochs"), v.GetBool("reverse"), v.GetBool("shuffle"),
			rand.New(rand.NewSource(v.GetInt64("seed"))), v.GetBool("save-and-terminate"))
	}()

	select {
	case err := <-runErrCh:
		if err != nil {
			return fmt.Errorf("coordinator: run: %w", err)
		}
		log.Info().Msg("training run complete")
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("coordinator: serve: %w", err)
		}
	}
	return nil
}

// fileResponseFor translates a FileDispatcher outcome into the
// FileResponseBody convention workers expect: Epoch -1 means the epoch is
// done, an empty File with a non-negative Epoch means try again shortly,
// and a non-empty File is a real dispatched assignment.
func fileResponseFor(file string, outcome coordinator.Outcome, epoch int32) *wire.FileResponseBody {
	switch outcome {
	case coordinator.Dispatched:
		return &wire.FileResponseBody{Epoch: epoch, File: file}
	case coordinator.EpochDone:
		return &wire.FileResponseBody{Epoch: -1, File: ""}
	default: // NoFile
		return &wire.FileResponseBody{Epoch: epoch, File: ""}
	}
}

// registerFileHandlers wires FILE_REQUEST/FILE_FINISH_NOTIFY onto srv,
// translating FileDispatcher's Outcome via fileResponseFor.
func registerFileHandlers(srv *rpc.Server, d *coordinator.FileDispatcher, currentEpoch *int32) {
	log := logging.Named("coordinator.rpc")

	srv.HandleRequest(wire.FileRequest, func(_ *rpc.Connection, _ *wire.Message) (*wire.Message, error) {
		file, outcome := d.WorkerDispatchFile(time.Now())
		body := fileResponseFor(file, outcome, atomic.LoadInt32(currentEpoch))
		return &wire.Message{Type: wire.FileResponse, FileResponse: body}, nil
	})

	srv.HandleNotify(wire.FileFinishNotify, func(_ *rpc.Connection, msg *wire.Message) {
		done := d.WorkerFinishFile(msg.FileFinishNotify.File)
		log.Debug().Str("file", msg.FileFinishNotify.File).Float64("loss", msg.FileFinishNotify.Loss).
			Bool("epoch_done", done).Msg("file finished")
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Log.Fatal().Err(err).Msg("coordinator exited with error")
	}
}
