// Package main implements the training worker binary: it requests files
// from the coordinator, pulls the graph's dense parameters from every
// parameter-server shard, and pushes a gradient back before reporting the
// file finished (spec.md §2's data-flow: "worker reads instance →
// OpContext.Forward → loss scalar → OpContext.Backward → gradient
// TensorMap → Shard splits grad per PS shard → RPC push to PS").
//
// Concrete operator kernels and instance-file parsing are out of scope
// here (spec.md's Non-goals exclude specific compute kernels and feature
// formats), so this worker exercises the real pull/push/file-dispatch
// wire protocol against a placeholder loss and a zero gradient over the
// graph's dense parameters, reporting each processed file's line count as
// the LossWeight of its FILE_FINISH_NOTIFY.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/modelio"
	"github.com/dreamware/fluxgraph/internal/rpc"
	"github.com/dreamware/fluxgraph/internal/shard"
	"github.com/dreamware/fluxgraph/internal/tensor"
	"github.com/dreamware/fluxgraph/internal/wire"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a FluxGraph training worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("coordinator", "", "coordinator address (required)")
	flags.StringArray("ps", nil, "parameter-server shard address, in shard order (required, repeatable)")
	flags.String("model-dir", "", "model directory to load graph.bin from (required)")
	flags.String("worker-id", "", "worker identifier for logging (defaults to worker-<pid>)")
	flags.Duration("no-file-poll-interval", 200*time.Millisecond, "how long to wait before re-requesting a file after a NoFile response")
	flags.Duration("epoch-done-poll-interval", time.Second, "how long to wait before re-requesting a file after an EpochDone response")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("FLUXGRAPH_WORKER")
	v.AutomaticEnv()

	return cmd
}

func run(v *viper.Viper) error {
	log := logging.Named("worker")
	workerID := v.GetString("worker-id")
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%d", os.Getpid())
	}
	log = log.With().Str("worker_id", workerID).Logger()

	coordAddr := v.GetString("coordinator")
	psAddrs := v.GetStringSlice("ps")
	modelDir := v.GetString("model-dir")
	if coordAddr == "" || len(psAddrs) == 0 || modelDir == "" {
		return fmt.Errorf("worker: --coordinator, --ps, and --model-dir are all required")
	}

	g, err := modelio.ReadGraph(modelDir)
	if err != nil {
		return fmt.Errorf("worker: read graph: %w", err)
	}
	denseParams := denseParamNames(g)

	coord, err := rpc.Dial("tcp", coordAddr)
	if err != nil {
		return fmt.Errorf("worker: dial coordinator: %w", err)
	}
	defer coord.Close()

	psClients := make([]*rpc.Client, len(psAddrs))
	for i, addr := range psAddrs {
		c, err := rpc.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("worker: dial shard %d (%s): %w", i, addr, err)
		}
		defer c.Close()
		psClients[i] = c
	}
	descriptor := shard.New(0, len(psAddrs))

	noFileWait := v.GetDuration("no-file-poll-interval")
	epochDoneWait := v.GetDuration("epoch-done-poll-interval")

	for {
		resp, err := coord.Request(&wire.Message{Type: wire.FileRequest})
		if err != nil {
			log.Info().Err(err).Msg("coordinator connection closed, exiting")
			return nil
		}
		fr := resp.FileResponse

		switch {
		case fr.Epoch < 0:
			time.Sleep(epochDoneWait)
			continue
		case fr.File == "":
			time.Sleep(noFileWait)
			continue
		}

		loss, lossWeight, err := processFile(fr.File, denseParams, descriptor, psClients)
		if err != nil {
			log.Error().Err(err).Str("file", fr.File).Msg("file processing failed")
			continue
		}

		if err := coord.Notify(&wire.Message{Type: wire.FileFinishNotify, FileFinishNotify: &wire.FileFinishNotifyBody{
			File: fr.File, Loss: loss, LossWeight: lossWeight,
		}}); err != nil {
			log.Info().Err(err).Msg("coordinator connection closed, exiting")
			return nil
		}
	}
}

func denseParamNames(g *graph.Graph) []string {
	var names []string
	for _, n := range g.Nodes {
		if n.NodeType == graph.NodeParam && n.TensorType == tensor.KindTSR {
			names = append(names, n.Name)
		}
	}
	return names
}

// processFile pulls every dense parameter from its owning shard, counts
// the dispatched file's lines as its instance weight, and pushes back a
// zero gradient over whatever it pulled — see the package doc comment for
// why no real forward/backward pass runs here.
func processFile(file string, denseParams []string, descriptor *shard.Descriptor, psClients []*rpc.Client) (loss, lossWeight float64, err error) {
	pr := tensor.NewPullRequest(true)
	for _, name := range denseParams {
		pr.AddTsr(name)
	}

	pulled := tensor.NewMap()
	for i, sub := range descriptor.SplitPullRequest(pr) {
		if len(sub.TsrSet) == 0 && len(sub.SrmMap) == 0 {
			continue
		}
		resp, err := psClients[i].Request(&wire.Message{Type: wire.PullRequest, PullRequest: sub})
		if err != nil {
			return 0, 0, fmt.Errorf("pull from shard %d: %w", i, err)
		}
		resp.PullResponse.Range(func(name string, v tensor.Value) { pulled.Set(name, v) })
	}

	lines, err := countLines(file)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", file, err)
	}

	grad := tensor.NewMap()
	pulled.Range(func(name string, v tensor.Value) {
		if v.Kind == tensor.KindTSR {
			grad.Set(name, tensor.FromTsr(tensor.New[float32](v.Tsr.Shape())))
		}
	})

	for i, sub := range descriptor.SplitGrad(grad) {
		if sub.Len() == 0 {
			continue
		}
		if err := psClients[i].Notify(&wire.Message{Type: wire.PushNotify, PushNotify: sub}); err != nil {
			return 0, 0, fmt.Errorf("push to shard %d: %w", i, err)
		}
	}

	return 0, float64(lines), nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Log.Fatal().Err(err).Msg("worker exited with error")
	}
}
