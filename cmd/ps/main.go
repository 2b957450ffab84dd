// Package main implements the parameter-server binary: one shard of a
// model's parameters, reachable over the binary RPC protocol for
// PULL_REQUEST/PUSH_NOTIFY, and saving/loading its shard of an on-disk
// model directory on MODEL_SAVE_REQUEST/startup (spec.md §2 component K,
// §4.9, §6).
package main

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/modelio"
	"github.com/dreamware/fluxgraph/internal/modelshard"
	"github.com/dreamware/fluxgraph/internal/optimizer"
	"github.com/dreamware/fluxgraph/internal/rpc"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "Run a FluxGraph parameter-server shard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":7100", "address to accept worker/coordinator connections on")
	flags.String("model-dir", "", "model directory to load graph.bin and this shard's model_shard_N.bin from (required)")
	flags.String("out-dir", "", "model directory to write this shard's model_shard_N.bin to on save (defaults to --model-dir)")
	flags.Int("shard-id", 0, "this shard's index")
	flags.Int("shard-size", 1, "total number of shards")
	flags.Int("workers", 4, "shard worker pool size (pull/push run on the connection goroutine, not on this pool)")
	flags.String("opt-rule", "sgd", "optimiser rule: sgd|adagrad|adam|ftrl")
	flags.Float64("opt-alpha", 0.01, "optimiser learning rate")
	flags.Float64("opt-beta", 1e-8, "optimiser beta (adagrad epsilon / adam beta1)")
	flags.Float64("opt-beta2", 0.999, "optimiser beta2 (adam beta2 / ftrl l2)")
	flags.Uint32("freq-filter-threshold", 0, "drop sparse rows below this access frequency on pull")
	flags.Uint32("expire-threshold-secs", 0, "if nonzero, periodically expire sparse rows untouched this many seconds")
	flags.Int64("seed", 0, "rng seed; 0 derives a seed from the shard id")
	flags.String("kv-protocol-version", "", "unused placeholder kept for CLI symmetry with coordinator's save request")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("FLUXGRAPH_PS")
	v.AutomaticEnv()

	return cmd
}

func run(v *viper.Viper) error {
	log := logging.Named("ps")

	modelDir := v.GetString("model-dir")
	if modelDir == "" {
		return fmt.Errorf("ps: --model-dir is required")
	}
	outDir := v.GetString("out-dir")
	if outDir == "" {
		outDir = modelDir
	}
	shardID := v.GetInt("shard-id")
	shardSize := v.GetInt("shard-size")

	seed := v.GetInt64("seed")
	if seed == 0 {
		seed = int64(shardID) + 1
	}
	rng := rand.New(rand.NewSource(seed))

	g, err := modelio.ReadGraph(modelDir)
	if err != nil {
		return fmt.Errorf("ps: read graph: %w", err)
	}

	rule, err := parseRule(v.GetString("opt-rule"))
	if err != nil {
		return err
	}
	optCfg, err := optimizer.InitConfig(rule, map[string]string{
		"alpha": fmt.Sprint(v.GetFloat64("opt-alpha")),
		"beta":  fmt.Sprint(v.GetFloat64("opt-beta")),
		"beta2": fmt.Sprint(v.GetFloat64("opt-beta2")),
	})
	if err != nil {
		return fmt.Errorf("ps: optimiser config: %w", err)
	}

	ms, err := modelshard.New(shardID, shardSize, g, optCfg, rng)
	if err != nil {
		return fmt.Errorf("ps: init shard: %w", err)
	}

	if loaded, err := modelio.ReadModelShard(modelDir, shardID); err == nil {
		applyWarmStart(ms, loaded)
		log.Info().Int("shard_id", shardID).Msg("warm-started shard from model_shard_N.bin")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("ps: read model shard: %w", err)
	}

	ms.StartWorkers(v.GetInt("workers"))
	defer ms.StopWorkers()

	srv := rpc.NewServer()
	registerHandlers(srv, ms, v.GetUint32("freq-filter-threshold"), outDir, shardID, g)

	ln, err := net.Listen("tcp", v.GetString("listen"))
	if err != nil {
		return fmt.Errorf("ps: listen: %w", err)
	}

	if threshold := v.GetUint32("expire-threshold-secs"); threshold > 0 {
		go expireLoop(ms, threshold)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", v.GetString("listen")).Int("shard_id", shardID).Msg("parameter server listening")
		errCh <- srv.Serve(ln)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ps: serve: %w", err)
		}
	}

	return srv.Close()
}

func parseRule(s string) (optimizer.Rule, error) {
	switch s {
	case "sgd":
		return optimizer.RuleSGD, nil
	case "adagrad":
		return optimizer.RuleAdaGrad, nil
	case "adam":
		return optimizer.RuleAdam, nil
	case "ftrl":
		return optimizer.RuleFTRL, nil
	default:
		return 0, fmt.Errorf("ps: unknown optimiser rule %q", s)
	}
}

func nowUnix() uint32 { return uint32(time.Now().Unix()) }

func expireLoop(ms *modelshard.ModelShard, thresholdSecs uint32) {
	log := logging.Named("ps.expire")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for now := range ticker.C {
		expired := ms.ExpireStale(uint32(now.Unix()), thresholdSecs)
		if len(expired) > 0 {
			log.Debug().Int("count", len(expired)).Msg("expired stale sparse rows")
		}
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Log.Fatal().Err(err).Msg("ps exited with error")
	}
}
