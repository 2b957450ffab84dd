// Package main implements merge-model-shard: it reads an on-disk model
// directory's shard count and every model_shard_N.bin, merges them into a
// single shardless parameter TensorMap, and writes it out (spec.md §6).
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/modelio"
	"github.com/dreamware/fluxgraph/internal/stream"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "merge-model-shard",
		Short: "Merge a sharded model directory into a single parameter file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("in_model", "", "sharded model directory to read shard_info.bin and model_shard_N.bin from (required)")
	flags.String("out_model", "merged_model.bin", "path to write the merged parameter file to")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("FLUXGRAPH_MERGE_MODEL_SHARD")
	v.AutomaticEnv()

	return cmd
}

func run(v *viper.Viper) error {
	log := logging.Named("merge-model-shard")

	inDir := v.GetString("in_model")
	if inDir == "" {
		return fmt.Errorf("merge-model-shard: --in_model is required")
	}
	outPath := v.GetString("out_model")

	info, err := modelio.ReadShardInfo(inDir)
	if err != nil {
		return fmt.Errorf("merge-model-shard: read shard info: %w", err)
	}

	merged := tensor.NewMap()
	for shardID := 0; shardID < info.ShardSize; shardID++ {
		shard, err := modelio.ReadModelShard(inDir, shardID)
		if err != nil {
			return fmt.Errorf("merge-model-shard: read shard %d: %w", shardID, err)
		}
		mergeInto(merged, shard)
		log.Info().Int("shard_id", shardID).Int("params", shard.Len()).Msg("merged shard")
	}

	if err := writeMerged(outPath, merged); err != nil {
		return fmt.Errorf("merge-model-shard: write merged model: %w", err)
	}

	log.Info().Str("out", outPath).Int("params", merged.Len()).Msg("merge complete")
	return nil
}

// mergeInto folds shard's entries into merged. Every shard's dense (TSR)
// parameters are disjoint by name (each name is routed to exactly one
// shard), so a TSR entry is simply adopted the first time it's seen.
// Sparse (SRM) parameters of the same name are instead split row-wise
// across shards, so their rows are upserted together into one matrix
// keyed by name (spec.md §4.7's SplitParam routing, run in reverse).
func mergeInto(merged, shard *tensor.Map) {
	shard.Range(func(name string, v tensor.Value) {
		switch v.Kind {
		case tensor.KindTSR:
			if !merged.Has(name) {
				merged.Set(name, v)
			}
		case tensor.KindSRM:
			existing, ok := merged.Get(name)
			if !ok {
				dst := tensor.NewSRM(v.Srm.Col(), v.Srm.Initializer())
				dst.Upsert(v.Srm)
				merged.Set(name, tensor.FromSrm(dst))
				return
			}
			existing.Srm.Upsert(v.Srm)
		}
	})
}

func writeMerged(path string, m *tensor.Map) error {
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	tensor.WriteTensorMap(w, m)
	if w.Err() != nil {
		return w.Err()
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Log.Error().Err(err).Msg("merge-model-shard exited with error")
		os.Exit(1)
	}
}
