// Package main implements eval-auc: a report tool that scores a
// `<label> <probability>` prediction file and prints AUC, loss, and
// predictive/statistical CTR (spec.md §6).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/fluxgraph/internal/logging"
	"github.com/dreamware/fluxgraph/internal/metric"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "eval-auc",
		Short: "Score a <label> <probability> prediction file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("in", "", "prediction file to score, one '<label> <probability>' pair per line (required)")
	flags.Int("buckets", metric.DefaultBuckets, "AUC histogram bucket resolution")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("FLUXGRAPH_EVAL_AUC")
	v.AutomaticEnv()

	return cmd
}

func run(v *viper.Viper) error {
	path := v.GetString("in")
	if path == "" {
		return fmt.Errorf("eval-auc: --in is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("eval-auc: %w", err)
	}
	defer f.Close()

	m := metric.NewFileMetric(v.GetInt("buckets"))

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		label, prob, err := parseLine(line)
		if err != nil {
			return fmt.Errorf("eval-auc: %s:%d: %w", path, lineNo, err)
		}
		m.Add(label, prob)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("eval-auc: %s: %w", path, err)
	}

	fmt.Printf("instances: %d\n", int64(m.NumInst()))
	fmt.Printf("auc: %.6f\n", m.AUC())
	fmt.Printf("loss: %.6f\n", m.MeanLoss())
	fmt.Printf("predictive_ctr: %.6f\n", m.PredictiveCTR())
	fmt.Printf("statistical_ctr: %.6f\n", m.StatisticalCTR())
	return nil
}

func parseLine(line string) (label, prob float64, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected '<label> <probability>', got %q", line)
	}
	label, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid label %q: %w", fields[0], err)
	}
	prob, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid probability %q: %w", fields[1], err)
	}
	return label, prob, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Log.Error().Err(err).Msg("eval-auc exited with error")
		os.Exit(1)
	}
}
