// Package modelio implements the on-disk model directory layout (spec.md
// §6): graph.bin, model_shard_N.bin per shard, and shard_info.bin
// recording the shard count, all written as versioned streams via
// internal/stream, with backups produced on overwrite by renaming the
// existing file to "<file>.<timestamp>".
package modelio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/stream"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// GraphPath returns the path of a model directory's versioned graph file.
func GraphPath(dir string) string { return filepath.Join(dir, "graph.bin") }

// ModelShardPath returns the path of shard shardID's parameter file.
func ModelShardPath(dir string, shardID int) string {
	return filepath.Join(dir, fmt.Sprintf("model_shard_%d.bin", shardID))
}

// ShardInfoPath returns the path of a model directory's shard-count file.
func ShardInfoPath(dir string) string { return filepath.Join(dir, "shard_info.bin") }

// SuccessMarkerPath returns the path of shard shardID's empty success
// marker, written last so a reader can tell a save completed.
func SuccessMarkerPath(dir string, shardID int) string {
	return filepath.Join(dir, fmt.Sprintf("SUCCESS_shard_%d", shardID))
}

// ShardInfo is shard_info.bin's sole field.
type ShardInfo struct {
	ShardSize int
}

// backup renames an existing file at path to "<path>.<unix-nano timestamp>"
// so a failed overwrite never destroys the previous good copy.
func backup(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Rename(path, fmt.Sprintf("%s.%d", path, time.Now().UnixNano()))
}

func writeFile(path string, encode func(w *stream.Writer)) error {
	if err := backup(path); err != nil {
		return err
	}
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	encode(w)
	if w.Err() != nil {
		return w.Err()
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func readFile(path string, decode func(r *stream.Reader) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r := stream.NewReader(bytes.NewReader(data))
	if err := decode(r); err != nil {
		return err
	}
	if r.Bad() {
		return fmt.Errorf("modelio: corrupt stream in %s", path)
	}
	return nil
}

// WriteGraph writes g to dir's graph.bin.
func WriteGraph(dir string, g *graph.Graph) error {
	return writeFile(GraphPath(dir), func(w *stream.Writer) { graph.WriteGraph(w, g) })
}

// ReadGraph reads dir's graph.bin.
func ReadGraph(dir string) (*graph.Graph, error) {
	var g *graph.Graph
	err := readFile(GraphPath(dir), func(r *stream.Reader) error {
		var err error
		g, err = graph.ReadGraph(r)
		return err
	})
	return g, err
}

// WriteModelShard writes shardID's parameter TensorMap to dir.
func WriteModelShard(dir string, shardID int, params *tensor.Map) error {
	return writeFile(ModelShardPath(dir, shardID), func(w *stream.Writer) {
		tensor.WriteTensorMap(w, params)
	})
}

// ReadModelShard reads shardID's parameter TensorMap from dir.
func ReadModelShard(dir string, shardID int) (*tensor.Map, error) {
	var m *tensor.Map
	err := readFile(ModelShardPath(dir, shardID), func(r *stream.Reader) error {
		m = tensor.ReadTensorMap(r)
		return nil
	})
	return m, err
}

// WriteShardInfo writes dir's shard_info.bin.
func WriteShardInfo(dir string, info ShardInfo) error {
	return writeFile(ShardInfoPath(dir), func(w *stream.Writer) {
		w.WriteI32(int32(info.ShardSize))
	})
}

// ReadShardInfo reads dir's shard_info.bin.
func ReadShardInfo(dir string) (ShardInfo, error) {
	var info ShardInfo
	err := readFile(ShardInfoPath(dir), func(r *stream.Reader) error {
		info.ShardSize = int(r.ReadI32())
		return nil
	})
	return info, err
}

// WriteSuccessMarker writes shardID's empty success marker, overwriting any
// existing one without a backup (the marker itself carries no state worth
// preserving).
func WriteSuccessMarker(dir string, shardID int) error {
	return os.WriteFile(SuccessMarkerPath(dir, shardID), nil, 0o644)
}
