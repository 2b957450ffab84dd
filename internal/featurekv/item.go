package featurekv

import (
	"bytes"
	"fmt"

	"github.com/dreamware/fluxgraph/internal/stream"
)

// Protocol versions this package understands (spec.md §6).
const (
	Version2 = 2 // embeddings written as float32
	Version3 = 3 // embeddings narrowed to Half
)

// Item is one key/value pair of the feature-kv export.
type Item struct {
	Key   string
	Value []byte
}

// sparseEntry is one node's contribution to a feature id's aggregated
// embedding item: (node_id, col, embedding) per spec.md §6.
type sparseEntry struct {
	NodeID    uint16
	Embedding []float32
}

func encodeVersionItem(version int) Item {
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	w.WriteI32(int32(version))
	return Item{Key: VersionKey(), Value: buf.Bytes()}
}

func decodeVersionItem(value []byte) (int, error) {
	r := stream.NewReader(bytes.NewReader(value))
	v := r.ReadI32()
	if r.Bad() {
		return 0, fmt.Errorf("featurekv: malformed version item")
	}
	return int(v), nil
}

func encodeDenseParamItem(name string, data []float32) Item {
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	for _, v := range data {
		w.WriteF32(v)
	}
	return Item{Key: DenseParamKey(name), Value: buf.Bytes()}
}

func decodeDenseParamItem(value []byte) ([]float32, error) {
	if len(value)%4 != 0 {
		return nil, fmt.Errorf("featurekv: dense item length %d not a multiple of 4", len(value))
	}
	r := stream.NewReader(bytes.NewReader(value))
	out := make([]float32, len(value)/4)
	for i := range out {
		out[i] = r.ReadF32()
	}
	if r.Bad() {
		return nil, fmt.Errorf("featurekv: malformed dense item")
	}
	return out, nil
}

// encodeSparseItem concatenates entries, each as (node_id, col, embedding:
// col x f32-or-half depending on version). node_id and col are widened to
// u32 on the wire since stream.Writer has no 16-bit primitive; node ids
// themselves still fit in uint16 in memory (graph.Node.ID).
func encodeSparseItem(id int, entries []sparseEntry, version int) (Item, error) {
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	for _, e := range entries {
		w.WriteU32(uint32(e.NodeID))
		w.WriteU32(uint32(len(e.Embedding)))
		switch version {
		case Version2:
			for _, v := range e.Embedding {
				w.WriteF32(v)
			}
		case Version3:
			for _, v := range e.Embedding {
				w.WriteU32(uint32(ToHalf(v).Bits()))
			}
		default:
			return Item{}, fmt.Errorf("featurekv: unsupported protocol version %d", version)
		}
	}
	return Item{Key: SparseParamKey(id), Value: buf.Bytes()}, nil
}

func decodeSparseItem(value []byte, version int) ([]sparseEntry, error) {
	r := stream.NewReader(bytes.NewReader(value))
	var entries []sparseEntry
	for {
		nodeID := r.ReadU32()
		if r.Bad() {
			break
		}
		col := r.ReadU32()
		embedding := make([]float32, col)
		switch version {
		case Version2:
			for i := range embedding {
				embedding[i] = r.ReadF32()
			}
		case Version3:
			for i := range embedding {
				embedding[i] = FromHalf(Half(r.ReadU32()))
			}
		default:
			return nil, fmt.Errorf("featurekv: unsupported protocol version %d", version)
		}
		if r.Bad() {
			return nil, fmt.Errorf("featurekv: truncated sparse item")
		}
		entries = append(entries, sparseEntry{NodeID: uint16(nodeID), Embedding: embedding})
	}
	return entries, nil
}
