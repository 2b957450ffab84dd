package featurekv

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/stream"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// ParamParserStat tallies how an ImportModel call's items were classified,
// mirroring the original's ParamParserStat used to monitor feature-kv
// client errors during serving.
type ParamParserStat struct {
	KeyExist    int
	KeyNotExist int
	KeyBad      int
	ValueBad    int
}

// ImportModel parses a feature-kv item sequence back into a Graph and
// parameter TensorMap. items may appear in any order; the version and
// graph items must both be present since sparse items need g to resolve
// which node (and column width) a node_id in the item refers to.
func ImportModel(items []Item) (*graph.Graph, *tensor.Map, int, ParamParserStat, error) {
	var stat ParamParserStat

	var g *graph.Graph
	version := -1
	param := tensor.NewMap()
	var denseItems, sparseItems []Item

	for _, it := range items {
		switch {
		case it.Key == VersionKey():
			v, err := decodeVersionItem(it.Value)
			if err != nil {
				stat.ValueBad++
				continue
			}
			version = v
			stat.KeyExist++

		case it.Key == GraphKey():
			parsed, err := decodeGraphItem(it.Value)
			if err != nil {
				stat.ValueBad++
				continue
			}
			g = parsed
			stat.KeyExist++

		case strings.HasPrefix(it.Key, denseKeyPrefix):
			denseItems = append(denseItems, it)

		case strings.HasPrefix(it.Key, sparseKeyPrefix):
			sparseItems = append(sparseItems, it)

		default:
			stat.KeyBad++
		}
	}

	if version != Version2 && version != Version3 {
		return nil, nil, 0, stat, fmt.Errorf("featurekv: missing or unsupported version item")
	}
	if g == nil {
		return nil, nil, 0, stat, fmt.Errorf("featurekv: missing graph item")
	}

	// Dense items carry a flat buffer; the node's own declared Shape (now
	// resolvable via g) restores its true rank rather than a flat 1-D one.
	for _, it := range denseItems {
		name, _ := DenseParamName(it.Key)
		data, err := decodeDenseParamItem(it.Value)
		if err != nil {
			stat.ValueBad++
			continue
		}
		node := g.NodeByName(name)
		sh := shape.New(len(data))
		if node != nil {
			sh = node.Shape
		} else {
			stat.KeyNotExist++
		}
		t := tensor.New[float32](sh)
		copy(t.Data(), data)
		param.Set(name, tensor.FromTsr(t))
		stat.KeyExist++
	}

	for _, it := range sparseItems {
		id, err := SparseParamID(it.Key)
		if err != nil {
			stat.KeyBad++
			continue
		}
		entries, err := decodeSparseItem(it.Value, version)
		if err != nil {
			stat.ValueBad++
			continue
		}
		for _, e := range entries {
			node := g.NodeByID(e.NodeID)
			if node == nil {
				stat.KeyNotExist++
				continue
			}
			srm := param.Srm(node.Name)
			if srm == nil {
				srm = tensor.NewSRM(len(e.Embedding), tensor.Initializer{Type: tensor.InitZeros})
				param.Set(node.Name, tensor.FromSrm(srm))
			}
			srm.Assign(id, e.Embedding)
		}
		stat.KeyExist++
	}

	return g, param, version, stat, nil
}

func decodeGraphItem(value []byte) (*graph.Graph, error) {
	r := stream.NewReader(bytes.NewReader(value))
	g, err := graph.ReadGraph(r)
	if err != nil {
		return nil, fmt.Errorf("featurekv: decode graph item: %w", err)
	}
	return g, nil
}
