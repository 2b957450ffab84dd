package featurekv

import (
	"bytes"
	"fmt"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/stream"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// ExportModel renders g and param as a feature-kv item sequence (spec.md
// §6): a version item, a graph item, one item per dense parameter, and
// one item per sparse feature id seen across every SRM parameter node in
// g, aggregating that id's row from every such node into a single item.
// ids, if non-nil, restricts the sparse export to that id set (a save
// triggered by OLStore/FreqStore eviction rather than a full snapshot);
// nil exports every id present in any SRM parameter.
func ExportModel(g *graph.Graph, param *tensor.Map, ids []int, version int) ([]Item, error) {
	if version != Version2 && version != Version3 {
		return nil, fmt.Errorf("featurekv: unsupported protocol version %d", version)
	}

	items := []Item{encodeVersionItem(version)}

	graphItem, err := encodeGraphItem(g)
	if err != nil {
		return nil, err
	}
	items = append(items, graphItem)

	for _, n := range g.Nodes {
		if n.NodeType != graph.NodeParam || n.TensorType != tensor.KindTSR {
			continue
		}
		t := param.Tsr(n.Name)
		if t == nil {
			continue
		}
		items = append(items, encodeDenseParamItem(n.Name, t.Data()))
	}

	idSet := map[int]bool{}
	if ids != nil {
		for _, id := range ids {
			idSet[id] = true
		}
	}

	byID := map[int][]sparseEntry{}
	var order []int
	for _, n := range g.Nodes {
		if n.NodeType != graph.NodeParam || n.TensorType != tensor.KindSRM {
			continue
		}
		srm := param.Srm(n.Name)
		if srm == nil {
			continue
		}
		for _, id := range srm.Keys() {
			if ids != nil && !idSet[id] {
				continue
			}
			if _, ok := byID[id]; !ok {
				order = append(order, id)
			}
			byID[id] = append(byID[id], sparseEntry{NodeID: n.ID, Embedding: srm.GetRowNoInit(id)})
		}
	}

	for _, id := range order {
		item, err := encodeSparseItem(id, byID[id], version)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

func encodeGraphItem(g *graph.Graph) (Item, error) {
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	graph.WriteGraph(w, g)
	if w.Err() != nil {
		return Item{}, fmt.Errorf("featurekv: encode graph item: %w", w.Err())
	}
	return Item{Key: GraphKey(), Value: buf.Bytes()}, nil
}
