package graph

import (
	"fmt"

	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/stream"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// NodeVersion is the current GraphNode wire format version (spec.md §4.4).
// Versions 0 and 1 are rejected outright; version 2 is read for
// backward-compatibility — this port never emits version 2, but accepts it
// on read since it carries the same fields FluxGraph writes at version 3.
const NodeVersion = 3

// Legacy tensor-type codes from deepx_core's pre-SRM tensor system. Both the
// param (SRP/SVP) and grad (SRG/SVG) variants collapse to KindSRM on read;
// spec.md §9 notes the param/grad distinction they once carried is lost and
// should be treated conservatively.
const (
	legacyKindSRP int32 = 100
	legacyKindSVP int32 = 101
	legacyKindSRG int32 = 102
	legacyKindSVG int32 = 103
)

func writeTensorKind(w *stream.Writer, k tensor.Kind) { w.WriteI32(int32(k)) }

func readTensorKind(r *stream.Reader) tensor.Kind {
	v := r.ReadI32()
	switch v {
	case legacyKindSRP, legacyKindSVP, legacyKindSRG, legacyKindSVG:
		return tensor.KindSRM
	default:
		return tensor.Kind(v)
	}
}

func writeInitializer(w *stream.Writer, init tensor.Initializer) {
	w.WriteI32(int32(init.Type))
	w.WriteF64(init.Param0)
	w.WriteF64(init.Param1)
}

func readInitializer(r *stream.Reader) tensor.Initializer {
	t := tensor.InitializerType(r.ReadI32())
	p0 := r.ReadF64()
	p1 := r.ReadF64()
	return tensor.Initializer{Type: t, Param0: p0, Param1: p1}
}

// DecodedNode is a node as read off the wire, before its input names have
// been resolved to indices against the rest of the graph being decoded.
type DecodedNode struct {
	Name       string
	ID         uint16
	InputNames []string
	NodeType   NodeType
	TensorType tensor.Kind
	Shape      shape.Shape
	Init       tensor.Initializer
	NeedGrad   bool
}

// WriteNode writes node at NodeVersion: name, node_id, input names (by
// name, resolved against the owning Graph on read), node/tensor types,
// shape, initialiser and need_grad.
func WriteNode(w *stream.Writer, g *Graph, node *Node) {
	w.WriteI32(NodeVersion)
	w.WriteString(node.Name)
	w.WriteU64(uint64(node.ID))

	inputNames := make([]string, len(node.Inputs))
	for i, id := range node.Inputs {
		inputNames[i] = g.Nodes[id].Name
	}
	stream.WriteSlice(w, inputNames, func(w *stream.Writer, s string) { w.WriteString(s) })

	w.WriteI32(int32(node.NodeType))
	writeTensorKind(w, node.TensorType)
	tensor.WriteShape(w, node.Shape)
	writeInitializer(w, node.Init)
	w.WriteBool(node.NeedGrad)
}

// ReadNode reads a node written by WriteNode (or a legacy version-2
// encoding, which carries the same field set). On an unsupported version
// (0 or 1) it marks r bad and returns the zero value.
func ReadNode(r *stream.Reader) DecodedNode {
	version := r.ReadI32()
	if version == 0 || version == 1 {
		r.SetBad()
		return DecodedNode{}
	}

	var n DecodedNode
	n.Name = r.ReadString()
	n.ID = uint16(r.ReadU64())
	n.InputNames = stream.ReadSlice(r, func(r *stream.Reader) string { return r.ReadString() })
	n.NodeType = NodeType(r.ReadI32())
	n.TensorType = readTensorKind(r)
	n.Shape = tensor.ReadShape(r)
	n.Init = readInitializer(r)
	n.NeedGrad = r.ReadBool()
	return n
}

// WriteGraph serialises every node of g (in the DFS post-order id order
// already fixed by Compile), its targets (by root node name) and its meta
// annotations.
func WriteGraph(w *stream.Writer, g *Graph) {
	w.WriteU64(uint64(len(g.Nodes)))
	for _, node := range g.Nodes {
		WriteNode(w, g, node)
	}

	targetNames := make([]string, len(g.Targets))
	for i, t := range g.Targets {
		targetNames[i] = t.Name
	}
	stream.WriteSlice(w, targetNames, func(w *stream.Writer, s string) { w.WriteString(s) })

	stream.WriteMap(w, g.Meta,
		func(w *stream.Writer, k string) { w.WriteString(k) },
		func(w *stream.Writer, v string) { w.WriteString(v) })
}

// ReadGraph reads a Graph written by WriteGraph, resolving input names and
// recomputing Targets' forward chains and the InputFork/NeedGrad
// derivations exactly as Compile would.
func ReadGraph(r *stream.Reader) (*Graph, error) {
	n := r.ReadU64()
	decoded := make([]DecodedNode, 0, n)
	for i := uint64(0); i < n; i++ {
		decoded = append(decoded, ReadNode(r))
		if r.Bad() {
			return nil, fmt.Errorf("graph: corrupt node at index %d", i)
		}
	}

	targetNames := stream.ReadSlice(r, func(r *stream.Reader) string { return r.ReadString() })
	meta := stream.ReadMap(r,
		func(r *stream.Reader) string { return r.ReadString() },
		func(r *stream.Reader) string { return r.ReadString() })
	if r.Bad() {
		return nil, fmt.Errorf("graph: corrupt trailer")
	}

	g := &Graph{
		Meta:         meta,
		nodeByName:   map[string]*Node{},
		targetByID:   map[uint16]*Target{},
		targetByName: map[string]*Target{},
	}
	nameToID := make(map[string]uint16, len(decoded))
	for _, dn := range decoded {
		nameToID[dn.Name] = dn.ID
	}

	for _, dn := range decoded {
		inputs := make([]uint16, len(dn.InputNames))
		for i, name := range dn.InputNames {
			id, ok := nameToID[name]
			if !ok {
				return nil, fmt.Errorf("graph: node %q references unknown input %q", dn.Name, name)
			}
			inputs[i] = id
		}
		node := &Node{
			Name:       dn.Name,
			ID:         dn.ID,
			Inputs:     inputs,
			NodeType:   dn.NodeType,
			TensorType: dn.TensorType,
			Shape:      dn.Shape,
			Init:       dn.Init,
			NeedGrad:   dn.NeedGrad,
		}
		for len(g.Nodes) <= int(node.ID) {
			g.Nodes = append(g.Nodes, nil)
		}
		g.Nodes[node.ID] = node
		g.nodeByName[node.Name] = node
	}

	for _, name := range targetNames {
		root, ok := g.nodeByName[name]
		if !ok {
			return nil, fmt.Errorf("graph: unknown target root %q", name)
		}
		forward, err := forwardChain(g, root.ID)
		if err != nil {
			return nil, err
		}
		target := &Target{Name: name, RootID: root.ID, Forward: forward}
		g.Targets = append(g.Targets, target)
		g.targetByID[root.ID] = target
		g.targetByName[name] = target
	}

	computeInputFork(g)
	computeNeedGrad(g)

	return g, nil
}
