package graph

import (
	"fmt"
	"regexp"

	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// NodeType classifies what a node represents in the dataflow graph
// (spec.md §3).
type NodeType int

const (
	// NodeParam is a trainable parameter, partitioned across PS shards.
	NodeParam NodeType = iota
	// NodeInstance is an input read from the current mini-batch's Instance.
	NodeInstance
	// NodeHidden is an intermediate activation computed by an operator.
	NodeHidden
	// NodeConstant is a fixed, non-trainable value baked into the graph.
	NodeConstant
)

// nameRe validates GraphNode names: ASCII letters, digits, underscore,
// slash and colon, per spec.md §3.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_/:]+$`)

// Spec is a single node in the uncompiled, pointer-linked graph the caller
// builds before calling Compile. Spec.Inputs point at other Specs; cycles
// are rejected at compile time.
type Spec struct {
	Name       string
	Inputs     []*Spec
	NodeType   NodeType
	TensorType tensor.Kind
	Shape      shape.Shape
	Init       tensor.Initializer
	NeedGrad   bool
	OpClass    string
}

// Node is one entry in a compiled Graph's arena. Inputs are indices into
// the owning Graph's Nodes slice rather than pointers (spec.md §9).
type Node struct {
	Name       string
	ID         uint16
	Inputs     []uint16
	NodeType   NodeType
	TensorType tensor.Kind
	Shape      shape.Shape
	Init       tensor.Initializer
	NeedGrad   bool
	InputFork  bool
	OpClass    string
}

// Target is one compiled target: its root node plus the topologically
// ordered, deduplicated forward evaluation sequence of node ids needed to
// compute it (spec.md §3 "Graph", root node last in Forward).
type Target struct {
	Name    string
	RootID  uint16
	Forward []uint16
}

// Graph is the immutable, compiled dataflow DAG. It is built only by
// Compile and never mutated afterwards (short of Clear, which discards
// everything).
type Graph struct {
	Nodes       []*Node
	Targets     []*Target
	Meta        map[string]string
	nodeByName  map[string]*Node
	targetByID  map[uint16]*Target
	targetByName map[string]*Target
}

// NodeByName returns the node with the given name, or nil.
func (g *Graph) NodeByName(name string) *Node { return g.nodeByName[name] }

// NodeByID returns the node with the given id, or nil if out of range.
func (g *Graph) NodeByID(id uint16) *Node {
	if int(id) >= len(g.Nodes) {
		return nil
	}
	return g.Nodes[id]
}

// TargetByName returns the compiled target with the given name, or nil.
func (g *Graph) TargetByName(name string) *Target { return g.targetByName[name] }

// TargetByID returns the compiled target rooted at the node with the given
// id, or nil.
func (g *Graph) TargetByID(id uint16) *Target { return g.targetByID[id] }

// Clear discards all nodes, targets and metadata, returning the Graph to
// its zero state.
func (g *Graph) Clear() { *g = Graph{} }

// Compile walks each target Spec's input graph via DFS, assigns dense node
// ids in DFS post-order (every input before its consumer), computes each target's topological forward
// chain (root last, deduplicated), derives NeedGrad and InputFork, and
// returns the resulting immutable Graph.
//
// onHeap has no distinct behaviour in this port: spec.md §9 replaces the
// original's raw-pointer/heap-ownership split with an arena the Graph
// itself owns outright, so Compile always takes ownership of the compiled
// Nodes regardless of onHeap. The parameter is kept to mirror the
// original's signature and intent (a caller passing false is asserting it
// will keep its own Specs alive, which remains harmless here since Specs
// and compiled Nodes are independent values).
func Compile(targets []*Spec, onHeap bool) (*Graph, error) {
	_ = onHeap

	g := &Graph{
		Meta:        map[string]string{},
		nodeByName:  map[string]*Node{},
		targetByID:  map[uint16]*Target{},
		targetByName: map[string]*Target{},
	}

	specIndex := map[*Spec]uint16{}
	var order []*Spec

	var dfs func(s *Spec, visiting map[*Spec]bool) error
	dfs = func(s *Spec, visiting map[*Spec]bool) error {
		if _, ok := specIndex[s]; ok {
			return nil
		}
		if visiting[s] {
			return fmt.Errorf("graph: cycle detected at node %q", s.Name)
		}
		visiting[s] = true
		for _, in := range s.Inputs {
			if err := dfs(in, visiting); err != nil {
				return err
			}
		}
		visiting[s] = false
		specIndex[s] = uint16(len(order))
		order = append(order, s)
		return nil
	}

	for _, t := range targets {
		if err := dfs(t, map[*Spec]bool{}); err != nil {
			return nil, err
		}
	}

	// Build nodes, validating/auto-generating names.
	seenNames := map[string]bool{}
	for i, s := range order {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("n%d", i)
		}
		if !nameRe.MatchString(name) {
			return nil, fmt.Errorf("graph: invalid node name %q", name)
		}
		if seenNames[name] {
			return nil, fmt.Errorf("graph: duplicate node name %q", name)
		}
		seenNames[name] = true

		inputs := make([]uint16, len(s.Inputs))
		for j, in := range s.Inputs {
			inputs[j] = specIndex[in]
		}

		node := &Node{
			Name:       name,
			ID:         uint16(i),
			Inputs:     inputs,
			NodeType:   s.NodeType,
			TensorType: s.TensorType,
			Shape:      s.Shape,
			Init:       s.Init,
			NeedGrad:   s.NeedGrad,
			OpClass:    s.OpClass,
		}
		g.Nodes = append(g.Nodes, node)
		g.nodeByName[name] = node
	}

	// Per-target forward chains (topological, root last, deduplicated).
	for _, t := range targets {
		rootID := specIndex[t]
		forward, err := forwardChain(g, rootID)
		if err != nil {
			return nil, err
		}
		target := &Target{Name: g.Nodes[rootID].Name, RootID: rootID, Forward: forward}
		g.Targets = append(g.Targets, target)
		g.targetByID[rootID] = target
		g.targetByName[target.Name] = target
	}

	computeInputFork(g)
	computeNeedGrad(g)

	return g, nil
}

// forwardChain returns the topological order (root last) of every node
// reachable from rootID, deduplicated. The arena is already acyclic
// (Compile's DFS rejects cycles), and forwardChain runs its own per-target
// post-order DFS over it rather than sorting the reachable id set.
func forwardChain(g *Graph, rootID uint16) ([]uint16, error) {
	visited := map[uint16]bool{}
	var order []uint16
	var visit func(id uint16) error
	visit = func(id uint16) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		node := g.Nodes[id]
		for _, in := range node.Inputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		order = append(order, id)
		return nil
	}
	if err := visit(rootID); err != nil {
		return nil, err
	}
	return order, nil
}

// computeInputFork sets InputFork on every node that has two or more
// distinct consumers across the whole compiled graph (spec.md §4.4 step 4).
func computeInputFork(g *Graph) {
	consumers := map[uint16]map[uint16]bool{}
	for _, node := range g.Nodes {
		for _, in := range node.Inputs {
			if consumers[in] == nil {
				consumers[in] = map[uint16]bool{}
			}
			consumers[in][node.ID] = true
		}
	}
	for _, node := range g.Nodes {
		node.InputFork = len(consumers[node.ID]) >= 2
	}
}

// computeNeedGrad finalises each node's NeedGrad: a node ends up needing
// gradient only if it declared need_grad at construction AND it is reached
// by the backward pass of at least one target, i.e. some node consuming it
// (directly or transitively, all the way back to the target's root) is
// itself on that target's active backward chain (spec.md §4.4 step 3).
func computeNeedGrad(g *Graph) {
	declared := make([]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		declared[i] = n.NeedGrad
	}

	final := make([]bool, len(g.Nodes))
	for _, t := range g.Targets {
		active := make([]bool, len(g.Nodes))
		// A target's root only starts the backward pass if it is itself a
		// computed node (it has inputs to propagate into). A root with no
		// inputs is a standalone leaf target — e.g. a param requested as
		// its own target with nothing consuming it — and must not be
		// treated as reached by backward just for being a target.
		if len(g.Nodes[t.RootID].Inputs) > 0 {
			active[t.RootID] = true
		}
		for i := len(t.Forward) - 1; i >= 0; i-- {
			id := t.Forward[i]
			node := g.Nodes[id]
			if !active[id] {
				continue
			}
			if declared[id] {
				final[id] = true
			}
			for _, in := range node.Inputs {
				active[in] = true
			}
		}
	}

	for i, n := range g.Nodes {
		n.NeedGrad = final[i]
	}
}
