package op

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// profileEnv enables per-operator timing when set to "1" (spec.md §4.4
// profiling hook, originally DEEPX_OP_CONTEXT_ENABLE_PROFILE).
const profileEnv = "DEEPX_OP_CONTEXT_ENABLE_PROFILE"

// OpContext owns a compiled operator chain for a set of targets plus one
// designated loss target, and drives its init/forward/backward/pull-request
// phases (spec.md §4.4).
//
// The forward chain is the union, in first-occurrence order, of every
// bound target's own topological forward chain: a node shared by two
// targets runs once, at the position it was first reached. The backward
// chain is the reverse of the loss target's own forward chain alone —
// gradients only ever flow back from the loss, not from every bound
// target.
type OpContext struct {
	graph    *graph.Graph
	collab   *Collaborators
	lossName string

	forward  []uint16
	backward []uint16
	ops      map[uint16]Operator

	profile  bool
	timings  map[string]time.Duration
}

// NewOpContext binds targetNames (evaluated, in order, for their union
// forward chain) and lossName (whose own forward chain, reversed, becomes
// the backward chain) against g, constructing one Operator per Hidden node
// encountered along the way via the package registry.
func NewOpContext(g *graph.Graph, targetNames []string, lossName string, collab *Collaborators) (*OpContext, error) {
	c := &OpContext{
		graph:    g,
		collab:   collab,
		lossName: lossName,
		ops:      map[uint16]Operator{},
		profile:  os.Getenv(profileEnv) == "1",
		timings:  map[string]time.Duration{},
	}

	seen := map[uint16]bool{}
	for _, name := range targetNames {
		target := g.TargetByName(name)
		if target == nil {
			return nil, fmt.Errorf("op: unknown target %q", name)
		}
		for _, id := range target.Forward {
			if seen[id] {
				continue
			}
			seen[id] = true
			c.forward = append(c.forward, id)
		}
	}

	lossTarget := g.TargetByName(lossName)
	if lossTarget == nil {
		return nil, fmt.Errorf("op: unknown loss target %q", lossName)
	}
	c.backward = make([]uint16, len(lossTarget.Forward))
	for i, id := range lossTarget.Forward {
		c.backward[len(lossTarget.Forward)-1-i] = id
	}

	for _, id := range c.forward {
		node := g.NodeByID(id)
		if node.NodeType != graph.NodeHidden || node.OpClass == "" {
			continue
		}
		instance, err := New(node.OpClass)
		if err != nil {
			return nil, fmt.Errorf("op: node %q: %w", node.Name, err)
		}
		nodeCollab := *collab
		nodeCollab.Node = node
		if err := instance.Init(&nodeCollab); err != nil {
			return nil, fmt.Errorf("op: node %q: init: %w", node.Name, err)
		}
		c.ops[id] = instance
	}

	return c, nil
}

func (c *OpContext) timed(class string, fn func() error) error {
	if !c.profile {
		return fn()
	}
	start := time.Now()
	err := fn()
	c.timings[class] += time.Since(start)
	return err
}

// InitForward calls InitForward on every operator along the forward chain,
// in order, so each operator's output shape and storage are settled before
// any Forward runs.
func (c *OpContext) InitForward() error {
	for _, id := range c.forward {
		instance, ok := c.ops[id]
		if !ok {
			continue
		}
		node := c.graph.NodeByID(id)
		if err := c.timed(instance.ClassName(), instance.InitForward); err != nil {
			return fmt.Errorf("op: node %q: init forward: %w", node.Name, err)
		}
	}
	return nil
}

// InitPredict is InitForward's serving-time counterpart.
func (c *OpContext) InitPredict() error {
	for _, id := range c.forward {
		instance, ok := c.ops[id]
		if !ok {
			continue
		}
		node := c.graph.NodeByID(id)
		if err := c.timed(instance.ClassName(), instance.InitPredict); err != nil {
			return fmt.Errorf("op: node %q: init predict: %w", node.Name, err)
		}
	}
	return nil
}

// InitBackward reserves a single-element gradient tensor for the loss
// target, then calls InitBackward on every operator along the backward
// chain (i.e. in reverse forward order), matching gradient allocation to
// the order gradients actually flow.
func (c *OpContext) InitBackward() error {
	lossTensor := tensor.New[float32](shape.New(1))
	c.collab.Grad.Set(c.lossName, tensor.FromTsr(lossTensor))
	c.collab.GradPtr.Set(c.lossName, tensor.FromTsr(lossTensor))

	for _, id := range c.backward {
		instance, ok := c.ops[id]
		if !ok {
			continue
		}
		node := c.graph.NodeByID(id)
		if err := c.timed(instance.ClassName(), instance.InitBackward); err != nil {
			return fmt.Errorf("op: node %q: init backward: %w", node.Name, err)
		}
	}
	return nil
}

// Forward runs every operator along the forward chain, in order.
func (c *OpContext) Forward() error {
	for _, id := range c.forward {
		instance, ok := c.ops[id]
		if !ok {
			continue
		}
		node := c.graph.NodeByID(id)
		if err := c.timed(instance.ClassName(), instance.Forward); err != nil {
			return fmt.Errorf("op: node %q: forward: %w", node.Name, err)
		}
	}
	return nil
}

// Predict is Forward's serving-time counterpart.
func (c *OpContext) Predict() error {
	for _, id := range c.forward {
		instance, ok := c.ops[id]
		if !ok {
			continue
		}
		node := c.graph.NodeByID(id)
		if err := c.timed(instance.ClassName(), instance.Predict); err != nil {
			return fmt.Errorf("op: node %q: predict: %w", node.Name, err)
		}
	}
	return nil
}

// Backward zeroes every gradient this context owns (including the loss
// gradient slot), seeds the loss gradient with 1, then runs every operator
// along the backward chain, in order. Operators accumulate into their
// inputs' gradients rather than overwrite them, which is why the zeroing
// happens once here rather than per operator.
func (c *OpContext) Backward() error {
	c.collab.Grad.Range(func(_ string, v tensor.Value) {
		switch v.Kind {
		case tensor.KindTSR:
			v.Tsr.Zeros()
		case tensor.KindSRM:
			v.Srm.Zeros()
		}
	})

	lossGrad, ok := c.collab.Grad.Get(c.lossName)
	if !ok || lossGrad.Kind != tensor.KindTSR {
		return fmt.Errorf("op: loss target %q has no reserved gradient tensor", c.lossName)
	}
	lossGrad.Tsr.Fill(1)

	for _, id := range c.backward {
		instance, ok := c.ops[id]
		if !ok {
			continue
		}
		node := c.graph.NodeByID(id)
		if err := c.timed(instance.ClassName(), instance.Backward); err != nil {
			return fmt.Errorf("op: node %q: backward: %w", node.Name, err)
		}
	}
	return nil
}

// GetPullRequest clears pr, then asks every operator along the forward
// chain, in order, to append the parameter entries it needs.
func (c *OpContext) GetPullRequest(pr *tensor.PullRequest) error {
	pr.Clear()
	for _, id := range c.forward {
		instance, ok := c.ops[id]
		if !ok {
			continue
		}
		node := c.graph.NodeByID(id)
		if err := instance.GetPullRequest(pr); err != nil {
			return fmt.Errorf("op: node %q: get pull request: %w", node.Name, err)
		}
	}
	return nil
}

// ProfileReport returns each operator class's accumulated time across this
// context's lifetime, sorted slowest first. It is empty unless
// DEEPX_OP_CONTEXT_ENABLE_PROFILE=1 was set when the context was created.
func (c *OpContext) ProfileReport() []ProfileEntry {
	entries := make([]ProfileEntry, 0, len(c.timings))
	for class, d := range c.timings {
		entries = append(entries, ProfileEntry{Class: class, Elapsed: d})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Elapsed > entries[j].Elapsed })
	return entries
}

// ProfileEntry is one operator class's accumulated time in a profile
// report.
type ProfileEntry struct {
	Class   string
	Elapsed time.Duration
}
