package op

import (
	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// Collaborators bundles the TensorMaps an Operator reads from and writes
// into across its lifecycle (spec.md §4.4 "Init(graph, node, param,
// hidden, ptr, grad, grad_ptr, overwritten_param, overwritten_ptr)").
// Param/Hidden/Grad own their tensors; Ptr/GradPtr hold pointers/aliases
// operators use to read without copying; Overwritten* track which entries
// a view operator has aliased in place. OpContext does not read them.
type Collaborators struct {
	Graph *graph.Graph
	Node  *graph.Node

	Param  *tensor.Map
	Hidden *tensor.Map
	Ptr    *tensor.Map

	Grad     *tensor.Map
	GradPtr  *tensor.Map

	OverwrittenParam *tensor.Map
	OverwrittenPtr   *tensor.Map
}

// Operator is the protocol every dataflow node's compute kernel satisfies
// (spec.md §4.4). Forward/Backward only ever run after the matching
// InitForward/InitBackward call for the same node.
type Operator interface {
	// ClassName identifies the operator's registered constructor name.
	ClassName() string

	// Init binds c for the operator's whole lifetime.
	Init(c *Collaborators) error

	// InitForward looks up input pointers in c.Ptr, computes the output
	// shape, and installs an owned output tensor into c.Hidden plus a
	// pointer into c.Ptr.
	InitForward() error

	// InitPredict defaults to InitForward when an operator has no
	// separate serving-time behaviour.
	InitPredict() error

	// InitBackward allocates gradient tensors/SRMs in c.Grad for every
	// input that needs a gradient, installing pointers in c.GradPtr.
	InitBackward() error

	// Forward reads inputs from c.Ptr and writes the output tensor.
	Forward() error

	// Predict defaults to Forward when an operator has no separate
	// serving-time behaviour.
	Predict() error

	// Backward accumulates (adds) into input gradients from the upstream
	// gradient, if any. Gradients are zeroed once per pass by OpContext,
	// not by the operator.
	Backward() error

	// GetPullRequest adds this operator's parameter-type inputs to pr:
	// dense names to pr.TsrSet, sparse ids to pr.SrmMap[name]. Operators
	// with no parameter inputs contribute nothing.
	GetPullRequest(pr *tensor.PullRequest) error
}

// InitHiddenTSR installs a freshly-shaped, owned dense tensor for node into
// c.Hidden and a pointer to it into c.Ptr, returning the tensor so the
// caller can fill it in. Mirrors original_source op_impl.h's
// OpImpl::InitHiddenTSR.
func (c *Collaborators) InitHiddenTSR(node *graph.Node, sh shape.Shape) *tensor.Tensor[float32] {
	t := tensor.New[float32](sh)
	c.Hidden.Set(node.Name, tensor.FromTsr(t))
	c.Ptr.Set(node.Name, tensor.FromTsr(t))
	return t
}

// GetPtrTSR returns the dense tensor previously installed into c.Ptr for
// node, or nil if node has no dense entry there.
func (c *Collaborators) GetPtrTSR(node *graph.Node) *tensor.Tensor[float32] {
	v, ok := c.Ptr.Get(node.Name)
	if !ok || v.Kind != tensor.KindTSR {
		return nil
	}
	return v.Tsr
}

// InitGradTSR allocates a new zero-valued dense gradient tensor for
// node if node.NeedGrad, registers it in c.GradPtr, and returns it; it
// returns nil for a node that does not need a gradient, so callers can
// skip accumulating into it. Mirrors OpImpl::InitGradTSR.
func (c *Collaborators) InitGradTSR(node *graph.Node, sh shape.Shape) *tensor.Tensor[float32] {
	if !node.NeedGrad {
		return nil
	}
	t := tensor.New[float32](sh)
	c.Grad.Set(node.Name, tensor.FromTsr(t))
	c.GradPtr.Set(node.Name, tensor.FromTsr(t))
	return t
}

// GetGradPtrTSR returns node's previously allocated gradient tensor, or
// nil if node does not need a gradient or none was allocated yet.
func (c *Collaborators) GetGradPtrTSR(node *graph.Node) *tensor.Tensor[float32] {
	if !node.NeedGrad {
		return nil
	}
	v, ok := c.GradPtr.Get(node.Name)
	if !ok || v.Kind != tensor.KindTSR {
		return nil
	}
	return v.Tsr
}

// Base implements the InitPredict/Predict "defaults to Forward" halves of
// the protocol so concrete operators only need to embed Base and define
// the remaining seven methods.
type Base struct {
	Forwarder interface {
		InitForward() error
		Forward() error
	}
}

// InitPredict defaults to InitForward.
func (b Base) InitPredict() error { return b.Forwarder.InitForward() }

// Predict defaults to Forward.
func (b Base) Predict() error { return b.Forwarder.Forward() }
