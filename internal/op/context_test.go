package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/shape"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// addOp is a minimal binary elementwise-add kernel used only to exercise
// the registry and OpContext chain-driving logic; it is not a real
// compute kernel and lives in a _test.go file for that reason.
type addOp struct {
	Base
	collab       *Collaborators
	node         *graph.Node
	xNode, yNode *graph.Node
	x, y, z      *tensor.Tensor[float32]
}

func (o *addOp) ClassName() string { return "Add" }

func (o *addOp) Init(c *Collaborators) error {
	o.collab = c
	o.node = c.Node
	o.Base.Forwarder = o
	return nil
}

func (o *addOp) InitForward() error {
	o.xNode = o.collab.Graph.NodeByID(o.node.Inputs[0])
	o.yNode = o.collab.Graph.NodeByID(o.node.Inputs[1])
	o.x = o.collab.GetPtrTSR(o.xNode)
	o.y = o.collab.GetPtrTSR(o.yNode)
	o.z = o.collab.InitHiddenTSR(o.node, o.x.Shape())
	return nil
}

func (o *addOp) InitBackward() error {
	o.collab.InitGradTSR(o.xNode, o.x.Shape())
	o.collab.InitGradTSR(o.yNode, o.y.Shape())
	return nil
}

func (o *addOp) Forward() error {
	xd, yd, zd := o.x.Data(), o.y.Data(), o.z.Data()
	for i := range zd {
		zd[i] = xd[i] + yd[i]
	}
	return nil
}

func (o *addOp) Backward() error {
	gz := o.collab.GetGradPtrTSR(o.node)
	if gz == nil {
		return nil
	}
	if gx := o.collab.GetGradPtrTSR(o.xNode); gx != nil {
		gxd, gzd := gx.Data(), gz.Data()
		for i := range gzd {
			gxd[i] += gzd[i]
		}
	}
	if gy := o.collab.GetGradPtrTSR(o.yNode); gy != nil {
		gyd, gzd := gy.Data(), gz.Data()
		for i := range gzd {
			gyd[i] += gzd[i]
		}
	}
	return nil
}

func (o *addOp) GetPullRequest(pr *tensor.PullRequest) error { return nil }

// buildAddGraph wires x + y -> sum, all shape (1): the "sum" node doubles
// as the loss target, and OpContext's loss gradient is always a 1-element
// tensor, so every node reachable from it is kept scalar-shaped here to
// stay dimensionally consistent.
func buildAddGraph(t *testing.T) *graph.Graph {
	t.Helper()
	x := &graph.Spec{Name: "x", NodeType: graph.NodeInstance, TensorType: tensor.KindTSR, Shape: shape.New(1), NeedGrad: true}
	y := &graph.Spec{Name: "y", NodeType: graph.NodeInstance, TensorType: tensor.KindTSR, Shape: shape.New(1), NeedGrad: true}
	sum := &graph.Spec{Name: "sum", NodeType: graph.NodeHidden, TensorType: tensor.KindTSR, Shape: shape.New(1), Inputs: []*graph.Spec{x, y}, NeedGrad: true, OpClass: "contextTestAdd"}

	g, err := graph.Compile([]*graph.Spec{sum}, true)
	require.NoError(t, err)
	return g
}

func newAddCollaborators() *Collaborators {
	return &Collaborators{
		Param:            tensor.NewMap(),
		Hidden:           tensor.NewMap(),
		Ptr:              tensor.NewMap(),
		Grad:             tensor.NewMap(),
		GradPtr:          tensor.NewMap(),
		OverwrittenParam: tensor.NewMap(),
		OverwrittenPtr:   tensor.NewMap(),
	}
}

func TestOpContextForwardAndBackward(t *testing.T) {
	Register("contextTestAdd", func() Operator { return &addOp{} })

	g := buildAddGraph(t)
	collab := newAddCollaborators()
	collab.Graph = g

	x := tensor.New[float32](shape.New(1))
	copy(x.Data(), []float32{4})
	y := tensor.New[float32](shape.New(1))
	copy(y.Data(), []float32{10})
	collab.Ptr.Set("x", tensor.FromTsr(x))
	collab.Ptr.Set("y", tensor.FromTsr(y))

	ctx, err := NewOpContext(g, []string{"sum"}, "sum", collab)
	require.NoError(t, err)

	require.NoError(t, ctx.InitForward())
	require.NoError(t, ctx.Forward())

	sum := collab.GetPtrTSR(g.NodeByName("sum"))
	require.NotNil(t, sum)
	assert.Equal(t, []float32{14}, sum.Data())

	require.NoError(t, ctx.InitBackward())
	require.NoError(t, ctx.Backward())

	gx, ok := collab.Grad.Get("x")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, gx.Tsr.Data())

	gy, ok := collab.Grad.Get("y")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, gy.Tsr.Data())
}

func TestOpContextBackwardZeroesBeforeAccumulating(t *testing.T) {
	Register("contextTestAddZero", func() Operator { return &addOp{} })

	x := &graph.Spec{Name: "x2", NodeType: graph.NodeInstance, TensorType: tensor.KindTSR, Shape: shape.New(1), NeedGrad: true}
	y := &graph.Spec{Name: "y2", NodeType: graph.NodeInstance, TensorType: tensor.KindTSR, Shape: shape.New(1), NeedGrad: true}
	sum := &graph.Spec{Name: "sum2", NodeType: graph.NodeHidden, TensorType: tensor.KindTSR, Shape: shape.New(1), Inputs: []*graph.Spec{x, y}, NeedGrad: true, OpClass: "contextTestAddZero"}
	g, err := graph.Compile([]*graph.Spec{sum}, true)
	require.NoError(t, err)

	collab := newAddCollaborators()
	collab.Graph = g
	xt := tensor.New[float32](shape.New(1))
	yt := tensor.New[float32](shape.New(1))
	collab.Ptr.Set("x2", tensor.FromTsr(xt))
	collab.Ptr.Set("y2", tensor.FromTsr(yt))

	ctx, err := NewOpContext(g, []string{"sum2"}, "sum2", collab)
	require.NoError(t, err)
	require.NoError(t, ctx.InitForward())
	require.NoError(t, ctx.InitBackward())

	require.NoError(t, ctx.Backward())
	require.NoError(t, ctx.Backward())

	gx, _ := collab.Grad.Get("x2")
	assert.Equal(t, []float32{1}, gx.Tsr.Data())
}

func TestOpContextUnknownTargetErrors(t *testing.T) {
	g := buildAddGraph(t)
	collab := newAddCollaborators()
	collab.Graph = g
	_, err := NewOpContext(g, []string{"doesNotExist"}, "sum", collab)
	assert.Error(t, err)
}
