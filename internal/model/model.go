package model

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/dreamware/fluxgraph/internal/graph"
	"github.com/dreamware/fluxgraph/internal/tensor"
)

// Optimizer is the subset of the optimiser protocol (spec.md §4.6) Model
// needs to fold a gradient TensorMap into its parameters. It is declared
// here, rather than imported from internal/optimizer, so optimiser
// implementations satisfy it structurally without this package depending
// on that one.
type Optimizer interface {
	Update(grad *tensor.Map) error
}

// Model owns one shard's parameter TensorMap and the per-name read/write
// locks that make Pull and Update safe under concurrent access (spec.md
// §4.5, §5 "per-name RW locks ... AnyMap").
type Model struct {
	params *tensor.Map
	locks  map[string]*sync.RWMutex
}

// New returns an empty Model.
func New() *Model {
	return &Model{params: tensor.NewMap(), locks: map[string]*sync.RWMutex{}}
}

// Params returns the underlying parameter TensorMap. Callers holding no
// lock of their own must not mutate it concurrently with Pull/Update.
func (m *Model) Params() *tensor.Map { return m.params }

// InitLock creates one RWMutex per PARAM node in g, replacing any existing
// lock set. Must be called once before Pull/Update are used concurrently.
func (m *Model) InitLock(g *graph.Graph) {
	m.locks = make(map[string]*sync.RWMutex, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.NodeType == graph.NodeParam {
			m.locks[n.Name] = &sync.RWMutex{}
		}
	}
}

func (m *Model) lockFor(name string) *sync.RWMutex {
	l, ok := m.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		m.locks[name] = l
	}
	return l
}

// InitParam allocates and fills every PARAM node's tensor per its
// GraphNode initialiser descriptor (spec.md §4.5's table), using rng for
// every stochastic variant.
func (m *Model) InitParam(g *graph.Graph, rng *rand.Rand) error {
	for _, n := range g.Nodes {
		if n.NodeType != graph.NodeParam {
			continue
		}
		v, err := initValue(n, rng)
		if err != nil {
			return fmt.Errorf("model: init param %q: %w", n.Name, err)
		}
		m.params.Set(n.Name, v)
	}
	return nil
}

func initValue(n *graph.Node, rng *rand.Rand) (tensor.Value, error) {
	switch n.TensorType {
	case tensor.KindTSR:
		t := tensor.New[float32](n.Shape)
		fillDense(t.Data(), n.Shape, n.Init, rng)
		return tensor.FromTsr(t), nil
	case tensor.KindTSRI:
		t := tensor.New[int32](n.Shape)
		fillInt(t.Data(), n.Init, rng)
		return tensor.FromTsri(t), nil
	case tensor.KindSRM:
		return tensor.FromSrm(tensor.NewSRM(n.Shape.TotalDim(), n.Init)), nil
	default:
		return tensor.Value{}, fmt.Errorf("unsupported param tensor type %v", n.TensorType)
	}
}

// fanInOut derives the (fan_in, fan_out) pair the LeCun/Xavier/He scaled
// initialisers need from a parameter's Shape: for rank ≤ 1 both equal the
// total element count; for rank ≥ 2 the leading dimension is read as
// fan_out and the product of the rest as fan_in, matching the conventional
// "[out_features, in_features]" weight-matrix layout.
func fanInOut(sh interface {
	Rank() int
	Dim(int) int
	TotalDim() int
}) (fanIn, fanOut int) {
	switch sh.Rank() {
	case 0:
		return 1, 1
	case 1:
		n := sh.Dim(0)
		return n, n
	default:
		fanOut = sh.Dim(0)
		fanIn = sh.TotalDim() / fanOut
		return fanIn, fanOut
	}
}

func fillDense(data []float32, sh interface {
	Rank() int
	Dim(int) int
	TotalDim() int
}, init tensor.Initializer, rng *rand.Rand) {
	fanIn, fanOut := fanInOut(sh)
	switch init.Type {
	case tensor.InitZeros:
		// already zero
	case tensor.InitOnes:
		setAll(data, 1)
	case tensor.InitConstant:
		setAll(data, float32(init.Param0))
	case tensor.InitRand:
		fillU(data, rng, init.Param0, init.Param1)
	case tensor.InitRandn:
		fillN(data, rng, init.Param0, init.Param1)
	case tensor.InitRandLecun:
		b := 1 / math.Sqrt(float64(fanIn))
		fillU(data, rng, -b, b)
	case tensor.InitRandnLecun:
		fillN(data, rng, 0, 1/math.Sqrt(float64(fanIn)))
	case tensor.InitRandXavier:
		b := math.Sqrt(6) / math.Sqrt(float64(fanIn+fanOut))
		fillU(data, rng, -b, b)
	case tensor.InitRandnXavier:
		fillN(data, rng, 0, math.Sqrt(2)/math.Sqrt(float64(fanIn+fanOut)))
	case tensor.InitRandHe:
		b := math.Sqrt(6) / math.Sqrt(float64(fanIn))
		fillU(data, rng, -b, b)
	case tensor.InitRandnHe:
		fillN(data, rng, 0, math.Sqrt(2)/math.Sqrt(float64(fanIn)))
	case tensor.InitArange:
		for i := range data {
			data[i] = float32(i)
		}
	case tensor.InitRandInt:
		// RAND_INT targets integer tensors; dense float params ignore it.
	}
}

func fillInt(data []int32, init tensor.Initializer, rng *rand.Rand) {
	switch init.Type {
	case tensor.InitArange:
		for i := range data {
			data[i] = int32(i)
		}
	case tensor.InitRandInt:
		lo, hi := int64(init.Param0), int64(init.Param1)
		span := hi - lo
		for i := range data {
			if span <= 0 {
				data[i] = int32(lo)
				continue
			}
			data[i] = int32(lo + rng.Int63n(span))
		}
	case tensor.InitConstant:
		c := int32(init.Param0)
		for i := range data {
			data[i] = c
		}
	}
}

func setAll(data []float32, v float32) {
	for i := range data {
		data[i] = v
	}
}

func fillU(data []float32, rng *rand.Rand, lo, hi float64) {
	for i := range data {
		data[i] = float32(lo + rng.Float64()*(hi-lo))
	}
}

func fillN(data []float32, rng *rand.Rand, mu, sigma float64) {
	for i := range data {
		data[i] = float32(mu + rng.NormFloat64()*sigma)
	}
}

// Pull copies every requested TSR and the requested SRM rows into
// remote, generating missing SRM rows from their initialiser when
// pr.IsTrain is true (spec.md §4.5 "Pull"). Each touched parameter's read
// lock is held only for the duration of its own copy.
func (m *Model) Pull(rng *rand.Rand, pr *tensor.PullRequest, remote *tensor.Map) error {
	for name := range pr.TsrSet {
		v, ok := m.params.Get(name)
		if !ok || v.Kind != tensor.KindTSR {
			return fmt.Errorf("model: pull: unknown tsr param %q", name)
		}
		lock := m.lockFor(name)
		lock.RLock()
		remote.Set(name, tensor.FromTsr(v.Tsr.Clone()))
		lock.RUnlock()
	}

	for name, ids := range pr.SrmMap {
		v, ok := m.params.Get(name)
		if !ok || v.Kind != tensor.KindSRM {
			return fmt.Errorf("model: pull: unknown srm param %q", name)
		}
		lock := m.lockFor(name)
		out := tensor.NewSRM(v.Srm.Col(), v.Srm.Initializer())
		lock.RLock()
		for id := range ids {
			if pr.IsTrain {
				out.Assign(id, v.Srm.GetRow(rng, id))
			} else if row := v.Srm.GetRowNoInit(id); row != nil {
				out.Assign(id, row)
			}
		}
		lock.RUnlock()
		remote.Set(name, tensor.FromSrm(out))
	}

	return nil
}

// Update folds grad into the local parameters via opt: a TSR gradient
// overwrites via the optimiser's update rule; an SRM gradient merges
// (assumed already locally aggregated) the same way. The write lock for
// each touched name is held for the duration of its update (spec.md §4.5
// "Update").
func (m *Model) Update(grad *tensor.Map, opt Optimizer) error {
	names := grad.Names()
	locked := make([]*sync.RWMutex, 0, len(names))
	for _, name := range names {
		lock := m.lockFor(name)
		lock.Lock()
		locked = append(locked, lock)
	}
	defer func() {
		for _, lock := range locked {
			lock.Unlock()
		}
	}()

	return opt.Update(grad)
}
