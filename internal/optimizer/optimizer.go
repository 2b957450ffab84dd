package optimizer

import (
	"fmt"
	"math"

	"github.com/dreamware/fluxgraph/internal/tensor"
)

// Rule selects the update formula an Optimizer applies. Only AdaGrad's
// formula is normatively specified (spec.md §8 S3); the rest are
// simplified rules that preserve the slot-count contract of spec.md §4.6's
// table.
type Rule int

const (
	RuleSGD Rule = iota
	RuleAdaGrad
	RuleAdam
	RuleFTRL
)

// NumSlots returns how many auxiliary tensors/SRMs a parameter under r
// carries (spec.md §4.6: "SGD-like rules maintain no slot; AdaGrad and
// momentum keep 1 slot; Adam and FTRL keep 2").
func (r Rule) NumSlots() int {
	switch r {
	case RuleSGD:
		return 0
	case RuleAdaGrad:
		return 1
	case RuleAdam, RuleFTRL:
		return 2
	default:
		return 0
	}
}

// clipBound is the gradient clipping range spec.md §4.6 requires before
// every update.
const clipBound = 20

func clip(g float32) float32 {
	if g > clipBound {
		return clipBound
	}
	if g < -clipBound {
		return -clipBound
	}
	return g
}

// Config holds the per-optimiser hyperparameters parsed by InitConfig.
// Field meaning is rule-dependent: Alpha is always the learning rate; Beta
// is AdaGrad's epsilon, Adam's beta1 or FTRL's beta; Beta2 is Adam's beta2,
// or for FTRL both the L1 threshold and the L2 regularisation weight.
type Config struct {
	Rule  Rule
	Alpha float64
	Beta  float64
	Beta2 float64
}

// InitConfig parses kv into a Config, returning an error (spec.md §7
// ConfigError: "Returns false from InitConfig") if a value does not parse
// or alpha is not positive. Missing keys keep their defaults (alpha 0.01,
// beta 1e-8, beta2 0.999).
func InitConfig(rule Rule, kv map[string]string) (Config, error) {
	cfg := Config{Rule: rule, Alpha: 0.01, Beta: 1e-8, Beta2: 0.999}
	if v, ok := kv["alpha"]; ok {
		if _, err := fmt.Sscanf(v, "%g", &cfg.Alpha); err != nil {
			return Config{}, fmt.Errorf("optimizer: bad alpha %q: %w", v, err)
		}
	}
	if v, ok := kv["beta"]; ok {
		if _, err := fmt.Sscanf(v, "%g", &cfg.Beta); err != nil {
			return Config{}, fmt.Errorf("optimizer: bad beta %q: %w", v, err)
		}
	}
	if v, ok := kv["beta2"]; ok {
		if _, err := fmt.Sscanf(v, "%g", &cfg.Beta2); err != nil {
			return Config{}, fmt.Errorf("optimizer: bad beta2 %q: %w", v, err)
		}
	}
	if cfg.Alpha <= 0 {
		return Config{}, fmt.Errorf("optimizer: alpha must be positive, got %g", cfg.Alpha)
	}
	return cfg, nil
}

// Optimizer binds a parameter TensorMap and owns its per-parameter slot
// state, updating parameters from gradients under Config.Rule (spec.md
// §4.6).
type Optimizer struct {
	cfg    Config
	params *tensor.Map

	tsrSlots map[string][]*tensor.Tensor[float32]
	srmSlots map[string][]*tensor.SparseRowMatrix
}

// New binds params under cfg. InitParam must be called once before Update.
func New(cfg Config, params *tensor.Map) *Optimizer {
	return &Optimizer{
		cfg:      cfg,
		params:   params,
		tsrSlots: map[string][]*tensor.Tensor[float32]{},
		srmSlots: map[string][]*tensor.SparseRowMatrix{},
	}
}

// InitParam creates Rule.NumSlots() zero-valued slots for every parameter
// currently in the bound TensorMap. SRM slots start empty and grow lazily
// as gradient updates touch new ids.
func (o *Optimizer) InitParam() {
	n := o.cfg.Rule.NumSlots()
	o.params.Range(func(name string, v tensor.Value) {
		switch v.Kind {
		case tensor.KindTSR:
			slots := make([]*tensor.Tensor[float32], n)
			for i := range slots {
				slots[i] = tensor.New[float32](v.Tsr.Shape())
			}
			o.tsrSlots[name] = slots
		case tensor.KindSRM:
			slots := make([]*tensor.SparseRowMatrix, n)
			for i := range slots {
				slots[i] = tensor.NewSRM(v.Srm.Col(), tensor.Initializer{Type: tensor.InitZeros})
			}
			o.srmSlots[name] = slots
		}
	})
}

// Update folds grad into the bound parameters, dispatching on the static
// (param-kind, grad-kind) pair spec.md §4.6 names: TSR×TSR, TSR×SRM,
// SRM×SRM. SRM×TSR is not a supported pairing.
func (o *Optimizer) Update(grad *tensor.Map) error {
	for _, name := range grad.Names() {
		gv, _ := grad.Get(name)
		pv, ok := o.params.Get(name)
		if !ok {
			return fmt.Errorf("optimizer: update: unknown parameter %q", name)
		}

		switch {
		case pv.Kind == tensor.KindTSR && gv.Kind == tensor.KindTSR:
			o.updateDenseDense(name, pv.Tsr, gv.Tsr)
		case pv.Kind == tensor.KindTSR && gv.Kind == tensor.KindSRM:
			o.updateDenseSparse(name, pv.Tsr, gv.Srm)
		case pv.Kind == tensor.KindSRM && gv.Kind == tensor.KindSRM:
			o.updateSparseSparse(name, pv.Srm, gv.Srm)
		default:
			return fmt.Errorf("optimizer: update: unsupported pairing param=%v grad=%v for %q", pv.Kind, gv.Kind, name)
		}
	}
	return nil
}

func (o *Optimizer) updateDenseDense(name string, param, grad *tensor.Tensor[float32]) {
	slots := o.tsrSlots[name]
	pd := param.Data()
	gd := grad.Data()
	for i := range pd {
		pd[i] = o.step(pd[i], clip(gd[i]), slotScalarsAt(slots, i))
	}
}

func (o *Optimizer) updateDenseSparse(name string, param *tensor.Tensor[float32], grad *tensor.SparseRowMatrix) {
	slots := o.tsrSlots[name]
	col := grad.Col()
	pd := param.Data()
	grad.Range(func(id int, row []float32) {
		base := id * col
		if base < 0 || base+col > len(pd) {
			return
		}
		for j, g := range row {
			pd[base+j] = o.step(pd[base+j], clip(g), slotScalarsAt(slots, base+j))
		}
	})
}

func (o *Optimizer) updateSparseSparse(name string, param, grad *tensor.SparseRowMatrix) {
	slots := o.srmSlots[name]
	grad.Range(func(id int, row []float32) {
		prow := param.GetRowNoInit(id)
		if prow == nil {
			param.Assign(id, make([]float32, grad.Col()))
			prow = param.GetRowNoInit(id)
		}
		for j, g := range row {
			prow[j] = o.step(prow[j], clip(g), slotSrmScalarsAt(slots, id, j, grad.Col()))
		}
	})
}

// slotScalar is a lazily-read/written view over one scalar position across
// however many slot tensors the rule requires.
type slotScalar struct {
	ptrs []*float32
}

func slotScalarsAt(slots []*tensor.Tensor[float32], i int) slotScalar {
	ptrs := make([]*float32, len(slots))
	for s, slot := range slots {
		d := slot.Data()
		if i >= 0 && i < len(d) {
			ptrs[s] = &d[i]
		}
	}
	return slotScalar{ptrs: ptrs}
}

func slotSrmScalarsAt(slots []*tensor.SparseRowMatrix, id, j, col int) slotScalar {
	ptrs := make([]*float32, len(slots))
	for s, slot := range slots {
		row := slot.GetRowNoInit(id)
		if row == nil {
			slot.Assign(id, make([]float32, col))
			row = slot.GetRowNoInit(id)
		}
		if j >= 0 && j < len(row) {
			ptrs[s] = &row[j]
		}
	}
	return slotScalar{ptrs: ptrs}
}

// step applies one scalar update under o.cfg.Rule, reading/writing whatever
// slot scalars the rule needs through s.
func (o *Optimizer) step(w, g float32, s slotScalar) float32 {
	switch o.cfg.Rule {
	case RuleSGD:
		return w - float32(o.cfg.Alpha)*g
	case RuleAdaGrad:
		n := s.ptrs[0]
		*n += g * g
		return w - float32(o.cfg.Alpha)*g/float32(math.Sqrt(float64(*n))+o.cfg.Beta)
	case RuleAdam:
		m, v := s.ptrs[0], s.ptrs[1]
		*m = float32(o.cfg.Beta)**m + float32(1-o.cfg.Beta)*g
		*v = float32(o.cfg.Beta2)**v + float32(1-o.cfg.Beta2)*g*g
		return w - float32(o.cfg.Alpha)**m/float32(math.Sqrt(float64(*v))+1e-8)
	case RuleFTRL:
		z, n := s.ptrs[0], s.ptrs[1]
		sigma := (float32(math.Sqrt(float64(*n+g*g))) - float32(math.Sqrt(float64(*n)))) / float32(o.cfg.Alpha)
		*z += g - sigma*w
		*n += g * g
		if float32(math.Abs(float64(*z))) <= float32(o.cfg.Beta2) {
			return 0
		}
		sign := float32(1)
		if *z < 0 {
			sign = -1
		}
		return -(*z - sign*float32(o.cfg.Beta2)) / ((float32(o.cfg.Beta)+float32(math.Sqrt(float64(*n))))/float32(o.cfg.Alpha) + float32(o.cfg.Beta2))
	default:
		return w - float32(o.cfg.Alpha)*g
	}
}
