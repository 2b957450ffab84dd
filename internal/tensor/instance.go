package tensor

// Instance is a mini-batch of input data: a TensorMap of named inputs plus
// the batch count they share (spec.md §3). It is produced by the data
// layer (instance file parsers are an explicit non-goal of this spec; only
// the Instance they produce is specified) and consumed by the graph's
// INSTANCE-type nodes.
type Instance struct {
	Data  *Map
	Batch int
}

// NewInstance returns an empty Instance with the given batch size.
func NewInstance(batch int) *Instance {
	return &Instance{Data: NewMap(), Batch: batch}
}

// Hidden holds intermediate activations produced during a forward pass,
// keyed by the producing node's name, plus the Instance that produced them
// and a reference to the loss scalar (spec.md §3). The loss reference is
// simply the Tensor stored under LossName in Data — OpContext looks it up
// by name rather than threading a separate pointer, since the Kind-tagged
// Map already owns it.
type Hidden struct {
	Data     *Map
	Instance *Instance
	LossName string
}

// NewHidden returns an empty Hidden bound to inst, whose loss scalar will
// be looked up under lossName.
func NewHidden(inst *Instance, lossName string) *Hidden {
	return &Hidden{Data: NewMap(), Instance: inst, LossName: lossName}
}

// Loss returns the loss scalar tensor, or nil if it has not been computed
// yet.
func (h *Hidden) Loss() *Tensor[float32] { return h.Data.Tsr(h.LossName) }
