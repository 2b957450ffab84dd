// Package op defines the operator protocol every dataflow node's compute
// kernel implements (spec.md §4.4) and the process-wide registry operator
// implementations register themselves into at init time, plus OpContext,
// which owns a compiled operator chain and drives its init/forward/
// backward/pull-request phases. Concrete kernels (matmul, softmax,
// embedding lookup, ...) are not part of this package — only the protocol
// and the chain driver are.
package op
