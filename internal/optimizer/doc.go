// Package optimizer implements the parameter-update protocol described in
// spec.md §4.6: binding a parameter TensorMap, creating per-parameter
// auxiliary "slot" state lazily, and folding a gradient TensorMap into the
// parameters under a configurable update rule.
//
// The exact update formulas for rules other than AdaGrad are explicitly a
// non-goal of spec.md §1 ("only the optimiser protocol and slot lifecycle");
// AdaGrad is implemented precisely because spec.md §8 S3 gives a literal
// worked example it must reproduce. SGD/Adam/FTRL are simplified but
// protocol-faithful (correct slot counts, correct gradient clipping, correct
// dispatch over the (param-kind, grad-kind) pairs).
package optimizer
