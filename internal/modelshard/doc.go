// Package modelshard binds one parameter server shard together: the
// parameter Model, its Optimizer, the TS/Freq/OL auxiliary stores, a
// routing Descriptor, and a worker pool (spec.md §2 component K). Pull and
// Push run on the caller's goroutine; they are not dispatched to the pool.
package modelshard
