// Package pool provides the two concurrency primitives the rest of
// FluxGraph is built on (spec.md §5): ThreadPool, a fixed worker-count pool
// that drains posted tasks LIFO when idle, and BlockingQueue, a generic
// producer-consumer queue that can be stopped from under a blocked
// consumer.
package pool
