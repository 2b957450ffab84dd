// Package rpc implements the TCP reactor and request/response runtime
// workers, parameter shards, and the coordinator use to exchange wire
// messages (spec.md §4.9, §5): an accept loop handing each connection to
// its own goroutine ("actor"), FIFO per-connection message processing, and
// handler registration keyed by message type for requests and notifies.
package rpc
