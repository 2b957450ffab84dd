// Package wire implements the length-framed binary message protocol
// workers, parameter shards, and the coordinator exchange over TCP
// (spec.md §4.9): a tagged union of message kinds, each read/written
// behind a 4-byte length prefix so a reader always knows how many bytes to
// buffer before attempting to deserialise.
package wire
