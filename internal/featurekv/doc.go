// Package featurekv implements the optional feature-kv export/import
// format (spec.md §6 "Feature-kv export format", §9 "Feature-kv
// half-floats"): a flat sequence of key/value items suitable for loading
// into an external key-value feature store, distinct from the shard's own
// on-disk `.bin` stream format in internal/stream.
//
// Three kinds of items exist: metadata ("version", "graph"), one item per
// dense parameter keyed by its tensor name, and one item per sparse
// feature id aggregating every node's embedding row for that id into a
// single concatenated buffer of (node_id, col, embedding) triples.
// Protocol version 3 additionally narrows each embedding to IEEE-754
// binary16 via Half; version 2 keeps float32.
package featurekv
