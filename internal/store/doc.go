// Package store implements the three per-id auxiliary stores a parameter
// shard keeps alongside its parameters (spec.md §4.8): TSStore tracks when
// an id was last touched, FreqStore tracks how often, and OLStore tracks
// how much an id's embedding has moved since it was last collected for
// online-learning export.
//
// All three are keyed by the same sparse row ids the model's SRM
// parameters use. None of them has a serialised form; they are held in
// memory only.
package store
