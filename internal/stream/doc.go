// Package stream implements the versioned binary serialisation format used
// for every persistable FluxGraph value: tensors, graphs, models, optimiser
// slots and the on-disk shard files described in spec.md §6.
//
// Every compound container (maps, slices) is written as a magic number
// (MagicNumber) followed by a u64 element count and then the elements
// themselves, per spec.md §9's explicit backward-compatibility requirement.
// Fixed-width scalars are little-endian, and strings are a u64 length
// followed by raw bytes.
//
// Two reader shapes exist: Reader, which copies bytes out of an io.Reader,
// and ViewReader, which aliases a backing []byte without copying — used by
// the hot pull/push path to avoid an allocation per message. Both readers
// set an internal "bad" flag on any length/version mismatch or short read;
// once bad, all further reads are no-ops that keep returning the zero value,
// matching the "stream transitions to bad" contract in spec.md §7.
package stream
