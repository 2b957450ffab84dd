package featurekv

import "github.com/x448/float16"

// Half is IEEE-754 binary16, used for protocol-version-3 embedding export
// (spec.md §9 "Feature-kv half-floats").
type Half = float16.Float16

// ToHalf narrows f to binary16, matching x448/float16's round-to-nearest
// conversion.
func ToHalf(f float32) Half { return float16.Fromfloat32(f) }

// FromHalf widens h back to float32.
func FromHalf(h Half) float32 { return h.Float32() }
