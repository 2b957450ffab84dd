package featurekv

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	versionKey = "version"
	graphKey   = "graph"

	denseKeyPrefix  = "dense:"
	sparseKeyPrefix = "sparse:"
)

// VersionKey returns the well-known metadata key holding the feature-kv
// protocol version.
func VersionKey() string { return versionKey }

// GraphKey returns the well-known metadata key holding the serialised
// graph.
func GraphKey() string { return graphKey }

// DenseParamKey returns the item key for the dense parameter named name.
func DenseParamKey(name string) string { return denseKeyPrefix + name }

// DenseParamName recovers the parameter name from a key produced by
// DenseParamKey, or "" with ok=false if key is not a dense-param key.
func DenseParamName(key string) (name string, ok bool) {
	if !strings.HasPrefix(key, denseKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, denseKeyPrefix), true
}

// SparseParamKey returns the item key for sparse feature id: an 8-byte
// big-endian encoding behind a fixed prefix, so keys sort in id order (the
// original's raw-int_t key has no such guarantee; this is a deliberate,
// documented improvement, not a format this package must interoperate
// with byte-for-byte).
func SparseParamKey(id int) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return sparseKeyPrefix + string(buf[:])
}

// SparseParamID recovers the feature id from a key produced by
// SparseParamKey, or an error if key is not a well-formed sparse-param
// key.
func SparseParamID(key string) (int, error) {
	if !strings.HasPrefix(key, sparseKeyPrefix) {
		return 0, fmt.Errorf("featurekv: not a sparse param key: %q", key)
	}
	rest := strings.TrimPrefix(key, sparseKeyPrefix)
	if len(rest) != 8 {
		return 0, fmt.Errorf("featurekv: malformed sparse param key: %q", key)
	}
	return int(binary.BigEndian.Uint64([]byte(rest))), nil
}
