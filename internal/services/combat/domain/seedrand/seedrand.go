// Package seedrand derives deterministic pseudo-random values from a seed
// key and a string salt.
//
// # Determinism
//
// Every function in this package is a pure function of its inputs. Hashing
// is FNV-1a over UTF-8 bytes using 32-bit unsigned arithmetic, so identical
// (key, salt, pool) inputs produce identical outputs on every platform and
// on repeated evaluation. No transcendental floating-point functions and no
// iteration over unordered containers are involved, which is what allows the
// server and any number of observers to re-derive the same rolls from the
// same seed.
package seedrand

import (
	"sort"

	apperrors "github.com/louisbranch/emberclash/internal/platform/errors"
)

const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// minWeight floors every normalized weight so a candidate can never be
// starved out of a cumulative roll entirely.
const minWeight = 0.001

// ErrEmptyPool indicates a pick was requested from an empty pool.
var ErrEmptyPool = apperrors.New(apperrors.CodeEmptyPickPool, "pick pool is empty")

// Hash computes the FNV-1a hash of the key.
func Hash(key string) uint32 {
	h := fnvOffsetBasis
	for _, b := range []byte(key) {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return h
}

// StableInt derives a deterministic 32-bit value from key and salt.
func StableInt(key, salt string) uint32 {
	return Hash(key + "::" + salt)
}

// StableFloat derives a deterministic value in [0, 1) from key and salt.
func StableFloat(key, salt string) float64 {
	return float64(StableInt(key, salt)%1_000_000) / 1_000_000
}

// Pick selects one element of pool deterministically.
func Pick[T any](pool []T, key, salt string) (T, error) {
	var zero T
	if len(pool) == 0 {
		return zero, ErrEmptyPool
	}
	return pool[int(StableInt(key, salt)%uint32(len(pool)))], nil
}

// PickNoRepeat selects one element of pool, excluding last when at least one
// alternative exists. A pool of size 1 always returns its single element.
func PickNoRepeat(pool []string, key, last, salt string) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}

	candidates := pool
	if last != "" {
		filtered := make([]string, 0, len(pool))
		for _, candidate := range pool {
			if candidate != last {
				filtered = append(filtered, candidate)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	return candidates[int(StableInt(key, salt)%uint32(len(candidates)))], nil
}

// WeightedPickNoRepeat selects a key from weights using a cumulative roll.
//
// Zero and negative weights are dropped; when every weight is non-positive
// the full key set is used instead. The last pick is excluded when
// alternatives remain. Each surviving weight is floored at 0.001 before the
// cumulative roll. Map iteration order never influences the result: keys are
// sorted before any selection.
func WeightedPickNoRepeat(weights map[string]float64, key, last, salt string) (string, error) {
	if len(weights) == 0 {
		return "", ErrEmptyPool
	}

	keys := make([]string, 0, len(weights))
	for candidate := range weights {
		keys = append(keys, candidate)
	}
	sort.Strings(keys)

	candidates := make([]string, 0, len(keys))
	for _, candidate := range keys {
		if weights[candidate] > 0 {
			candidates = append(candidates, candidate)
		}
	}
	if len(candidates) == 0 {
		candidates = keys
	}

	if last != "" && len(candidates) > 1 {
		filtered := make([]string, 0, len(candidates))
		for _, candidate := range candidates {
			if candidate != last {
				filtered = append(filtered, candidate)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	total := 0.0
	cumulative := make([]float64, len(candidates))
	for i, candidate := range candidates {
		weight := weights[candidate]
		if weight < minWeight {
			weight = minWeight
		}
		total += weight
		cumulative[i] = total
	}

	roll := StableFloat(key, salt) * total
	for i, threshold := range cumulative {
		if threshold >= roll {
			return candidates[i], nil
		}
	}
	return candidates[len(candidates)-1], nil
}
