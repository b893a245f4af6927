// Package keys implements the job-identifier policy. The engine is parameterized by a generic key type K; a
// Provider owns allocation of new keys plus parsing/formatting between K and the canonical string identifiers
// exposed to clients. Two concrete providers exist, matching the two identifier schemes background-job frameworks
// commonly offer: a monotonically increasing counter, and a random UUID.
package keys

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Provider is the key-identifier policy for a key type K. K must be comparable so it can key Go maps directly;
// ordering is supplied separately via Compare rather than requiring K to satisfy cmp.Ordered, since uuid.UUID (a
// 16-byte array) is comparable but has no natural `<` operator.
type Provider[K comparable] interface {
	// Next allocates a new, never-before-issued key.
	Next() K
	// Parse converts a canonical string identifier back into K, failing on malformed input.
	Parse(s string) (K, error)
	// Format converts K into its canonical string identifier.
	Format(k K) string
	// Compare imposes the provider's total order over K: negative if a < b, 0 if equal, positive if a > b.
	Compare(a, b K) int
}

// CounterProvider issues 64-bit unsigned integers, incremented atomically, starting at 1 (0 is reserved to let
// callers use the zero value of uint64 as a recognizable "no key" sentinel).
type CounterProvider struct {
	next atomic.Uint64
}

var _ Provider[uint64] = (*CounterProvider)(nil)

// NewCounterProvider constructs a CounterProvider.
func NewCounterProvider() *CounterProvider {
	return &CounterProvider{}
}

func (p *CounterProvider) Next() uint64 {
	return p.next.Add(1)
}

func (p *CounterProvider) Parse(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing counter key %q: %w", s, err)
	}
	return v, nil
}

func (p *CounterProvider) Format(k uint64) string {
	return strconv.FormatUint(k, 10)
}

func (p *CounterProvider) Compare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// UUIDProvider issues random (version 4) UUIDs.
type UUIDProvider struct{}

var _ Provider[uuid.UUID] = UUIDProvider{}

// NewUUIDProvider constructs a UUIDProvider.
func NewUUIDProvider() UUIDProvider {
	return UUIDProvider{}
}

func (UUIDProvider) Next() uuid.UUID {
	return uuid.New()
}

func (UUIDProvider) Parse(s string) (uuid.UUID, error) {
	k, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing uuid key %q: %w", s, err)
	}
	return k, nil
}

func (UUIDProvider) Format(k uuid.UUID) string {
	return k.String()
}

func (UUIDProvider) Compare(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
