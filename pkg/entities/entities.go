package entities

import "github.com/jobforge/forge/pkg/clock"

// Time is a convenience alias so every expirable entity can write "ExpireAt Time" without importing clock directly.
type Time = clock.Time

// Expirable is satisfied by every entity kind that participates in an expiration index: Job, Hash, List, SortedSet,
// and Counter (the only kind MemoryState's MaxExpirationTime clamp does not apply to, though Counter is still
// expirable and so still implements this interface).
type Expirable interface {
	ExpiresAt() Time
	SetExpiresAt(t Time)
}
