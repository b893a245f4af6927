package entities

import "github.com/jobforge/forge/pkg/orderedset"

// Hash is a string key mapping to an ordered string->string map, ordered by the engine's configured string
// comparer. Ordering only affects iteration (AllEntries); lookups are O(log n) via the same ordered index.
type Hash struct {
	Key      string
	ExpireAt Time

	entries *orderedset.Set[string, string]
}

// NewHash constructs an empty Hash ordered by compare (Ordinal or OrdinalIgnoreCase, per Options).
func NewHash(key string, compare func(a, b string) int) *Hash {
	return &Hash{Key: key, entries: orderedset.New[string, string](compare)}
}

// SetRange upserts every (field, value) pair in kvs.
func (h *Hash) SetRange(kvs []Param) {
	for _, kv := range kvs {
		h.entries.Set(kv.Name, kv.Value)
	}
}

// Remove deletes field, reporting whether it was present.
func (h *Hash) Remove(field string) bool {
	return h.entries.Delete(field)
}

// Get returns the value stored under field.
func (h *Hash) Get(field string) (string, bool) {
	return h.entries.Get(field)
}

// Len returns the number of fields currently stored.
func (h *Hash) Len() int {
	return h.entries.Len()
}

// Empty reports whether the hash has no fields (such a hash becomes eligible for deletion).
func (h *Hash) Empty() bool {
	return h.entries.Len() == 0
}

// AllEntries returns every (field, value) pair in comparer order.
func (h *Hash) AllEntries() []Param {
	out := make([]Param, 0, h.entries.Len())
	h.entries.Range(func(field, value string) bool {
		out = append(out, Param{Name: field, Value: value})
		return true
	})
	return out
}

// ExpiresAt returns the hash's current expiration time, or the zero Time if it never expires.
func (h *Hash) ExpiresAt() Time { return h.ExpireAt }

// SetExpiresAt updates the hash's expiration time.
func (h *Hash) SetExpiresAt(t Time) { h.ExpireAt = t }
