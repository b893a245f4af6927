package entities

import (
	"cmp"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/jobforge/forge/pkg/orderedset"
)

// scoreKey orders a sorted-set member by (score, value), its primary order per the data model.
type scoreKey struct {
	score float64
	value string
}

func compareScoreKey(a, b scoreKey) int {
	if c := cmp.Compare(a.score, b.score); c != 0 {
		return c
	}
	return cmp.Compare(a.value, b.value)
}

// bloomFalsePositiveRate bounds the Contains accelerator's false-positive estimate; once exceeded the filter is
// rebuilt from the live member set rather than left to degrade silently.
const bloomFalsePositiveRate = 0.01

// SortedSet is a string key mapping to a set of (value, score) pairs unique by value, primarily ordered by
// (score, value). Contains is accelerated by a Bloom filter over the member values: a negative answer is
// authoritative, a positive answer still falls through to the member map for certainty.
type SortedSet struct {
	Key      string
	ExpireAt Time

	byScore     *orderedset.Set[scoreKey, string] // scoreKey -> value (value duplicated in the key for clarity)
	scoreByName map[string]float64
	filter      *bloom.BloomFilter
	filterSizedFor uint // member count the current filter was sized (NewWithEstimates) for
}

const bloomMinSize = 1024

// NewSortedSet constructs an empty SortedSet.
func NewSortedSet(key string) *SortedSet {
	return &SortedSet{
		Key:            key,
		byScore:        orderedset.New[scoreKey, string](compareScoreKey),
		scoreByName:    make(map[string]float64),
		filter:         bloom.NewWithEstimates(bloomMinSize, bloomFalsePositiveRate),
		filterSizedFor: bloomMinSize,
	}
}

// Add inserts or updates value with score, reporting whether value was already a member.
func (s *SortedSet) Add(value string, score float64) bool {
	old, existed := s.scoreByName[value]
	if existed && old == score {
		return true
	}
	if existed {
		s.byScore.Delete(scoreKey{score: old, value: value})
	}
	s.byScore.Set(scoreKey{score: score, value: value}, value)
	s.scoreByName[value] = score
	s.filter.AddString(value)
	s.maybeRebuildFilter()
	return existed
}

// maybeRebuildFilter rebuilds the Bloom filter from the live member set once membership has grown beyond the size
// the filter was last sized for, keeping its false-positive estimate near the configured bound.
func (s *SortedSet) maybeRebuildFilter() {
	if uint(len(s.scoreByName)) <= s.filterSizedFor {
		return
	}
	sizedFor := uint(len(s.scoreByName))*2 + bloomMinSize
	filter := bloom.NewWithEstimates(sizedFor, bloomFalsePositiveRate)
	for value := range s.scoreByName {
		filter.AddString(value)
	}
	s.filter = filter
	s.filterSizedFor = sizedFor
}

// Remove deletes value, reporting whether it was present. The Bloom filter is left as-is (it never produces false
// negatives, only an occasional unnecessary member-map lookup until the next rebuild).
func (s *SortedSet) Remove(value string) bool {
	score, existed := s.scoreByName[value]
	if !existed {
		return false
	}
	s.byScore.Delete(scoreKey{score: score, value: value})
	delete(s.scoreByName, value)
	return true
}

// Contains reports whether value is a member.
func (s *SortedSet) Contains(value string) bool {
	if !s.filter.TestString(value) {
		return false
	}
	_, ok := s.scoreByName[value]
	return ok
}

// Score returns the score of value, if present.
func (s *SortedSet) Score(value string) (float64, bool) {
	score, ok := s.scoreByName[value]
	return score, ok
}

// Len returns the number of members.
func (s *SortedSet) Len() int {
	return len(s.scoreByName)
}

// Empty reports whether the set has no members (such a set becomes eligible for deletion).
func (s *SortedSet) Empty() bool {
	return len(s.scoreByName) == 0
}

// All returns every member in (score, value) order.
func (s *SortedSet) All() []Param {
	out := make([]Param, 0, s.byScore.Len())
	s.byScore.Range(func(key scoreKey, value string) bool {
		out = append(out, Param{Name: value, Value: strconv.FormatFloat(key.score, 'g', -1, 64)})
		return true
	})
	return out
}

// FirstByLowestScore returns up to count members with from <= score <= to, in ascending (score, value) order. count
// <= 0 means "no limit".
func (s *SortedSet) FirstByLowestScore(from, to float64, count int) []string {
	var out []string
	s.byScore.RangeFrom(scoreKey{score: from}, func(key scoreKey, value string) bool {
		if key.score > to {
			return false
		}
		if count > 0 && len(out) >= count {
			return false
		}
		out = append(out, value)
		return true
	})
	return out
}

// Range returns the members with rank in [start, stop] (inclusive, 0-based, ascending (score, value) order).
func (s *SortedSet) Range(start, stop int) []string {
	if start < 0 {
		start = 0
	}
	var out []string
	i := 0
	s.byScore.Range(func(_ scoreKey, value string) bool {
		if i > stop {
			return false
		}
		if i >= start {
			out = append(out, value)
		}
		i++
		return true
	})
	return out
}

// ExpiresAt returns the sorted set's current expiration time, or the zero Time if it never expires.
func (s *SortedSet) ExpiresAt() Time { return s.ExpireAt }

// SetExpiresAt updates the sorted set's expiration time.
func (s *SortedSet) SetExpiresAt(t Time) { s.ExpireAt = t }
