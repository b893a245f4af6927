package entities

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jobforge/forge/pkg/clock"
)

func ordinalEqual(a, b string) bool { return a == b }

func TestJob_SetAndGetParameter(t *testing.T) {
	c := clock.New()
	j := NewJob[uint64](1, []byte("payload"), c.Now(), 10, ordinalEqual)

	j.SetParameter("retries", "3")
	v, ok := j.GetParameter("retries")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = j.GetParameter("missing")
	assert.False(t, ok)
}

func TestJob_SetParameter_UpdatePreservesPosition(t *testing.T) {
	c := clock.New()
	j := NewJob[uint64](1, nil, c.Now(), 10, ordinalEqual)
	j.SetParameter("a", "1")
	j.SetParameter("b", "2")
	j.SetParameter("a", "UPDATED")

	assert.Equal(t, []Param{{Name: "a", Value: "UPDATED"}, {Name: "b", Value: "2"}}, j.Parameters)
}

func TestJob_SetParameter_CaseInsensitiveComparer(t *testing.T) {
	c := clock.New()
	j := NewJob[uint64](1, nil, c.Now(), 10, strings.EqualFold)
	j.SetParameter("Retries", "1")
	j.SetParameter("RETRIES", "2")

	assert.Len(t, j.Parameters, 1)
	v, ok := j.GetParameter("retries")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestJob_PushState_SetsCurrentAndHistory(t *testing.T) {
	c := clock.New()
	j := NewJob[uint64](1, nil, c.Now(), 10, ordinalEqual)

	j.PushState(StateRecord{Name: "Enqueued", CreatedAt: c.Now()}, true)
	assert.NotNil(t, j.CurrentState)
	assert.Equal(t, "Enqueued", j.CurrentState.Name)
	assert.Equal(t, []StateRecord{{Name: "Enqueued", CreatedAt: j.CurrentState.CreatedAt}}, j.HistorySnapshot())
}

func TestJob_PushState_BoundedHistory(t *testing.T) {
	c := clock.New()
	j := NewJob[uint64](1, nil, c.Now(), 3, ordinalEqual)

	names := []string{"A", "B", "C", "D", "E"}
	for _, name := range names {
		j.PushState(StateRecord{Name: name, CreatedAt: c.Now()}, true)
	}

	history := j.HistorySnapshot()
	assert.Len(t, history, 3)
	var gotNames []string
	for _, rec := range history {
		gotNames = append(gotNames, rec.Name)
	}
	assert.Equal(t, []string{"C", "D", "E"}, gotNames, "oldest entries drop first, remaining stay in order")
}

func TestJob_ExpiresAt(t *testing.T) {
	c := clock.New()
	j := NewJob[uint64](1, nil, c.Now(), 10, ordinalEqual)
	assert.True(t, j.ExpiresAt().Zero())

	expireAt := c.Now().Add(time.Hour)
	j.SetExpiresAt(expireAt)
	assert.Equal(t, expireAt, j.ExpiresAt())
}
