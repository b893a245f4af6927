package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/entities"
	"github.com/jobforge/forge/pkg/keys"
	"github.com/jobforge/forge/pkg/options"
	"github.com/jobforge/forge/pkg/storeerr"
)

func newTestState() (*MemoryState[uint64], *clock.Clock) {
	c := clock.New()
	return New[uint64](options.New(), keys.NewCounterProvider()), c
}

func TestMemoryState_JobCreate_AlreadyExists(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	_, err := st.JobCreate(1, nil, nil, now, time.Hour, true, false)
	require.NoError(t, err)

	_, err = st.JobCreate(1, nil, nil, now, time.Hour, true, false)
	assert.ErrorIs(t, err, storeerr.ErrAlreadyExists)
}

func TestMemoryState_JobCreate_IndexesExpiration(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	job, err := st.JobCreate(1, nil, nil, now, time.Hour, true, false)
	require.NoError(t, err)
	assert.False(t, job.ExpireAt.Zero())

	key, _, ok := st.jobExpIdx.Min()
	require.True(t, ok)
	assert.Equal(t, uint64(1), key.key)
}

func TestMemoryState_JobCreate_NoExpiration(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	job, err := st.JobCreate(1, nil, nil, now, 0, false, false)
	require.NoError(t, err)
	assert.True(t, job.ExpireAt.Zero())
	assert.Equal(t, 0, st.jobExpIdx.Len())
}

func TestMemoryState_JobSetState_MovesStateIndexBucket(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	_, err := st.JobCreate(1, nil, nil, now, 0, false, false)
	require.NoError(t, err)

	st.JobSetState(1, entities.StateRecord{Name: "Enqueued", CreatedAt: now}, true)
	assert.Equal(t, []uint64{1}, st.JobsInState("enqueued"), "state index lookup is case-insensitive")

	later := now.Add(time.Second)
	st.JobSetState(1, entities.StateRecord{Name: "Processing", CreatedAt: later}, true)
	assert.Empty(t, st.JobsInState("Enqueued"), "old bucket is dropped once empty")
	assert.Equal(t, []uint64{1}, st.JobsInState("PROCESSING"))
}

func TestMemoryState_JobDelete_ClearsEveryIndex(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	_, err := st.JobCreate(1, nil, nil, now, time.Hour, true, false)
	require.NoError(t, err)
	st.JobSetState(1, entities.StateRecord{Name: "Enqueued", CreatedAt: now}, true)

	st.JobDelete(1)
	_, ok := st.JobGet(1)
	assert.False(t, ok)
	assert.Equal(t, 0, st.jobExpIdx.Len())
	assert.Empty(t, st.JobsInState("Enqueued"))
}

func TestMemoryState_EndToEnd_JobLifecycleWithExpiration(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	_, err := st.JobCreate(1, []byte("invocation"), nil, now, 30*time.Minute, true, false)
	require.NoError(t, err)

	job, ok := st.JobGet(1)
	require.True(t, ok)
	assert.Nil(t, job.CurrentState)

	st.JobSetState(1, entities.StateRecord{Name: "Enqueued", CreatedAt: now}, true)
	job, _ = st.JobGet(1)
	assert.Equal(t, "Enqueued", job.CurrentState.Name)

	later := now.Add(31 * time.Minute)
	jobsEvicted, _, _, _, _ := st.EvictExpired(later)
	assert.Equal(t, 1, jobsEvicted)
	_, ok = st.JobGet(1)
	assert.False(t, ok)
}

func TestMemoryState_Eviction_IsIdempotent(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	for i := uint64(1); i <= 10; i++ {
		_, err := st.JobCreate(i, nil, nil, now, time.Millisecond, true, false)
		require.NoError(t, err)
	}
	later := now.Add(time.Second)

	jobs1, _, _, _, _ := st.EvictExpired(later)
	assert.Equal(t, 10, jobs1)
	jobs2, _, _, _, _ := st.EvictExpired(later)
	assert.Equal(t, 0, jobs2, "running eviction twice with the same now must be a no-op the second time")
}

func TestMemoryState_Eviction_UnderPressure(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	const n = 10000
	for i := uint64(0); i < n; i++ {
		_, err := st.JobCreate(i, nil, nil, now, time.Millisecond, true, false)
		require.NoError(t, err)
	}
	jobs, _, _, _, _ := st.EvictExpired(now.Add(time.Second))
	assert.Equal(t, n, jobs)
	assert.Equal(t, 0, st.JobCount())
	assert.Equal(t, 0, st.jobExpIdx.Len())
}

func TestMemoryState_Hash_SetRangeAndRemove(t *testing.T) {
	st, _ := newTestState()
	st.HashSetRange("h1", []entities.Param{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})
	h, ok := st.HashGet("h1")
	require.True(t, ok)
	assert.Equal(t, 2, h.Len())

	assert.True(t, st.HashRemove("h1", "a"))
	assert.True(t, st.HashRemove("h1", "b"), "removing the last field deletes the hash")
	_, ok = st.HashGet("h1")
	assert.False(t, ok)
}

func TestMemoryState_List_InsertAndRemoveAll(t *testing.T) {
	st, _ := newTestState()
	st.ListInsert("l1", "v1")
	st.ListInsert("l1", "v2")
	l, ok := st.ListGet("l1")
	require.True(t, ok)
	assert.Equal(t, []string{"v2", "v1"}, l.All())

	removed := st.ListRemoveAll("l1", "v2")
	assert.Equal(t, 1, removed)
	removed = st.ListRemoveAll("l1", "v1")
	assert.Equal(t, 1, removed)
	_, ok = st.ListGet("l1")
	assert.False(t, ok, "the list empties and is deleted")
}

func TestMemoryState_SortedSet_AddAndRemove(t *testing.T) {
	st, _ := newTestState()
	st.SortedSetAdd("s1", "a", 1.0)
	st.SortedSetAdd("s1", "b", 2.0)

	set, ok := st.SortedSetGet("s1")
	require.True(t, ok)
	assert.True(t, set.Contains("a"))

	assert.True(t, st.SortedSetRemove("s1", "a"))
	assert.True(t, st.SortedSetRemove("s1", "b"))
	_, ok = st.SortedSetGet("s1")
	assert.False(t, ok)
}

func TestMemoryState_Counter_IncrementDoesNotDeleteOnZero(t *testing.T) {
	st, _ := newTestState()
	st.CounterIncrement("c1", 5, Time{}, 0, false)
	st.CounterIncrement("c1", -5, Time{}, 0, false)

	c, ok := st.CounterGet("c1")
	require.True(t, ok, "a counter reaching zero must not be deleted, unlike collections")
	assert.Equal(t, int64(0), c.Value)
}

func TestMemoryState_Counter_ExemptFromMaxExpirationTime(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	st.opts = options.New(options.WithMaxExpirationTime(time.Minute))
	st.CounterIncrement("c1", 1, now, 10*time.Hour, true)

	counter, ok := st.CounterGet("c1")
	require.True(t, ok)
	assert.Equal(t, now.Add(10*time.Hour), counter.ExpireAt, "counters are exempt from MaxExpirationTime")
}

func TestMemoryState_Queue_GetOrCreateIsIdempotent(t *testing.T) {
	st, _ := newTestState()
	q1 := st.QueueGetOrCreate("default")
	q2 := st.QueueGetOrCreate("default")
	assert.Same(t, q1, q2)
}

func TestMemoryState_Server_AnnounceHeartbeatDeleteInactive(t *testing.T) {
	st, c := newTestState()
	now := c.Now()
	st.ServerAnnounce("srv1", []string{"default"}, 4, now)

	assert.True(t, st.ServerHeartbeat("srv1", now.Add(time.Second)))
	assert.False(t, st.ServerHeartbeat("unknown", now))

	removed := st.ServerDeleteInactive(500*time.Millisecond, now.Add(2*time.Second))
	assert.Equal(t, 1, removed)
	_, ok := st.ServerGet("srv1")
	assert.False(t, ok)
}

func TestMemoryState_MaxExpirationTime_ClampsNonCounterKinds(t *testing.T) {
	st, c := newTestState()
	st.opts = options.New(options.WithMaxExpirationTime(time.Hour))
	now := c.Now()

	job, err := st.JobCreate(1, nil, nil, now, 10*time.Hour, true, false)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), job.ExpireAt)
}
