// Package monitoring implements MonitoringApi (spec 6): read-only views over the engine's state for dashboards and
// operational tooling — queue summaries, server listings, job details with bounded history, paginated job lists by
// state, and timeline statistics. Every view is ultimately a dispatcher.Submit query; a ShardedCache fronts the
// paginated job-list query, the one a dashboard is likely to poll repeatedly for the same page, so repeated polling
// doesn't turn into repeated dispatcher round-trips — the same role the teacher's cache package played.
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jobforge/forge/pkg/cache"
	"github.com/jobforge/forge/pkg/clock"
	"github.com/jobforge/forge/pkg/command"
	"github.com/jobforge/forge/pkg/dispatcher"
	"github.com/jobforge/forge/pkg/entities"
	"github.com/jobforge/forge/pkg/state"
)

// cacheTTL is a safety-net expiration for cached snapshots, in case a caller never registers OnEvict (e.g. a test
// harness that drives the dispatcher directly). Under normal operation the cache is purged wholesale on every
// dispatcher eviction tick, well before this TTL would matter.
const cacheTTL = 5 * time.Second

// snapshot pairs a cached value with the dispatcher sequence number it was built from, so a caller that cares about
// freshness (none currently do, but the shape documents the guarantee) can tell how stale a hit is.
type snapshot[V any] struct {
	value V
	seq   uint64
}

// Api is the monitoring façade over one engine instance. Construct with New and register OnRefresh with the
// engine's dispatcher so the cache is purged once per eviction tick.
type Api[K comparable] struct {
	dispatcher *dispatcher.Dispatcher[K]
	clock      *clock.Clock

	jobPageCache *cache.ShardedCache[string, snapshot[JobPage[K]]]
}

// New constructs a monitoring Api over d. Call OnRefresh(d) separately (or let the caller wire it) to keep the
// cache in lockstep with dispatcher eviction ticks.
func New[K comparable](d *dispatcher.Dispatcher[K], clk *clock.Clock) *Api[K] {
	return &Api[K]{
		dispatcher:   d,
		clock:        clk,
		jobPageCache: cache.NewShardedCache(cache.NewMapLayer[string, snapshot[JobPage[K]]], 8),
	}
}

// OnRefresh registers a dispatcher.OnEvict callback that purges the job-page cache, so every query issued after an
// eviction tick observes state at least as fresh as that tick. Not safe to call concurrently with dispatcher.Run.
func (a *Api[K]) OnRefresh(d *dispatcher.Dispatcher[K]) {
	d.OnEvict(func(dispatcher.EvictionReport) {
		a.jobPageCache.Purge()
	})
}

// ---- Queue summaries ----

// QueueSummary is a point-in-time view of one queue.
type QueueSummary struct {
	Name       string
	Length     int
	HasWaiters bool
}

// QueueSummaries returns a summary of every queue that currently exists, in no particular order. Uncached: queue
// depth changes on every enqueue/dequeue, far more often than the eviction tick, so caching it would make
// FetchNextJob activity invisibly stale between ticks.
func (a *Api[K]) QueueSummaries(ctx context.Context) ([]QueueSummary, error) {
	return dispatcher.Submit(ctx, a.dispatcher, func(s *state.MemoryState[K]) []QueueSummary {
		queues := s.AllQueues()
		out := make([]QueueSummary, 0, len(queues))
		for _, q := range queues {
			out = append(out, QueueSummary{Name: q.Name, Length: q.Len(), HasWaiters: !q.Waiters.Empty()})
		}
		return out
	})
}

// ---- Server listings ----

// ServerSummary is a point-in-time view of one registered server.
type ServerSummary struct {
	ID              string
	Queues          []string
	WorkerCount     int
	StartedAtUTC    time.Time
	HeartbeatAtUTC  time.Time
}

// ServerListing returns every registered server, in no particular order.
func (a *Api[K]) ServerListing(ctx context.Context) ([]ServerSummary, error) {
	return dispatcher.Submit(ctx, a.dispatcher, func(s *state.MemoryState[K]) []ServerSummary {
		servers := s.AllServers()
		out := make([]ServerSummary, 0, len(servers))
		for _, srv := range servers {
			out = append(out, ServerSummary{
				ID:             srv.ID,
				Queues:         srv.Queues,
				WorkerCount:    srv.WorkerCount,
				StartedAtUTC:   a.clock.ToWallClock(srv.StartedAt),
				HeartbeatAtUTC: a.clock.ToWallClock(srv.HeartbeatAt),
			})
		}
		return out
	})
}

// ---- Job detail ----

// JobDetail is the read-only view job_details returns: the job's identity, timing, current state, and its bounded
// history in chronological order.
type JobDetail[K comparable] struct {
	Key              K
	CreatedAtUTC     time.Time
	ExpireAtUTC      time.Time
	HasExpiry        bool
	CurrentStateName string
	HasState         bool
	Parameters       []entities.Param
	History          []entities.StateRecord
}

// JobDetails returns the detail view of the job at id, or ok=false if it does not exist.
func (a *Api[K]) JobDetails(ctx context.Context, id K) (JobDetail[K], bool, error) {
	type result struct {
		detail JobDetail[K]
		ok     bool
	}
	r, err := dispatcher.Submit(ctx, a.dispatcher, func(s *state.MemoryState[K]) result {
		job, ok := s.JobGet(id)
		if !ok {
			return result{}
		}
		d := JobDetail[K]{
			Key:          job.Key,
			CreatedAtUTC: a.clock.ToWallClock(job.CreatedAt),
			Parameters:   append([]entities.Param(nil), job.Parameters...),
			History:      job.HistorySnapshot(),
		}
		if !job.ExpireAt.Zero() {
			d.HasExpiry = true
			d.ExpireAtUTC = a.clock.ToWallClock(job.ExpireAt)
		}
		if job.CurrentState != nil {
			d.HasState = true
			d.CurrentStateName = job.CurrentState.Name
		}
		return result{detail: d, ok: true}
	})
	if err != nil {
		return JobDetail[K]{}, false, err
	}
	return r.detail, r.ok, nil
}

// ---- Paginated job lists by state ----

// JobPage is one page of job keys currently in a given state, plus the total count in that state so a caller can
// compute page counts.
type JobPage[K comparable] struct {
	Keys  []K
	Total int
}

// JobsByState returns page `page` (0-indexed) of size pageSize of job keys currently in the named state
// (case-insensitive), ordered as the engine's state index orders them — (state entry time, job creation time, key).
func (a *Api[K]) JobsByState(ctx context.Context, stateName string, page, pageSize int) (JobPage[K], error) {
	if pageSize <= 0 {
		pageSize = 1
	}
	cacheKey := fmt.Sprintf("jobs:%s:%d:%d", stateName, page, pageSize)
	if cached, ok := a.jobPageCache.Get(cacheKey); ok {
		return cached.value, nil
	}

	type result struct {
		page JobPage[K]
		seq  uint64
	}
	r, err := dispatcher.Submit(ctx, a.dispatcher, func(s *state.MemoryState[K]) result {
		all := s.JobsInState(stateName)
		start := page * pageSize
		var keys []K
		if start < len(all) {
			end := start + pageSize
			if end > len(all) {
				end = len(all)
			}
			keys = append([]K(nil), all[start:end]...)
		}
		return result{page: JobPage[K]{Keys: keys, Total: len(all)}, seq: a.dispatcher.Sequence()}
	})
	if err != nil {
		return JobPage[K]{}, err
	}
	a.jobPageCache.Add(cacheKey, snapshot[JobPage[K]]{value: r.page, seq: r.seq}, cacheTTL)
	return r.page, nil
}

// ---- Timeline statistics ----

// statsDayKey and statsHourKey mirror the spec's stats:<kind>:YYYY-MM-DD and stats:<kind>:YYYY-MM-DD-HH counter
// naming, bucketing a kind (e.g. a job state name) by the day and hour it was observed in.
func statsDayKey(kind string, at time.Time) string {
	return fmt.Sprintf("stats:%s:%s", kind, at.UTC().Format("2006-01-02"))
}

func statsHourKey(kind string, at time.Time) string {
	return fmt.Sprintf("stats:%s:%s", kind, at.UTC().Format("2006-01-02-15"))
}

// RecordStat increments both the daily and hourly timeline counters for kind at the moment `at`. Callers (typically
// the code that transitions a job's state) invoke this once per observation; the counters never expire, since
// MaxExpirationTime does not apply to counters and a timeline is only useful if it persists.
func (a *Api[K]) RecordStat(ctx context.Context, kind string, at time.Time) error {
	now := a.clock.Now()
	_, err := dispatcher.Submit(ctx, a.dispatcher, func(s *state.MemoryState[K]) struct{} {
		command.CounterIncrementCommand[K]{Key: statsDayKey(kind, at), Delta: 1, Now: now}.Execute(s)
		command.CounterIncrementCommand[K]{Key: statsHourKey(kind, at), Delta: 1, Now: now}.Execute(s)
		return struct{}{}
	})
	return err
}

// StatsForDay returns the timeline counter for kind on the UTC day containing at.
func (a *Api[K]) StatsForDay(ctx context.Context, kind string, at time.Time) (int64, error) {
	return a.counterValue(ctx, statsDayKey(kind, at))
}

// StatsForHour returns the timeline counter for kind on the UTC hour containing at.
func (a *Api[K]) StatsForHour(ctx context.Context, kind string, at time.Time) (int64, error) {
	return a.counterValue(ctx, statsHourKey(kind, at))
}

func (a *Api[K]) counterValue(ctx context.Context, key string) (int64, error) {
	return dispatcher.Submit(ctx, a.dispatcher, func(s *state.MemoryState[K]) int64 {
		counter, ok := s.CounterGet(key)
		if !ok {
			return 0
		}
		return counter.Value
	})
}

// CountsByState returns, for each of names, the number of jobs currently in that state (case-insensitive).
func (a *Api[K]) CountsByState(ctx context.Context, names []string) (map[string]int, error) {
	return dispatcher.Submit(ctx, a.dispatcher, func(s *state.MemoryState[K]) map[string]int {
		out := make(map[string]int, len(names))
		for _, name := range names {
			out[name] = len(s.JobsInState(name))
		}
		return out
	})
}
