package state

import (
	"time"

	"github.com/jobforge/forge/pkg/entities"
)

// ServerAnnounce registers a server announcing itself with the given id, polled queues, and worker count, replacing
// any previous registration under the same id.
func (s *MemoryState[K]) ServerAnnounce(id string, queues []string, workerCount int, now Time) {
	s.servers[id] = entities.NewServer(id, queues, workerCount, now)
}

// ServerHeartbeat refreshes the heartbeat timestamp of the server at id, returning false if id is unknown.
func (s *MemoryState[K]) ServerHeartbeat(id string, now Time) bool {
	srv, ok := s.servers[id]
	if !ok {
		return false
	}
	srv.Heartbeat(now)
	return true
}

// ServerDelete removes the server at id, if present.
func (s *MemoryState[K]) ServerDelete(id string) {
	delete(s.servers, id)
}

// ServerGet returns the server at id.
func (s *MemoryState[K]) ServerGet(id string) (*entities.Server, bool) {
	srv, ok := s.servers[id]
	return srv, ok
}

// ServerDeleteInactive deletes every server whose last heartbeat is older than timeout as of now, returning the
// count removed.
func (s *MemoryState[K]) ServerDeleteInactive(timeout time.Duration, now Time) int {
	removed := 0
	for id, srv := range s.servers {
		if now.Sub(srv.HeartbeatAt) >= timeout {
			delete(s.servers, id)
			removed++
		}
	}
	return removed
}

// AllServers returns every registered server, in no particular order.
func (s *MemoryState[K]) AllServers() []*entities.Server {
	out := make([]*entities.Server, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, srv)
	}
	return out
}
