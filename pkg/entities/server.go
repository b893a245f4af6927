package entities

// Server is a registered worker process: its id, the queues it polls, its worker count, and the two timestamps
// monitoring and liveness-detection need. Servers are not expirable; liveness is instead judged by comparing
// HeartbeatAt against a caller-supplied timeout (ServerDeleteInactive).
type Server struct {
	ID          string
	Queues      []string
	WorkerCount int
	StartedAt   Time
	HeartbeatAt Time
}

// NewServer constructs a Server announced at now.
func NewServer(id string, queues []string, workerCount int, now Time) *Server {
	return &Server{ID: id, Queues: queues, WorkerCount: workerCount, StartedAt: now, HeartbeatAt: now}
}

// Heartbeat refreshes the server's last-seen timestamp.
func (s *Server) Heartbeat(now Time) {
	s.HeartbeatAt = now
}
