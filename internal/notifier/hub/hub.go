package hub

import (
	"log/slog"
	"sync"
)

// Session is one live real-time connection. Events are delivered on Ch;
// slow consumers are dropped rather than blocked, per the best-effort
// at-most-once delivery contract.
type Session struct {
	UserID string
	Ch     chan []byte

	broadcast bool
}

// Hub is the session-routing registry: user id -> live sessions, plus the
// electricians broadcast group. It is an explicitly owned instance passed
// by reference to the dispatcher and the SSE handler, constructed once at
// process start. It holds no lifecycle state, only transport routing, and
// is safe for concurrent insert, remove and lookup.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]map[*Session]struct{}
	electrical map[*Session]struct{}

	logger     *slog.Logger
	bufferSize int
}

func New(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		sessions:   make(map[string]map[*Session]struct{}),
		electrical: make(map[*Session]struct{}),
		logger:     logger,
		bufferSize: bufferSize,
	}
}

// Subscribe registers a live session for the user. Electrician sessions
// additionally join the broadcast group used by job:new fan-out.
func (h *Hub) Subscribe(userID string, electrician bool) *Session {
	s := &Session{
		UserID:    userID,
		Ch:        make(chan []byte, h.bufferSize),
		broadcast: electrician,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Session]struct{})
	}
	h.sessions[userID][s] = struct{}{}
	if electrician {
		h.electrical[s] = struct{}{}
	}

	h.logger.Debug("Session subscribed",
		slog.String("user_id", userID),
		slog.Bool("broadcast", electrician),
	)

	return s
}

// Unsubscribe removes the session and closes its channel.
func (h *Hub) Unsubscribe(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.sessions[s.UserID]; ok {
		if _, member := set[s]; member {
			delete(set, s)
			if len(set) == 0 {
				delete(h.sessions, s.UserID)
			}
			close(s.Ch)
		}
	}
	if s.broadcast {
		delete(h.electrical, s)
	}
}

// Send delivers the payload to every live session of the user and reports
// whether at least one session received it. Full session buffers are
// skipped: the client resynchronizes by refetching state.
func (h *Hub) Send(userID string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for s := range h.sessions[userID] {
		select {
		case s.Ch <- payload:
			delivered = true
		default:
			h.logger.Warn("Dropping event for slow session",
				slog.String("user_id", userID),
			)
		}
	}

	return delivered
}

// Broadcast delivers the payload to every electrician session and returns
// how many sessions received it. Real-time only; broadcast events never
// fall back to push.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.electrical {
		select {
		case s.Ch <- payload:
			delivered++
		default:
			h.logger.Warn("Dropping broadcast event for slow session",
				slog.String("user_id", s.UserID),
			)
		}
	}

	return delivered
}

// Online reports whether the user has at least one live session.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions[userID]) > 0
}
