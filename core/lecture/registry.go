package lecture

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Session binds one live transport connection to one identity and, optionally,
// one room membership.
// Every field but conn is guarded by mu. userID, identity and roomID only change
// with the lock of the room concerned held.
type Session struct {
	conn Conn

	mu             sync.RWMutex
	userID         string
	identity       Identity
	roomID         string
	position       *Position
	joinedAt       time.Time
	lastActivityAt time.Time
	detached       bool // unbound from the registry; never bound again
}

func (s *Session) ConnectionID() string { return s.conn.ID() }

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivityAt
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivityAt = now
	s.mu.Unlock()
}

func (s *Session) setPosition(p Position) {
	s.mu.Lock()
	s.position = &p
	s.mu.Unlock()
}

// bindRoom must be called with the room lock held.
// It reports false once the session has been unbound from the registry.
func (s *Session) bindRoom(userID, roomID string, identity Identity, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return false
	}
	s.userID = userID
	s.roomID = roomID
	s.identity = identity
	s.position = nil
	s.joinedAt = now
	s.lastActivityAt = now
	return true
}

func (s *Session) detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}

// clearRoom must be called with the room lock held.
func (s *Session) clearRoom() {
	s.mu.Lock()
	s.roomID = ""
	s.position = nil
	s.mu.Unlock()
}

func (s *Session) member() Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := Member{UserID: s.userID, UserInfo: s.identity}
	if s.position != nil {
		p := *s.position
		m.Position = &p
	}
	if !s.joinedAt.IsZero() {
		t := s.joinedAt
		m.JoinedAt = &t
	}
	return m
}

func (s *Session) send(name string, payload interface{}) bool {
	sent := s.conn.Send(Event{Name: name, Payload: payload})
	countEvent(name, sent)
	return sent
}

// Registry maps live connection ids to their Session.
// It is pure bookkeeping: lookups on unknown ids report absence, never an error.
type Registry struct {
	clock    clock.Clock
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		clock:    clk,
		sessions: make(map[string]*Session),
	}
}

// Connect registers conn and returns its unbound Session.
// Connecting an already registered connection returns the existing Session.
func (r *Registry) Connect(conn Conn) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[conn.ID()]; ok {
		return sess
	}
	sess := &Session{conn: conn, lastActivityAt: r.clock.Now()}
	r.sessions[conn.ID()] = sess
	metricConnections.Set(float64(len(r.sessions)))
	return sess
}

// Bind records the identity and room of a connection. Binding is idempotent.
// When roomID is set, the caller must hold that room's lock.
// It reports false for unknown or already unbound connections.
func (r *Registry) Bind(connID, userID, roomID string, identity Identity) (*Session, bool) {
	sess, ok := r.Lookup(connID)
	if !ok || !sess.bindRoom(userID, roomID, identity, r.clock.Now()) {
		return nil, false
	}
	return sess, true
}

func (r *Registry) Lookup(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[connID]
	return sess, ok
}

// Unbind forgets a connection and returns its Session. Only the first call for a
// given connection reports a Session.
func (r *Registry) Unbind(connID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[connID]
	if ok {
		sess.detach()
		delete(r.sessions, connID)
		metricConnections.Set(float64(len(r.sessions)))
	}
	return sess, ok
}

// Sessions returns a snapshot of all registered sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
