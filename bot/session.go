package bot

import "sync"

type SessionState int

const (
	StateConnecting SessionState = iota
	StateReady
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the EventSub session of one role. The id is set once by the first welcome
// message and never changes afterwards.
type Session struct {
	role Role

	m     *sync.Mutex
	id    string
	state SessionState
}

func NewSession(role Role) *Session {
	return &Session{
		role: role,
		m:    &sync.Mutex{},
	}
}

func (s *Session) Role() Role {
	return s.role
}

// Establish moves a connecting session to ready. It reports false if the session was
// already established or closed, the id is left untouched in that case.
func (s *Session) Establish(id string) bool {
	s.m.Lock()
	defer s.m.Unlock()

	if s.state != StateConnecting {
		return false
	}

	s.id = id
	s.state = StateReady

	return true
}

func (s *Session) Close() {
	s.m.Lock()
	defer s.m.Unlock()

	s.state = StateClosed
}

// Snapshot returns id and state read together.
func (s *Session) Snapshot() (string, SessionState) {
	s.m.Lock()
	defer s.m.Unlock()

	return s.id, s.state
}

func (s *Session) State() SessionState {
	_, state := s.Snapshot()
	return state
}
