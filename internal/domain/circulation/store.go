package circulation

import "sync"

// SessionStore hands out the active staging cart per member. Each cart is
// still owned by exactly one member's circulation transaction; the store
// only guards the map itself against concurrent HTTP requests.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*LoanSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*LoanSession)}
}

// Get returns the member's open session, creating one when absent.
func (s *SessionStore) Get(memberID string) *LoanSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[memberID]
	if !ok {
		sess = NewLoanSession(memberID)
		s.sessions[memberID] = sess
	}
	return sess
}

// Peek returns the member's open session or nil.
func (s *SessionStore) Peek(memberID string) *LoanSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[memberID]
}

// Drop closes the member's session. Called after a commit.
func (s *SessionStore) Drop(memberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, memberID)
}
