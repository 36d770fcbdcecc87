package state

import "sync"

// Store guards the shared State. Network calls must happen outside Update so
// that each logical change is applied in one critical section.
type Store struct {
	mu sync.Mutex
	st State
}

func New() *Store {
	return &Store{st: newState()}
}

// Update applies fn under the lock.
func (s *Store) Update(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
}

// View runs fn under the lock. fn must not retain st or mutate it.
func (s *Store) View(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
}

// Snapshot returns a deep copy suitable for rendering off the lock.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

func (s *Store) Reset() {
	s.Update(func(st *State) { st.Reset() })
}

func (s *Store) ScanID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ScanID
}
