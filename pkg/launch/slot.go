package launch

import "sync"

// ErrorSlot holds the most recent launch error until a consumer takes it.
// A newer error replaces an unconsumed older one.
type ErrorSlot struct {
	mu  sync.Mutex
	err error
}

// Set stores err. A nil err is ignored.
func (s *ErrorSlot) Set(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Take returns the stored error and clears the slot.
func (s *ErrorSlot) Take() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Peek returns the stored error without clearing it.
func (s *ErrorSlot) Peek() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
