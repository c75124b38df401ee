package client

import (
	"sync"
	"time"
)

// Suppressor breaks the echo loop between remote patches and local change
// publication. Applying a remote patch mutates local state, which would
// otherwise be observed as a local edit and published right back. Mark opens
// a short window during which Active reports true and publication must be
// skipped.
type Suppressor struct {
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	until time.Time
}

// NewSuppressor creates a suppressor with the given window.
func NewSuppressor(window time.Duration) *Suppressor {
	return &Suppressor{window: window, now: time.Now}
}

// Mark opens (or extends) the suppression window.
func (s *Suppressor) Mark() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.until = s.now().Add(s.window)
}

// Active reports whether publication is currently suppressed.
func (s *Suppressor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.until)
}
