package corpus

import "sync/atomic"

// Holder publishes the current Store. Readers get a consistent snapshot;
// Swap replaces it atomically.
type Holder struct {
	current atomic.Pointer[Store]
}

func NewHolder(s *Store) *Holder {
	h := &Holder{}
	if s == nil {
		s = Empty()
	}
	h.current.Store(s)
	return h
}

func (h *Holder) Current() *Store {
	return h.current.Load()
}

// Swap publishes s and returns the previous snapshot.
func (h *Holder) Swap(s *Store) *Store {
	if s == nil {
		s = Empty()
	}
	return h.current.Swap(s)
}
