package session

import (
	"slices"
	"sync"
)

// ParticipantSet is the set of remote identities known to the current call.
type ParticipantSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewParticipantSet() *ParticipantSet {
	return &ParticipantSet{ids: make(map[string]struct{})}
}

// Upsert adds identity. Adding a known identity is a no-op.
func (s *ParticipantSet) Upsert(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[identity] = struct{}{}
}

func (s *ParticipantSet) Remove(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, identity)
}

func (s *ParticipantSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
}

func (s *ParticipantSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Snapshot returns the identities sorted, so renders are stable.
func (s *ParticipantSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
