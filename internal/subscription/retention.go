package subscription

// EventSet retains matched events keyed by their Slack timestamp until they
// are closed explicitly. Like the Registry it is unsynchronized; the owning
// Service serializes access.
//
// With maxSize == 0 the set grows without bound, which is the documented
// contract: retained events accumulate until callers close them. A positive
// maxSize evicts the oldest retained event once the bound is exceeded so a
// subscriber that never closes cannot leak the process to death.
type EventSet struct {
	events  map[string]Event
	order   []string
	maxSize int
}

// NewEventSet returns an event set with the given capacity bound
// (0 = unbounded).
func NewEventSet(maxSize int) *EventSet {
	return &EventSet{
		events:  make(map[string]Event),
		maxSize: maxSize,
	}
}

// Insert retains an event keyed by its timestamp. Re-inserting an event with
// a timestamp that is already present overwrites the stored payload without
// changing its eviction position.
func (s *EventSet) Insert(ev Event) {
	if _, ok := s.events[ev.Ts]; ok {
		s.events[ev.Ts] = ev
		return
	}

	s.events[ev.Ts] = ev
	s.order = append(s.order, ev.Ts)

	if s.maxSize > 0 && len(s.order) > s.maxSize {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.events, oldest)
	}
}

// Find returns the retained event for the given identifier.
func (s *EventSet) Find(eventID string) (Event, bool) {
	ev, ok := s.events[eventID]
	return ev, ok
}

// Remove deletes a retained event and reports whether it was present.
func (s *EventSet) Remove(eventID string) bool {
	if _, ok := s.events[eventID]; !ok {
		return false
	}
	delete(s.events, eventID)
	for i, ts := range s.order {
		if ts == eventID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of retained events.
func (s *EventSet) Len() int {
	return len(s.events)
}
