package availability

import (
	"sync"

	"github.com/anstrom/recon/internal/model"
)

// State is the lifecycle stage of one assessment.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateMerged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateMerged:
		return "merged"
	default:
		return "unknown"
	}
}

// session accumulates evidence for one assessment. Once merged, late
// results are dropped.
type session struct {
	mu     sync.Mutex
	state  State
	record model.AvailabilityRecord
}

func newSession(host string) *session {
	return &session{state: StateIdle, record: model.NewAvailabilityRecord(host)}
}

// seedFindings marks every technique as error until it reports.
func (s *session) seedFindings(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.record.FirewallFindings[n] = model.VerdictError
	}
}

func (s *session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to > s.state {
		s.state = to
	}
}

func (s *session) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// update applies fn unless the session was already merged. It reports
// whether fn ran.
func (s *session) update(fn func(*model.AvailabilityRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateMerged {
		return false
	}
	fn(&s.record)
	return true
}

// merge closes the session and returns a copy of the record.
func (s *session) merge(partial bool) model.AvailabilityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateMerged
	s.record.Partial = partial
	return s.record.Clone()
}
