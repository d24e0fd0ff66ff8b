package session

import (
	"lumochat/internal/app/user"
)

// Status is the lifecycle stage of a State.
type Status int

const (
	// StatusConnecting is the stage before Register has been attempted.
	StatusConnecting Status = iota

	// StatusRegistered means Register was attempted and no roster has arrived yet.
	StatusRegistered

	// StatusActive means at least one roster has been applied.
	StatusActive

	// StatusClosed is terminal; the State no longer receives frames.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusRegistered:
		return "registered"
	case StatusActive:
		return "active"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ID returns the State's process-unique identifier, used in logs.
func (s *State) ID() string {
	return s.id
}

// Identity returns the display name this State registered with.
func (s *State) Identity() string {
	return s.identity
}

// Status returns the current lifecycle stage.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// Roster returns a copy of the current roster.
func (s *State) Roster() []user.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.Profile, len(s.roster))
	copy(out, s.roster)
	return out
}

// Messages returns a copy of the whole message log.
func (s *State) Messages() []Entry {
	return s.MessagesSince(0)
}

// MessagesSince returns a copy of the log entries from index from onward. Out-of-range
// indexes yield an empty slice.
func (s *State) MessagesSince(from int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from >= len(s.log) {
		return []Entry{}
	}

	out := make([]Entry, len(s.log)-from)
	copy(out, s.log[from:])
	return out
}

// Len returns the number of log entries.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.log)
}

// Draft returns the body of the last message that could not be sent, or "".
func (s *State) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.draft
}
