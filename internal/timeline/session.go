package timeline

// SessionState is the lifecycle state of one execution session
type SessionState string

const (
	SessionNotStarted SessionState = "not_started"
	SessionStreaming  SessionState = "streaming"
	SessionCompleted  SessionState = "completed"
	SessionFailed     SessionState = "failed"
)

// IsTerminal reports whether no further events are expected
func (s SessionState) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// Session tracks the caller-side state machine around a Reducer:
// NotStarted -> Streaming -> Completed | Failed. Terminal states are sticky
// until Reset.
type Session struct {
	ID      string
	state   SessionState
	reducer *Reducer
}

// NewSession wraps a reducer in a session with the given id
func NewSession(id string, reducer *Reducer) *Session {
	if reducer == nil {
		reducer = NewReducer()
	}
	return &Session{
		ID:      id,
		state:   SessionNotStarted,
		reducer: reducer,
	}
}

// State returns the current session state
func (s *Session) State() SessionState {
	return s.state
}

// Reducer returns the underlying reducer
func (s *Session) Reducer() *Reducer {
	return s.reducer
}

// Apply feeds one event to the reducer and advances the state machine.
// Events arriving after a terminal state are ignored; accepted reports
// whether the event was applied.
func (s *Session) Apply(event Event) (u Update, accepted bool) {
	if s.state.IsTerminal() {
		return Update{}, false
	}
	if normalize(event) == nil {
		return Update{}, false
	}

	s.state = SessionStreaming
	u = s.reducer.Apply(event)

	if IsTerminal(event) {
		if IsFailure(event) {
			s.state = SessionFailed
		} else {
			s.state = SessionCompleted
		}
	}
	return u, true
}

// Fail appends an error message for a failure that did not arrive through the
// stream (transport error, idle timeout) and moves the session to Failed.
func (s *Session) Fail(reason string) Update {
	if s.state.IsTerminal() {
		return Update{}
	}
	u := s.reducer.Apply(ErrorEvent{Text: reason})
	s.state = SessionFailed
	return u
}

// Reset clears the reducer and returns the session to NotStarted
func (s *Session) Reset() {
	s.reducer.Reset()
	s.state = SessionNotStarted
}
