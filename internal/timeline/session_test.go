package timeline

import (
	"testing"
)

func TestSession_Lifecycle(t *testing.T) {
	tests := []struct {
		name      string
		events    []Event
		wantState SessionState
	}{
		{"no events", nil, SessionNotStarted},
		{"streaming", []Event{StatusEvent{Text: "go"}}, SessionStreaming},
		{"complete", []Event{StatusEvent{Text: "go"}, CompleteEvent{}}, SessionCompleted},
		{"successful result", []Event{ResultEvent{Value: "ok"}}, SessionCompleted},
		{"failed result", []Event{ResultEvent{IsError: true, Value: "bad"}}, SessionFailed},
		{"error", []Event{StatusEvent{Text: "go"}, ErrorEvent{Text: "lost"}}, SessionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s1", newTestReducer())
			for _, e := range tt.events {
				s.Apply(e)
			}
			if s.State() != tt.wantState {
				t.Errorf("expected state=%s, got %s", tt.wantState, s.State())
			}
		})
	}
}

func TestSession_TerminalIsSticky(t *testing.T) {
	s := NewSession("s1", newTestReducer())
	s.Apply(CompleteEvent{})

	_, accepted := s.Apply(StatusEvent{Text: "late"})
	if accepted {
		t.Error("expected events after completion to be rejected")
	}
	if s.Reducer().Len() != 1 {
		t.Errorf("expected 1 message, got %d", s.Reducer().Len())
	}

	if u := s.Fail("too late"); !u.Empty() {
		t.Error("expected Fail after completion to be a no-op")
	}
	if s.State() != SessionCompleted {
		t.Errorf("expected state=completed, got %s", s.State())
	}
}

func TestSession_Fail(t *testing.T) {
	s := NewSession("s1", newTestReducer())
	s.Apply(StatusEvent{Text: "go"})

	u := s.Fail("idle timeout")
	if len(u.Appended) != 1 {
		t.Fatalf("expected 1 appended message, got %d", len(u.Appended))
	}
	if u.Appended[0].Kind != MessageKindError {
		t.Errorf("expected kind=error, got %s", u.Appended[0].Kind)
	}
	if s.State() != SessionFailed {
		t.Errorf("expected state=failed, got %s", s.State())
	}
}

func TestSession_Reset(t *testing.T) {
	s := NewSession("s1", nil)
	s.Apply(ErrorEvent{Text: "x"})
	s.Reset()

	if s.State() != SessionNotStarted {
		t.Errorf("expected state=not_started, got %s", s.State())
	}
	if s.Reducer().Len() != 0 {
		t.Errorf("expected empty reducer, got %d messages", s.Reducer().Len())
	}
	if _, accepted := s.Apply(StatusEvent{Text: "again"}); !accepted {
		t.Error("expected session to accept events after reset")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Event{ResultEvent{}, &ResultEvent{}, ErrorEvent{}, CompleteEvent{}, &CompleteEvent{}}
	for _, e := range terminal {
		if !IsTerminal(e) {
			t.Errorf("expected %T to be terminal", e)
		}
	}

	nonTerminal := []Event{StatusEvent{}, DebugEvent{}, MessageEvent{}, nil}
	for _, e := range nonTerminal {
		if IsTerminal(e) {
			t.Errorf("expected %T to be non-terminal", e)
		}
	}
}
