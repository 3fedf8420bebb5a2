package streaming

import (
	"bytes"
	"testing"

	"github.com/kubiyabot/timeline/internal/timeline"
)

// MockRenderer is a test implementation of MessageRenderer
type MockRenderer struct {
	Updates []timeline.Update
	Flushed bool
	Closed  bool
}

func (m *MockRenderer) RenderUpdate(update timeline.Update) error {
	m.Updates = append(m.Updates, update)
	return nil
}

func (m *MockRenderer) Flush() error {
	m.Flushed = true
	return nil
}

func (m *MockRenderer) Close() error {
	m.Closed = true
	return nil
}

// Appended flattens all appended messages in render order
func (m *MockRenderer) Appended() []timeline.DisplayMessage {
	var out []timeline.DisplayMessage
	for _, u := range m.Updates {
		out = append(out, u.Appended...)
	}
	return out
}

func TestMockRendererImplementsInterface(t *testing.T) {
	var _ MessageRenderer = &MockRenderer{}
	var _ MessageRenderer = &TextRenderer{}
	var _ MessageRenderer = &JSONRenderer{}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		explicit    string
		interactive bool
		want        StreamFormat
	}{
		{"text", false, StreamFormatText},
		{"json", true, StreamFormatJSON},
		{"auto", true, StreamFormatText},
		{"auto", false, StreamFormatJSON},
		{"", true, StreamFormatText},
		{"yaml", false, StreamFormatJSON},
	}

	for _, tt := range tests {
		if got := ResolveFormat(tt.explicit, tt.interactive); got != tt.want {
			t.Errorf("ResolveFormat(%q, %v) = %s, want %s", tt.explicit, tt.interactive, got, tt.want)
		}
	}
}

func TestNewRenderer(t *testing.T) {
	var buf bytes.Buffer

	if _, ok := NewRenderer(StreamFormatText, &buf, false).(*TextRenderer); !ok {
		t.Error("expected TextRenderer for text format")
	}
	if _, ok := NewRenderer(StreamFormatJSON, &buf, false).(*JSONRenderer); !ok {
		t.Error("expected JSONRenderer for json format")
	}
	if _, ok := NewRenderer(StreamFormatAuto, &buf, false).(*JSONRenderer); !ok {
		t.Error("expected JSONRenderer for unresolved format")
	}
}
