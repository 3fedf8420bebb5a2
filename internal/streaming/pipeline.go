package streaming

import (
	"strings"
	"sync"

	"github.com/kubiyabot/timeline/internal/timeline"
)

// EventFilter decides whether an event reaches the timeline
type EventFilter interface {
	// Filter returns the (possibly modified) event and whether it should be
	// passed through (true) or skipped (false)
	Filter(event timeline.Event) (timeline.Event, bool)
}

// EventPipeline runs events through a chain of filters, folds the survivors
// into a timeline session and renders each resulting update
type EventPipeline struct {
	session  *timeline.Session
	renderer MessageRenderer
	filters  []EventFilter
	mu       sync.Mutex
}

// NewEventPipeline creates a new EventPipeline for the given session and renderer
func NewEventPipeline(session *timeline.Session, renderer MessageRenderer) *EventPipeline {
	return &EventPipeline{
		session:  session,
		renderer: renderer,
		filters:  make([]EventFilter, 0),
	}
}

// AddFilter adds a filter to the pipeline
func (p *EventPipeline) AddFilter(filter EventFilter) *EventPipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters = append(p.filters, filter)
	return p
}

// Session returns the session the pipeline feeds
func (p *EventPipeline) Session() *timeline.Session {
	return p.session
}

// Process applies all filters to the event, folds it into the session and
// renders the update. Terminal events are never filtered out.
func (p *EventPipeline) Process(event timeline.Event) error {
	p.mu.Lock()
	filters := make([]EventFilter, len(p.filters))
	copy(filters, p.filters)
	p.mu.Unlock()

	if !timeline.IsTerminal(event) {
		for _, filter := range filters {
			var shouldPass bool
			event, shouldPass = filter.Filter(event)
			if !shouldPass {
				return nil // Event filtered out
			}
		}
	}

	update, accepted := p.session.Apply(event)
	if !accepted || update.Empty() {
		return nil
	}
	return p.renderer.RenderUpdate(update)
}

// Fail records an out-of-band failure in the session and renders it
func (p *EventPipeline) Fail(reason string) error {
	update := p.session.Fail(reason)
	if update.Empty() {
		return nil
	}
	return p.renderer.RenderUpdate(update)
}

// Flush flushes the underlying renderer
func (p *EventPipeline) Flush() error {
	return p.renderer.Flush()
}

// Close closes the underlying renderer
func (p *EventPipeline) Close() error {
	return p.renderer.Close()
}

// DebugKeywordFilter forwards debug events only when their text contains one
// of the configured keywords. With no keywords every debug event passes.
type DebugKeywordFilter struct {
	keywords []string
}

// NewDebugKeywordFilter creates a new DebugKeywordFilter
func NewDebugKeywordFilter(keywords ...string) *DebugKeywordFilter {
	kept := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			kept = append(kept, k)
		}
	}
	return &DebugKeywordFilter{keywords: kept}
}

// Filter implements EventFilter
func (f *DebugKeywordFilter) Filter(event timeline.Event) (timeline.Event, bool) {
	if len(f.keywords) == 0 {
		return event, true
	}

	var text string
	switch e := event.(type) {
	case timeline.DebugEvent:
		text = e.Text
	case *timeline.DebugEvent:
		if e == nil {
			return event, true
		}
		text = e.Text
	default:
		return event, true
	}

	for _, k := range f.keywords {
		if strings.Contains(text, k) {
			return event, true
		}
	}
	return event, false
}

// EventKindFilter drops events of the given kinds entirely
type EventKindFilter struct {
	dropped map[timeline.EventKind]bool
}

// NewEventKindFilter creates a new EventKindFilter that drops the specified kinds
func NewEventKindFilter(kinds ...timeline.EventKind) *EventKindFilter {
	dropped := make(map[timeline.EventKind]bool)
	for _, k := range kinds {
		dropped[k] = true
	}
	return &EventKindFilter{dropped: dropped}
}

// Filter implements EventFilter
func (f *EventKindFilter) Filter(event timeline.Event) (timeline.Event, bool) {
	kind, ok := timeline.KindOf(event)
	if !ok {
		return event, true
	}
	return event, !f.dropped[kind]
}

// DeduplicationFilter skips a status event identical to the previous status
// event
type DeduplicationFilter struct {
	lastStatus string
	hasLast    bool
	mu         sync.Mutex
}

// NewDeduplicationFilter creates a new DeduplicationFilter
func NewDeduplicationFilter() *DeduplicationFilter {
	return &DeduplicationFilter{}
}

// Filter implements EventFilter
func (f *DeduplicationFilter) Filter(event timeline.Event) (timeline.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var text string
	switch e := event.(type) {
	case timeline.StatusEvent:
		text = e.Text
	case *timeline.StatusEvent:
		if e == nil {
			return event, true
		}
		text = e.Text
	default:
		// Any other event breaks a run of repeated statuses
		f.hasLast = false
		return event, true
	}

	if f.hasLast && text == f.lastStatus {
		return event, false // Skip duplicate
	}

	f.lastStatus = text
	f.hasLast = true
	return event, true
}
