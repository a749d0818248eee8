// Package progress fans out pipeline stage transitions to observers,
// keyed by session.
package progress

import (
	"log/slog"
	"sync"
	"time"
)

// Stage is one step of a scraping run.
type Stage string

// Stages in the order a run publishes them.
const (
	StageInitializing Stage = "initializing"
	StageBrowserStart Stage = "browser_start"
	StageLoggingIn    Stage = "logging_in"
	StageNavigating   Stage = "navigating"
	StageSearching    Stage = "searching"
	StageExtracting   Stage = "extracting"
	StageProcessing   Stage = "processing"
	StageComplete     Stage = "complete"
)

// Event is a single progress notification.
type Event struct {
	Stage     Stage     `json:"step"`
	Detail    string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the sink a pipeline reports progress to.
type Publisher interface {
	Publish(session string, stage Stage, detail string)
}

// DefaultBuffer is the per-observer channel capacity.
const DefaultBuffer = 64

// Broker records the latest event per session and forwards every event to
// the observers subscribed to that session.
type Broker struct {
	mu     sync.Mutex
	latest map[string]Event
	subs   map[string]map[*Subscription]struct{}
	buffer int
	now    func() time.Time
}

// NewBroker creates a Broker whose observers buffer up to buffer events.
// A non-positive buffer selects DefaultBuffer.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{
		latest: make(map[string]Event),
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		now:    time.Now,
	}
}

// Subscription is one observer's handle on a session's events.
type Subscription struct {
	session string
	ch      chan Event
	broker  *Broker
}

// Events returns the channel events are delivered on. It is closed when
// the subscription is removed or detached for falling behind.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Session returns the session the subscription observes.
func (s *Subscription) Session() string { return s.session }

// Publish records the event as the session's latest state and forwards it
// to every observer. An observer whose buffer is full is detached; the
// publisher never blocks.
func (b *Broker) Publish(session string, stage Stage, detail string) {
	ev := Event{Stage: stage, Detail: detail, Timestamp: b.now()}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[session] = ev
	for sub := range b.subs[session] {
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("Detaching slow progress observer", "session", session, "stage", stage)
			b.removeLocked(sub)
		}
	}
	slog.Debug("Progress", "session", session, "stage", stage, "detail", detail)
}

// Subscribe registers an observer for session. If the session already has
// a latest event, it is the first event the observer receives.
func (b *Broker) Subscribe(session string) *Subscription {
	sub := &Subscription{session: session, ch: make(chan Event, b.buffer), broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ev, ok := b.latest[session]; ok {
		sub.ch <- ev
	}
	set, ok := b.subs[session]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[session] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it more than
// once is a no-op.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

func (b *Broker) removeLocked(sub *Subscription) {
	set, ok := b.subs[sub.session]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(b.subs, sub.session)
	}
}

// Latest returns the most recent event published for session.
func (b *Broker) Latest(session string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.latest[session]
	return ev, ok
}

// Observers returns the number of observers attached to session.
func (b *Broker) Observers(session string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[session])
}

// Forget drops the latest event recorded for session.
func (b *Broker) Forget(session string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.latest, session)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(string, Stage, string) {}
