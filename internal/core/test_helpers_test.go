package core

import (
	"sync"
	"time"
)

type published struct {
	topic string
	msg   ChatMessage
}

// recordingBroadcaster captures every Publish call.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBroadcaster) Publish(topic string, msg ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{topic: topic, msg: msg})
}

func (b *recordingBroadcaster) all() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]published, len(b.events))
	copy(out, b.events)
	return out
}

// sequenceGenerator replays codes in order and then repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	if idx >= len(g.codes) {
		idx = len(g.codes) - 1
	}
	g.calls++
	return g.codes[idx]
}

type lifecycleEvent struct {
	kind  string
	code  string
	count int
}

type recordingObserver struct {
	mu     sync.Mutex
	events []lifecycleEvent
}

func (o *recordingObserver) RoomCreated(code, _ string, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, lifecycleEvent{kind: "created", code: code})
}

func (o *recordingObserver) RoomClosed(code string, messageCount int, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, lifecycleEvent{kind: "closed", code: code, count: messageCount})
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestRouter(gen CodeGenerator, opts ...RegistryOption) (*Registry, *Router, *recordingBroadcaster) {
	reg := NewRegistry(gen, opts...)
	b := &recordingBroadcaster{}
	return reg, NewRouter(reg, b), b
}

func mustGenerator() CodeGenerator {
	gen, err := NewRandomCodeGenerator()
	if err != nil {
		panic(err)
	}
	return gen
}
