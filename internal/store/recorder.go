package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Recorder feeds room lifecycle transitions into an AuditStore from a background loop.
// Its callbacks never block: events that do not fit the queue are counted and dropped.
type Recorder struct {
	store   AuditStore
	queue   chan RoomEvent
	log     *zerolog.Logger
	dropped atomic.Uint64
}

// NewRecorder creates a recorder with room for queueSize pending events.
func NewRecorder(st AuditStore, queueSize int, logger *zerolog.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Recorder{
		store: st,
		queue: make(chan RoomEvent, queueSize),
		log:   logger,
	}
}

// RoomCreated queues a created event.
func (r *Recorder) RoomCreated(code, hostName string, at time.Time) {
	r.enqueue(RoomEvent{RoomCode: code, Kind: RoomEventCreated, HostName: hostName, At: at})
}

// RoomClosed queues a closed event.
func (r *Recorder) RoomClosed(code string, messageCount int, at time.Time) {
	r.enqueue(RoomEvent{RoomCode: code, Kind: RoomEventClosed, MessageCount: messageCount, At: at})
}

// Dropped returns how many events were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued events until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-r.queue:
			r.write(ctx, ev)
		case <-ctx.Done():
			r.flush()
			return nil
		}
	}
}

func (r *Recorder) enqueue(ev RoomEvent) {
	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		select {
		case ev := <-r.queue:
			r.write(ctx, ev)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, ev RoomEvent) {
	if _, err := r.store.RecordRoomEvent(ctx, ev); err != nil {
		r.log.Warn().Err(err).Str("room_code", ev.RoomCode).Str("kind", string(ev.Kind)).Msg("failed to record room event")
		return
	}
	r.log.Debug().Str("room_code", ev.RoomCode).Str("kind", string(ev.Kind)).Msg("room event recorded")
}
