package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AltamashPatel/edu-schedule-wiz/pkg/jobs"
)

// Type names a timetable lifecycle event.
type Type string

const (
	TimetableCreated        Type = "timetable.created"
	TimetableUpdated        Type = "timetable.updated"
	TimetableSlotsGenerated Type = "timetable.slots_generated"
	TimetableStatusChanged  Type = "timetable.status_changed"
	TimetableDeleted        Type = "timetable.deleted"
)

// AllScopes subscribes to every timetable.
const AllScopes = "*"

const jobType = "timetable.event"

// Event is delivered to subscribers of its timetable scope.
type Event struct {
	ID          string                 `json:"id"`
	Type        Type                   `json:"type"`
	TimetableID string                 `json:"timetable_id"`
	ActorID     string                 `json:"actor_id,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Handler receives events. Handlers must not block for long; slow consumers
// should buffer on their side.
type Handler func(ctx context.Context, evt Event)

// Bus fans events out to subscribers keyed by timetable id. Delivery runs on
// the worker queue once Start is called and inline before that.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64

	queue  *jobs.Queue
	logger *zap.Logger
}

// NewBus constructs a bus whose asynchronous delivery is sized by cfg.
func NewBus(cfg jobs.QueueConfig) *Bus {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	b := &Bus{
		subs:   make(map[string]map[uint64]Handler),
		logger: cfg.Logger,
	}
	b.queue = jobs.NewQueue("timetable-events", b.handleJob, cfg)
	return b
}

// Start begins asynchronous delivery.
func (b *Bus) Start(ctx context.Context) {
	b.queue.Start(ctx)
}

// Stop drains pending deliveries.
func (b *Bus) Stop() {
	b.queue.Stop()
}

// Subscribe registers h for events of the given timetable id, or AllScopes.
// The returned func removes the subscription and is safe to call twice.
func (b *Bus) Subscribe(scope string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[scope] == nil {
		b.subs[scope] = make(map[uint64]Handler)
	}
	b.subs[scope][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[scope], id)
			if len(b.subs[scope]) == 0 {
				delete(b.subs, scope)
			}
		})
	}
}

// Subscribers returns the number of handlers registered for scope.
func (b *Bus) Subscribers(scope string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[scope])
}

// Publish stamps and dispatches evt.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	err := b.queue.TryEnqueue(jobs.Job{ID: evt.ID, Type: jobType, Payload: evt})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jobs.ErrNotStarted):
		b.dispatch(ctx, evt)
		return nil
	default:
		b.logger.Warn("dropping timetable event", zap.String("event_id", evt.ID), zap.String("type", string(evt.Type)), zap.Error(err))
		return err
	}
}

func (b *Bus) handleJob(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(Event)
	if !ok {
		return errors.New("unexpected event payload")
	}
	b.dispatch(ctx, evt)
	return nil
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	for _, h := range b.handlersFor(evt.TimetableID) {
		h(ctx, evt)
	}
}

func (b *Bus) handlersFor(scope string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, 0, len(b.subs[scope])+len(b.subs[AllScopes]))
	for _, h := range b.subs[scope] {
		handlers = append(handlers, h)
	}
	if scope != AllScopes {
		for _, h := range b.subs[AllScopes] {
			handlers = append(handlers, h)
		}
	}
	return handlers
}
