package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltamashPatel/edu-schedule-wiz/pkg/jobs"
)

func TestBusDeliversInlineBeforeStart(t *testing.T) {
	bus := NewBus(jobs.QueueConfig{})

	var got []Event
	unsubscribe := bus.Subscribe("tt-1", func(_ context.Context, evt Event) {
		got = append(got, evt)
	})
	defer unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), Event{Type: TimetableStatusChanged, TimetableID: "tt-1"}))
	require.NoError(t, bus.Publish(context.Background(), Event{Type: TimetableStatusChanged, TimetableID: "tt-2"}))

	require.Len(t, got, 1)
	assert.Equal(t, "tt-1", got[0].TimetableID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].OccurredAt.IsZero())
}

func TestBusCatchAllScopeReceivesEveryTimetable(t *testing.T) {
	bus := NewBus(jobs.QueueConfig{})

	var seen []string
	bus.Subscribe(AllScopes, func(_ context.Context, evt Event) {
		seen = append(seen, evt.TimetableID)
	})

	_ = bus.Publish(context.Background(), Event{Type: TimetableDeleted, TimetableID: "a"})
	_ = bus.Publish(context.Background(), Event{Type: TimetableDeleted, TimetableID: "b"})

	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(jobs.QueueConfig{})

	calls := 0
	unsubscribe := bus.Subscribe("tt-1", func(context.Context, Event) { calls++ })
	assert.Equal(t, 1, bus.Subscribers("tt-1"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, bus.Subscribers("tt-1"))

	_ = bus.Publish(context.Background(), Event{Type: TimetableCreated, TimetableID: "tt-1"})
	assert.Zero(t, calls)
}

func TestBusAsyncDelivery(t *testing.T) {
	bus := NewBus(jobs.QueueConfig{Workers: 2, BufferSize: 8})
	bus.Start(context.Background())
	defer bus.Stop()

	var wg sync.WaitGroup
	wg.Add(3)
	var mu sync.Mutex
	types := map[Type]int{}
	bus.Subscribe("tt-9", func(_ context.Context, evt Event) {
		mu.Lock()
		types[evt.Type]++
		mu.Unlock()
		wg.Done()
	})

	for _, typ := range []Type{TimetableCreated, TimetableSlotsGenerated, TimetableStatusChanged} {
		require.NoError(t, bus.Publish(context.Background(), Event{Type: typ, TimetableID: "tt-9"}))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, types[TimetableCreated])
	assert.Equal(t, 1, types[TimetableSlotsGenerated])
	assert.Equal(t, 1, types[TimetableStatusChanged])
}
