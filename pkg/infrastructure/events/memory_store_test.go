package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventStore_AppendAndRead(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	run := uuid.New()
	stream := RunStream(run)

	require.NoError(t, store.AppendEvent(stream, NewEvent(PlanRequestedEvent, stream, PlanRequested{RunID: run})))
	require.NoError(t, store.AppendEvent(stream, NewEvent(ModelBuiltEvent, stream, ModelBuilt{RunID: run, Variables: 10})))
	require.NoError(t, store.AppendEvent("other", NewEvent(PlanFailedEvent, "other", PlanFailed{Stage: "build"})))

	events, err := store.ReadEvents(stream, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, PlanRequestedEvent, events[0].Type())
	assert.Equal(t, 1, events[0].Version())
	assert.Equal(t, 2, events[1].Version())
	assert.Equal(t, 10, events[1].Data().(ModelBuilt).Variables)

	tail, err := store.ReadEvents(stream, 2)
	require.NoError(t, err)
	assert.Len(t, tail, 1)

	none, err := store.ReadEvents("missing", 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := store.ReadAllEvents(1)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 3, store.Len())
}

func TestInMemoryEventStore_Subscribe(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var got []string
	var mu sync.Mutex
	handler := &HandlerFunc{
		Types: []string{PlanFailedEvent},
		Fn: func(e Event) error {
			mu.Lock()
			got = append(got, e.Type())
			mu.Unlock()
			wg.Done()
			return errors.New("handler errors are logged, not returned")
		},
	}
	require.NoError(t, store.Subscribe([]string{PlanFailedEvent}, handler))

	require.NoError(t, store.AppendEvent("s", NewEvent(ModelSolvedEvent, "s", nil)))
	require.NoError(t, store.AppendEvent("s", NewEvent(PlanFailedEvent, "s", PlanFailed{Stage: "solve"})))

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not notified")
	}
	mu.Lock()
	assert.Equal(t, []string{PlanFailedEvent}, got)
	mu.Unlock()

	require.NoError(t, store.Unsubscribe(handler))
}

func TestInMemoryEventStore_RunHistory(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	first, second := uuid.New(), uuid.New()

	for _, e := range []struct {
		run uuid.UUID
		typ string
	}{
		{first, PlanRequestedEvent},
		{second, PlanRequestedEvent},
		{first, PlanFailedEvent},
	} {
		stream := RunStream(e.run)
		require.NoError(t, store.AppendEvent(stream, NewEvent(e.typ, stream, nil)))
	}

	history := store.RunHistory(first)
	require.Len(t, history, 2)
	assert.Equal(t, PlanRequestedEvent, history[0].Type())
	assert.Equal(t, PlanFailedEvent, history[1].Type())
	assert.Len(t, store.RunHistory(second), 1)
	assert.Empty(t, store.RunHistory(uuid.New()))
}

func TestInMemoryEventStore_FlushWaitsForHandlers(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	var mu sync.Mutex
	var got []string
	handler := &HandlerFunc{
		Types: PlanningEventTypes,
		Fn: func(e Event) error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			got = append(got, e.Type())
			mu.Unlock()
			return nil
		},
	}
	require.NoError(t, store.Subscribe(PlanningEventTypes, handler))

	for _, eventType := range PlanningEventTypes {
		require.NoError(t, store.AppendEvent("s", NewEvent(eventType, "s", nil)))
	}
	store.Flush()

	mu.Lock()
	assert.ElementsMatch(t, PlanningEventTypes, got)
	mu.Unlock()

	require.NoError(t, store.Unsubscribe(handler))
	require.NoError(t, store.AppendEvent("s", NewEvent(PlanFailedEvent, "s", nil)))
	store.Flush()

	mu.Lock()
	assert.Len(t, got, len(PlanningEventTypes))
	mu.Unlock()
}
