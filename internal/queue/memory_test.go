package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

func sampleEvent(id string) model.FileEvent {
	return model.FileEvent{
		ID:              id,
		Metadata:        model.FileMetadata{SourcePath: "/tmp/in/a.txt", SizeBytes: 5},
		DiscoveredAtUtc: time.Now().UTC(),
		Protocol:        model.ProtocolLocal,
	}
}

func TestMemoryQueueEnqueueDrainAcknowledge(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	id1, err := q.Enqueue(ctx, sampleEvent("evt-1"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, sampleEvent("evt-2"))
	require.NoError(t, err)

	batch, err := q.Drain(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "evt-1", batch[0].Event.ID)
	assert.Equal(t, id1, batch[0].EntryID)

	require.NoError(t, q.Acknowledge(ctx, batch[0].EntryID))

	rest, err := q.Drain(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "evt-2", rest[0].Event.ID)
}

func TestMemoryQueueEnqueueRejectsInvalidEvent(t *testing.T) {
	q := NewMemoryQueue()
	_, err := q.Enqueue(context.Background(), model.FileEvent{})
	require.Error(t, err)
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestMemoryQueuePreservesEnqueueOrder(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, sampleEvent(string(rune('a'+i))))
		require.NoError(t, err)
	}
	batch, err := q.Drain(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 5)
	for i, d := range batch {
		assert.Equal(t, string(rune('a'+i)), d.Event.ID)
	}
}

func TestMemoryQueueIterateDeliversAndRespectsCancellation(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := q.Iterate(ctx)
	require.NoError(t, err)

	_, err = q.Enqueue(ctx, sampleEvent("evt-iter"))
	require.NoError(t, err)

	select {
	case d := <-ch:
		assert.Equal(t, "evt-iter", d.Event.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancellation")
	}
}
