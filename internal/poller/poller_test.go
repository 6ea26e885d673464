package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LittleAndi/FileHorizon/internal/queue"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

type fakeLister struct {
	entries []Entry
	err     error
	calls   int
}

func (l *fakeLister) List(_ context.Context, _ SourceConfig) ([]Entry, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.entries, nil
}

func TestCycleEnqueuesReadyFilesImmediatelyWithZeroStabilityWindow(t *testing.T) {
	q := queue.NewMemoryQueue()
	lister := &fakeLister{entries: []Entry{{Path: "/in/a.txt", Size: 10, LastWriteUtc: time.Now().UTC()}}}
	src := Source{Config: SourceConfig{Name: "src-a", Root: "/in", Protocol: model.ProtocolLocal}, Lister: lister}

	p := New([]Source{src}, q, nil, nil)
	p.Cycle(context.Background())

	deliveries, err := q.Drain(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, "/in/a.txt", deliveries[0].Event.Metadata.SourcePath)
}

func TestCycleWithStabilityWindowRequiresSecondUnchangedObservation(t *testing.T) {
	q := queue.NewMemoryQueue()
	mtime := time.Now().UTC()
	lister := &fakeLister{entries: []Entry{{Path: "/in/a.txt", Size: 10, LastWriteUtc: mtime}}}
	src := Source{Config: SourceConfig{Name: "src-a", Root: "/in", Protocol: model.ProtocolLocal, StabilityWindow: time.Hour}, Lister: lister}

	p := New([]Source{src}, q, nil, nil)
	p.Cycle(context.Background())

	deliveries, err := q.Drain(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, deliveries, "first observation establishes a baseline only")
}

func TestCycleDoesNotReenqueueAlreadyDispatchedFile(t *testing.T) {
	q := queue.NewMemoryQueue()
	mtime := time.Now().UTC()
	lister := &fakeLister{entries: []Entry{{Path: "/in/a.txt", Size: 10, LastWriteUtc: mtime}}}
	src := Source{Config: SourceConfig{Name: "src-a", Root: "/in", Protocol: model.ProtocolLocal}, Lister: lister}

	p := New([]Source{src}, q, nil, nil)
	p.Cycle(context.Background())
	p.Cycle(context.Background())

	deliveries, err := q.Drain(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, deliveries, 1, "second cycle must not re-enqueue the unchanged file")
}

func TestCycleSkipsSourceInBackoffWindow(t *testing.T) {
	q := queue.NewMemoryQueue()
	lister := &fakeLister{err: errors.New("connection refused")}
	src := Source{Config: SourceConfig{Name: "src-a", Root: "/in", Protocol: model.ProtocolLocal}, Lister: lister}

	p := New([]Source{src}, q, nil, nil)
	p.Cycle(context.Background())
	p.Cycle(context.Background())

	assert.Equal(t, 1, lister.calls, "second cycle must be skipped while src-a is in its backoff window")
}

func TestCycleRecoversAfterBackoffWindowExpires(t *testing.T) {
	q := queue.NewMemoryQueue()
	lister := &fakeLister{err: errors.New("connection refused")}
	src := Source{Config: SourceConfig{Name: "src-a", Root: "/in", Protocol: model.ProtocolLocal}, Lister: lister}

	p := New([]Source{src}, q, nil, nil)
	p.backoff = NewBackoffTracker(time.Millisecond, time.Millisecond)
	p.Cycle(context.Background())
	time.Sleep(5 * time.Millisecond)
	lister.err = nil
	lister.entries = []Entry{{Path: "/in/a.txt", Size: 10, LastWriteUtc: time.Now().UTC()}}
	p.Cycle(context.Background())

	assert.Equal(t, 2, lister.calls)
}
