package driver

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LittleAndi/FileHorizon/internal/notifier"
	"github.com/LittleAndi/FileHorizon/internal/orchestrator"
	"github.com/LittleAndi/FileHorizon/internal/poller"
	"github.com/LittleAndi/FileHorizon/internal/queue"
	"github.com/LittleAndi/FileHorizon/internal/reader"
	"github.com/LittleAndi/FileHorizon/internal/sink"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

type fakeLister struct{ calls int }

func (l *fakeLister) List(_ context.Context, _ poller.SourceConfig) ([]poller.Entry, error) {
	l.calls++
	return nil, nil
}

func TestPollingLoopInvokesCycleOnEachTickAndStopsOnCancel(t *testing.T) {
	lister := &fakeLister{}
	src := poller.Source{Config: poller.SourceConfig{Name: "src-a", Protocol: model.ProtocolLocal}, Lister: lister}
	p := poller.New([]poller.Source{src}, queue.NewMemoryQueue(), nil, nil)

	loop := &PollingLoop{Poller: p, Interval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("polling loop did not stop after cancellation")
	}
	assert.True(t, lister.calls >= 2, "expected at least two ticks worth of cycles")
}

type fakeReader struct{}

func (fakeReader) OpenRead(_ context.Context, _ model.FileReference) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("hello")), nil
}
func (fakeReader) GetAttributes(_ context.Context, _ model.FileReference) (reader.Attributes, error) {
	return reader.Attributes{}, nil
}

type fakeSink struct{}

func (fakeSink) Write(_ context.Context, _ string, content io.Reader, _ model.DestinationOptions) (sink.Result, error) {
	data, _ := io.ReadAll(content)
	return sink.Result{BytesWritten: int64(len(data))}, nil
}

type fakeRouter struct{ plan model.DestinationPlan }

func (r *fakeRouter) Route(_ model.FileEvent) ([]model.DestinationPlan, *model.Error) {
	return []model.DestinationPlan{r.plan}, nil
}

type fakeTransport struct{ published int }

func (t *fakeTransport) Publish(_ context.Context, _ notifier.Message) error {
	t.published++
	return nil
}

func buildTestOrchestrator() *orchestrator.Orchestrator {
	plan := model.DestinationPlan{DestinationName: "OutboxA", TargetPath: "/out/a.txt", Kind: model.DestinationLocal}
	readers := reader.NewRegistry()
	readers.Register(model.ProtocolLocal, fakeReader{})
	sinks := sink.NewRegistry()
	sinks.Register(plan.Kind, fakeSink{})
	n := notifier.New(notifier.Config{Enabled: true, Transport: &fakeTransport{}})

	return orchestrator.New(orchestrator.Config{
		Router:   &fakeRouter{plan: plan},
		Readers:  readers,
		Sinks:    sinks,
		Notifier: n,
	})
}

func TestProcessingLoopDrainsAndAcknowledgesOnSuccess(t *testing.T) {
	q := queue.NewMemoryQueue()
	_, err := q.Enqueue(context.Background(), model.FileEvent{
		ID:       "evt-1",
		Metadata: model.FileMetadata{SourcePath: "/in/a.txt", SizeBytes: 5},
		Protocol: model.ProtocolLocal,
	})
	require.NoError(t, err)

	loop := &ProcessingLoop{Queue: q, Orchestrator: buildTestOrchestrator(), BatchLimit: 10}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	loop.Run(ctx)

	pending, err := q.Drain(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "successfully processed event must be acknowledged off the pending list")
}

func TestProcessingLoopStopsOnCancel(t *testing.T) {
	q := queue.NewMemoryQueue()
	loop := &ProcessingLoop{Queue: q, Orchestrator: buildTestOrchestrator(), BatchLimit: 10}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processing loop did not stop after cancellation")
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	d := time.Millisecond
	for i := 0; i < 20; i++ {
		d = nextBackoff(d)
	}
	assert.Equal(t, adaptiveBackoffCap, d)
}
