package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LittleAndi/FileHorizon/internal/idempotency"
	"github.com/LittleAndi/FileHorizon/internal/notifier"
	"github.com/LittleAndi/FileHorizon/internal/reader"
	"github.com/LittleAndi/FileHorizon/internal/retry"
	"github.com/LittleAndi/FileHorizon/internal/sink"
	"github.com/LittleAndi/FileHorizon/pkg/model"
)

type fakeRouter struct {
	plans []model.DestinationPlan
	err   *model.Error
}

func (r *fakeRouter) Route(event model.FileEvent) ([]model.DestinationPlan, *model.Error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.plans, nil
}

type fakeReader struct {
	body      string
	openErr   error
	deleted   bool
	deleteErr error
}

func (r *fakeReader) OpenRead(_ context.Context, _ model.FileReference) (io.ReadCloser, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	return io.NopCloser(strings.NewReader(r.body)), nil
}

func (r *fakeReader) GetAttributes(_ context.Context, _ model.FileReference) (reader.Attributes, error) {
	return reader.Attributes{}, nil
}

func (r *fakeReader) Delete(_ context.Context, _ model.FileReference) error {
	r.deleted = true
	return r.deleteErr
}

type fakeSink struct {
	writeErr error
	written  string
}

func (s *fakeSink) Write(_ context.Context, _ string, content io.Reader, _ model.DestinationOptions) (sink.Result, error) {
	if s.writeErr != nil {
		return sink.Result{}, s.writeErr
	}
	data, _ := io.ReadAll(content)
	s.written = string(data)
	return sink.Result{BytesWritten: int64(len(data))}, nil
}

type fakeTransport struct {
	published []notifier.Message
}

func (t *fakeTransport) Publish(_ context.Context, msg notifier.Message) error {
	t.published = append(t.published, msg)
	return nil
}

func sampleEvent() model.FileEvent {
	return model.FileEvent{
		ID:       "evt-1",
		Metadata: model.FileMetadata{SourcePath: "/in/a.txt", SizeBytes: 5},
		Protocol: model.ProtocolLocal,
	}
}

func buildOrchestrator(t *testing.T, plan model.DestinationPlan, rdr *fakeReader, snk *fakeSink) (*Orchestrator, *fakeTransport) {
	t.Helper()
	readers := reader.NewRegistry()
	readers.Register(model.ProtocolLocal, rdr)
	sinks := sink.NewRegistry()
	sinks.Register(plan.Kind, snk)
	transport := &fakeTransport{}
	n := notifier.New(notifier.Config{Enabled: true, Transport: transport, Retry: fastPolicy()})

	o := New(Config{
		Router:            &fakeRouter{plans: []model.DestinationPlan{plan}},
		Readers:           readers,
		Sinks:             sinks,
		Notifier:          n,
		IdempotencyStore:  idempotency.NewMemoryStore(),
		IdempotencyEnabled: true,
	})
	return o, transport
}

func fastPolicy() retry.Policy {
	return retry.Policy{Base: time.Millisecond, Cap: time.Millisecond, MaxAttempts: 1, JitterFraction: 0}
}

func TestProcessSuccessPath(t *testing.T) {
	plan := model.DestinationPlan{DestinationName: "OutboxA", TargetPath: "/out/a.txt", Kind: model.DestinationLocal}
	rdr := &fakeReader{body: "hello"}
	snk := &fakeSink{}
	o, transport := buildOrchestrator(t, plan, rdr, snk)

	outcome := o.Process(context.Background(), sampleEvent())
	require.True(t, outcome.Success)
	assert.Equal(t, "hello", snk.written)
	require.Len(t, transport.published, 1)
}

func TestProcessDuplicateEventShortCircuits(t *testing.T) {
	plan := model.DestinationPlan{DestinationName: "OutboxA", TargetPath: "/out/a.txt", Kind: model.DestinationLocal}
	rdr := &fakeReader{body: "hello"}
	snk := &fakeSink{}
	o, transport := buildOrchestrator(t, plan, rdr, snk)

	event := sampleEvent()
	first := o.Process(context.Background(), event)
	second := o.Process(context.Background(), event)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, 1, transport.callCountForDuplicateCheck(), "duplicate event must not re-invoke sink/notify")
}

func (t *fakeTransport) callCountForDuplicateCheck() int { return len(t.published) }

func TestProcessRouteFailureNotifiesFailureAndReturnsError(t *testing.T) {
	readers := reader.NewRegistry()
	sinks := sink.NewRegistry()
	transport := &fakeTransport{}
	n := notifier.New(notifier.Config{Enabled: true, Transport: transport})
	o := New(Config{
		Router:   &fakeRouter{err: model.NewValidation(model.CodeNoRuleMatched, "no rule")},
		Readers:  readers,
		Sinks:    sinks,
		Notifier: n,
	})

	outcome := o.Process(context.Background(), sampleEvent())
	require.False(t, outcome.Success)
	require.NotNil(t, outcome.Err)
	assert.Equal(t, model.CodeNoRuleMatched, outcome.Err.Code)
	require.Len(t, transport.published, 1)
}

func TestProcessDeletesSourceAfterSuccessWhenRequested(t *testing.T) {
	plan := model.DestinationPlan{DestinationName: "OutboxA", TargetPath: "/out/a.txt", Kind: model.DestinationLocal}
	rdr := &fakeReader{body: "hello"}
	snk := &fakeSink{}
	o, _ := buildOrchestrator(t, plan, rdr, snk)

	event := sampleEvent()
	event.DeleteAfterTransfer = true
	outcome := o.Process(context.Background(), event)
	require.True(t, outcome.Success)
	assert.True(t, rdr.deleted)
}

func TestProcessDeletionFailureDoesNotRevertSuccess(t *testing.T) {
	plan := model.DestinationPlan{DestinationName: "OutboxA", TargetPath: "/out/a.txt", Kind: model.DestinationLocal}
	rdr := &fakeReader{body: "hello", deleteErr: errors.New("permission denied")}
	snk := &fakeSink{}
	o, _ := buildOrchestrator(t, plan, rdr, snk)

	event := sampleEvent()
	event.DeleteAfterTransfer = true
	outcome := o.Process(context.Background(), event)
	require.True(t, outcome.Success)
}

func TestProcessSinkFailurePropagatesAsFailureAndNotifies(t *testing.T) {
	plan := model.DestinationPlan{DestinationName: "OutboxA", TargetPath: "/out/a.txt", Kind: model.DestinationLocal}
	rdr := &fakeReader{body: "hello"}
	snk := &fakeSink{writeErr: model.NewFile(model.CodeFileIOError, "disk full", nil)}
	o, transport := buildOrchestrator(t, plan, rdr, snk)

	outcome := o.Process(context.Background(), sampleEvent())
	require.False(t, outcome.Success)
	require.Len(t, transport.published, 1)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(transport.published[0].Body, &decoded))
	assert.Empty(t, decoded["destinations"], "a plan selected but never successfully written to must not be reported as a destination")
}

func TestProcessReadFailureNotifiesWithEmptyDestinations(t *testing.T) {
	plan := model.DestinationPlan{DestinationName: "OutboxA", TargetPath: "/out/a.txt", Kind: model.DestinationLocal}
	rdr := &fakeReader{openErr: model.NewFile(model.CodeFileNotFound, "source file not found", nil)}
	snk := &fakeSink{}
	o, transport := buildOrchestrator(t, plan, rdr, snk)

	outcome := o.Process(context.Background(), sampleEvent())
	require.False(t, outcome.Success)
	require.Len(t, transport.published, 1)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(transport.published[0].Body, &decoded))
	assert.Empty(t, decoded["destinations"])
}
