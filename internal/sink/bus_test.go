package sink

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LittleAndi/FileHorizon/pkg/model"
)

type fakePublisher struct {
	failUntilAttempt int32
	attempts         int32
	lastMsg          BusMessage
	lastTopic        string
	permanentErr     error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, msg BusMessage) error {
	n := atomic.AddInt32(&p.attempts, 1)
	p.lastMsg = msg
	p.lastTopic = topic
	if p.permanentErr != nil {
		return p.permanentErr
	}
	if n < p.failUntilAttempt {
		return model.NewTransient(model.CodeBusTransient, "simulated transient failure", nil)
	}
	return nil
}

func fastPolicySink(p Publisher, topic string) *BusSink {
	s := NewBusSink(p, topic)
	s.policy.Base = time.Millisecond
	s.policy.Cap = time.Millisecond
	return s
}

func TestBusSinkPublishesWithSubjectFromFileName(t *testing.T) {
	pub := &fakePublisher{}
	s := fastPolicySink(pub, "notifications")
	result, err := s.Write(context.Background(), "/out/report.csv", strings.NewReader("a,b,c"), model.DestinationOptions{})
	require.Nil(t, err)
	assert.Equal(t, int64(5), result.BytesWritten)
	assert.Equal(t, "report.csv", pub.lastMsg.Subject)
	assert.Equal(t, "notifications", pub.lastTopic)
}

func TestBusSinkRetriesTransientFailures(t *testing.T) {
	pub := &fakePublisher{failUntilAttempt: 3}
	s := fastPolicySink(pub, "topic")
	_, err := s.Write(context.Background(), "/out/a.txt", strings.NewReader("x"), model.DestinationOptions{})
	require.Nil(t, err)
	assert.Equal(t, int32(3), pub.attempts)
}

func TestBusSinkGivesUpAfterMaxRetries(t *testing.T) {
	pub := &fakePublisher{failUntilAttempt: 99}
	s := fastPolicySink(pub, "topic")
	_, err := s.Write(context.Background(), "/out/a.txt", strings.NewReader("x"), model.DestinationOptions{})
	require.NotNil(t, err)
	assert.Equal(t, int32(4), pub.attempts, "base attempt plus up to 3 retries")
}

func TestBusSinkNonRetriableFailsFast(t *testing.T) {
	pub := &fakePublisher{permanentErr: model.NewValidation(model.CodeEmptyID, "bad message")}
	s := fastPolicySink(pub, "topic")
	_, err := s.Write(context.Background(), "/out/a.txt", strings.NewReader("x"), model.DestinationOptions{})
	require.NotNil(t, err)
	assert.Equal(t, int32(1), pub.attempts)
}

func TestBusSinkCancellationDuringBackoffIsTransient(t *testing.T) {
	pub := &fakePublisher{failUntilAttempt: 99}
	s := NewBusSink(pub, "topic")
	s.policy.Base = 50 * time.Millisecond
	s.policy.Cap = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := s.Write(ctx, "/out/a.txt", strings.NewReader("x"), model.DestinationOptions{})
	var fhErr *model.Error
	require.ErrorAs(t, err, &fhErr)
	assert.Equal(t, model.KindTransient, fhErr.Kind)
}
