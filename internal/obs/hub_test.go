package obs

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestHubCountersIncrement(t *testing.T) {
	h := NewHub(prometheus.NewRegistry())
	h.IncFilesProcessed()
	h.IncFilesProcessed()
	assert.Equal(t, float64(2), counterValue(t, h.filesProcessed))

	h.AddBytesCopied(512)
	assert.Equal(t, float64(512), counterValue(t, h.bytesCopied))
}

func TestHubStartSpanReturnsDerivedContext(t *testing.T) {
	h := NewHub(prometheus.NewRegistry())
	ctx, span := h.StartSpan(context.Background(), "file.orchestrate")
	require.NotNil(t, span)
	span.End()
	assert.NotNil(t, ctx)
}

func TestHubObserveDurations(t *testing.T) {
	h := NewHub(prometheus.NewRegistry())
	h.ObserveProcessingDuration(5 * time.Millisecond)
	h.ObservePollCycleDuration(10 * time.Millisecond)
	h.ObserveNotifyPublishDuration(1 * time.Millisecond)
}
