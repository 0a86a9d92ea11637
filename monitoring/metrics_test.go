package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordPrediction(1, 2*time.Millisecond)
	mc.RecordPrediction(0, 200*time.Microsecond)
	mc.RecordPrediction(1, 80*time.Millisecond)
	mc.RecordError("invalid_input")
	mc.RecordError("invalid_input")
	mc.RecordError("model_unavailable")
	mc.RecordError("")

	snap := mc.Snapshot()
	assert.Equal(t, int64(2), snap.Predictions["high_risk"])
	assert.Equal(t, int64(1), snap.Predictions["low_risk"])
	assert.Equal(t, map[string]int64{"invalid_input": 2, "model_unavailable": 1}, snap.Errors)

	assert.Equal(t, int64(3), snap.Latency.Count)
	assert.InDelta(t, 82.2, snap.Latency.SumMs, 1e-6)
	assert.InDelta(t, 80.0, snap.Latency.MaxMs, 1e-6)
	assert.InDelta(t, 27.4, snap.Latency.AvgMs, 1e-6)
	// 0.2ms -> (0.1,0.5], 2ms -> (1,5], 80ms -> overflow
	assert.Equal(t, []int64{0, 1, 0, 1, 0, 0, 1}, snap.Latency.Buckets)
}

func TestSnapshotIsCopy(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordPrediction(0, time.Millisecond)

	snap := mc.Snapshot()
	snap.Predictions["low_risk"] = 100
	snap.Latency.Buckets[0] = 100

	again := mc.Snapshot()
	assert.Equal(t, int64(1), again.Predictions["low_risk"])
	assert.Equal(t, int64(0), again.Latency.Buckets[0])
}

func TestMetricsConcurrent(t *testing.T) {
	mc := NewMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mc.RecordPrediction(i%2, time.Millisecond)
			mc.RecordError("inference_failure")
			_ = mc.Snapshot()
		}(i)
	}
	wg.Wait()

	snap := mc.Snapshot()
	assert.Equal(t, int64(25), snap.Predictions["high_risk"])
	assert.Equal(t, int64(25), snap.Predictions["low_risk"])
	assert.Equal(t, int64(50), snap.Errors["inference_failure"])
}
