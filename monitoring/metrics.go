// Package monitoring 提供进程内的预测指标
package monitoring

import (
	"runtime"
	"sort"
	"sync"
	"time"
)

// LatencySummary 推理耗时摘要
type LatencySummary struct {
	Count   int64   `json:"count"`
	SumMs   float64 `json:"sum_ms"`
	MaxMs   float64 `json:"max_ms"`
	AvgMs   float64 `json:"avg_ms"`
	Buckets []int64 `json:"buckets"`
}

// Snapshot 指标快照
type Snapshot struct {
	Uptime      string           `json:"uptime"`
	Goroutines  int              `json:"goroutines"`
	HeapAlloc   uint64           `json:"heap_alloc"`
	Predictions map[string]int64 `json:"predictions"`
	Errors      map[string]int64 `json:"errors"`
	Latency     LatencySummary   `json:"latency"`
	BucketsMs   []float64        `json:"bucket_bounds_ms"`
}

// latencyBuckets 直方图上界（毫秒）
var latencyBuckets = []float64{0.1, 0.5, 1, 5, 10, 50}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	metricsLock sync.RWMutex

	predictions map[string]int64
	errors      map[string]int64
	latency     LatencySummary

	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		predictions: make(map[string]int64),
		errors:      make(map[string]int64),
		latency:     LatencySummary{Buckets: make([]int64, len(latencyBuckets)+1)},
		startTime:   time.Now(),
	}
}

// RecordPrediction 记录一次成功预测
func (mc *MetricsCollector) RecordPrediction(label int, duration time.Duration) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	if label == 1 {
		mc.predictions["high_risk"]++
	} else {
		mc.predictions["low_risk"]++
	}
	mc.observe(duration)
}

// RecordError 按类型记录失败
func (mc *MetricsCollector) RecordError(kind string) {
	if kind == "" {
		return
	}
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	mc.errors[kind]++
}

func (mc *MetricsCollector) observe(duration time.Duration) {
	ms := float64(duration) / float64(time.Millisecond)
	mc.latency.Count++
	mc.latency.SumMs += ms
	if ms > mc.latency.MaxMs {
		mc.latency.MaxMs = ms
	}
	idx := sort.SearchFloat64s(latencyBuckets, ms)
	mc.latency.Buckets[idx]++
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// Snapshot 返回当前指标副本
func (mc *MetricsCollector) Snapshot() Snapshot {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	snap := Snapshot{
		Uptime:      mc.GetUptime().Round(time.Second).String(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   m.HeapAlloc,
		Predictions: make(map[string]int64, len(mc.predictions)),
		Errors:      make(map[string]int64, len(mc.errors)),
		Latency:     mc.latency,
		BucketsMs:   latencyBuckets,
	}
	for k, v := range mc.predictions {
		snap.Predictions[k] = v
	}
	for k, v := range mc.errors {
		snap.Errors[k] = v
	}
	snap.Latency.Buckets = append([]int64(nil), mc.latency.Buckets...)
	if snap.Latency.Count > 0 {
		snap.Latency.AvgMs = snap.Latency.SumMs / float64(snap.Latency.Count)
	}
	return snap
}
