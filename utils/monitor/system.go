// Package monitor watches the custodian process itself: goroutines, heap
// and GC behavior, exported as gauges and logged periodically. Protocol
// observability lives in utils/metrics; this is about the host process.
package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RuntimeMonitor samples process health on a fixed interval.
type RuntimeMonitor struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	interval time.Duration
	metrics  struct {
		goroutines  prometheus.Gauge
		heapAlloc   prometheus.Gauge
		heapObjects prometheus.Gauge
		gcPause     prometheus.Gauge
	}
	wg sync.WaitGroup
}

// NewRuntimeMonitor registers the gauges with reg (default registerer
// when nil) and starts sampling until ctx is canceled or Cleanup runs.
func NewRuntimeMonitor(ctx context.Context, logger *zap.Logger, reg prometheus.Registerer, interval time.Duration) (*RuntimeMonitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &RuntimeMonitor{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		interval: interval,
	}

	m.metrics.goroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "custodian_goroutines",
		Help: "Current number of goroutines",
	})
	m.metrics.heapAlloc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "custodian_heap_alloc_bytes",
		Help: "Current heap allocation in bytes",
	})
	m.metrics.heapObjects = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "custodian_heap_objects",
		Help: "Current number of heap objects",
	})
	m.metrics.gcPause = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "custodian_gc_pause_seconds",
		Help: "Most recent GC pause duration",
	})

	for _, c := range []prometheus.Collector{
		m.metrics.goroutines,
		m.metrics.heapAlloc,
		m.metrics.heapObjects,
		m.metrics.gcPause,
	} {
		if err := reg.Register(c); err != nil {
			cancel()
			return nil, err
		}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run()
	}()

	return m, nil
}

func (m *RuntimeMonitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *RuntimeMonitor) collect() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	goroutines := runtime.NumGoroutine()
	pause := float64(stats.PauseNs[(stats.NumGC+255)%256]) / float64(time.Second)

	m.metrics.goroutines.Set(float64(goroutines))
	m.metrics.heapAlloc.Set(float64(stats.HeapAlloc))
	m.metrics.heapObjects.Set(float64(stats.HeapObjects))
	m.metrics.gcPause.Set(pause)

	m.logger.Debug("runtime status",
		zap.Int("goroutines", goroutines),
		zap.Uint64("heap_alloc", stats.HeapAlloc),
		zap.Uint64("heap_objects", stats.HeapObjects),
		zap.Uint32("gc_cycles", stats.NumGC))
}

// Snapshot returns the current readings without waiting for a tick.
func (m *RuntimeMonitor) Snapshot() map[string]uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return map[string]uint64{
		"goroutines":   uint64(runtime.NumGoroutine()),
		"heap_alloc":   stats.HeapAlloc,
		"heap_objects": stats.HeapObjects,
		"gc_cycles":    uint64(stats.NumGC),
	}
}

// Cleanup stops sampling and waits for the worker to exit.
func (m *RuntimeMonitor) Cleanup() {
	m.cancel()
	m.wg.Wait()
}
