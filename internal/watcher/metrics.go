package watcher

import (
	"sync/atomic"
	"time"
)

type DispatchMetrics struct {
	received    int64
	ignored     int64
	directories int64
	suppressed  int64
	announced   int64
	invoked     int64
	throttled   int64
	failed      int64
	lastEvent   atomic.Int64
}

func NewDispatchMetrics() *DispatchMetrics {
	return &DispatchMetrics{}
}

func (m *DispatchMetrics) RecordReceived(now time.Time) {
	atomic.AddInt64(&m.received, 1)
	m.lastEvent.Store(now.UnixNano())
}

func (m *DispatchMetrics) RecordIgnored() {
	atomic.AddInt64(&m.ignored, 1)
}

func (m *DispatchMetrics) RecordDirectory() {
	atomic.AddInt64(&m.directories, 1)
}

func (m *DispatchMetrics) RecordSuppressed() {
	atomic.AddInt64(&m.suppressed, 1)
}

func (m *DispatchMetrics) RecordAnnounced() {
	atomic.AddInt64(&m.announced, 1)
}

func (m *DispatchMetrics) RecordInvoked() {
	atomic.AddInt64(&m.invoked, 1)
}

func (m *DispatchMetrics) RecordThrottled() {
	atomic.AddInt64(&m.throttled, 1)
}

func (m *DispatchMetrics) RecordFailed() {
	atomic.AddInt64(&m.failed, 1)
}

func (m *DispatchMetrics) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"received":    atomic.LoadInt64(&m.received),
		"ignored":     atomic.LoadInt64(&m.ignored),
		"directories": atomic.LoadInt64(&m.directories),
		"suppressed":  atomic.LoadInt64(&m.suppressed),
		"announced":   atomic.LoadInt64(&m.announced),
		"invoked":     atomic.LoadInt64(&m.invoked),
		"throttled":   atomic.LoadInt64(&m.throttled),
		"failed":      atomic.LoadInt64(&m.failed),
	}
	if ns := m.lastEvent.Load(); ns != 0 {
		stats["last_event_time"] = time.Unix(0, ns)
	}
	return stats
}
