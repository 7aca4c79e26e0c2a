package relay

import (
	"sync"
	"time"
)

// MetricsCollector records relay throughput.
type MetricsCollector interface {
	RecordPublished(subject string, success bool, duration time.Duration)
	RecordConsumed(subject string, success bool, duration time.Duration)
}

// NoOpMetricsCollector discards everything.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordPublished(string, bool, time.Duration) {}
func (NoOpMetricsCollector) RecordConsumed(string, bool, time.Duration)  {}

// Counters is an in-process MetricsCollector exposed through the health endpoint.
type Counters struct {
	mu            sync.Mutex
	published     uint64
	publishFailed uint64
	consumed      uint64
	consumeFailed uint64
	lastSuccess   time.Time
	now           func() time.Time
}

func NewCounters(now func() time.Time) *Counters {
	if now == nil {
		now = time.Now
	}
	return &Counters{now: now}
}

func (c *Counters) RecordPublished(_ string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !success {
		c.publishFailed++
		return
	}
	c.published++
	c.lastSuccess = c.now()
}

func (c *Counters) RecordConsumed(_ string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !success {
		c.consumeFailed++
		return
	}
	c.consumed++
	c.lastSuccess = c.now()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Published     uint64    `json:"published"`
	PublishFailed uint64    `json:"publish_failed"`
	Consumed      uint64    `json:"consumed"`
	ConsumeFailed uint64    `json:"consume_failed"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Published:     c.published,
		PublishFailed: c.publishFailed,
		Consumed:      c.consumed,
		ConsumeFailed: c.consumeFailed,
		LastSuccess:   c.lastSuccess,
	}
}
