package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// PipelineMetrics aggregates the counters of the message pipeline.
// Fail-open paths (classifier or rate store errors) must stay visible
// even though they never reject a message, so they are counted here.
type PipelineMetrics struct {
	Accepted           uint64
	Rejected           uint64
	Throttled          uint64
	ClassifierFailures uint64
	RateStoreFailures  uint64
	FanoutDelivered    uint64
	FanoutDropped      uint64
}

func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{}
}

func (m *PipelineMetrics) IncrAccepted()           { atomic.AddUint64(&m.Accepted, 1) }
func (m *PipelineMetrics) IncrRejected()           { atomic.AddUint64(&m.Rejected, 1) }
func (m *PipelineMetrics) IncrThrottled()          { atomic.AddUint64(&m.Throttled, 1) }
func (m *PipelineMetrics) IncrClassifierFailures() { atomic.AddUint64(&m.ClassifierFailures, 1) }
func (m *PipelineMetrics) IncrRateStoreFailures()  { atomic.AddUint64(&m.RateStoreFailures, 1) }
func (m *PipelineMetrics) IncrFanoutDelivered()    { atomic.AddUint64(&m.FanoutDelivered, 1) }
func (m *PipelineMetrics) IncrFanoutDropped()      { atomic.AddUint64(&m.FanoutDropped, 1) }

// Snapshot reads every counter at once. Values are monotonic since
// process start.
type Snapshot struct {
	Accepted           uint64 `json:"accepted"`
	Rejected           uint64 `json:"rejected"`
	Throttled          uint64 `json:"throttled"`
	ClassifierFailures uint64 `json:"classifier_failures"`
	RateStoreFailures  uint64 `json:"rate_store_failures"`
	FanoutDelivered    uint64 `json:"fanout_delivered"`
	FanoutDropped      uint64 `json:"fanout_dropped"`
}

func (m *PipelineMetrics) Snapshot() Snapshot {
	return Snapshot{
		Accepted:           atomic.LoadUint64(&m.Accepted),
		Rejected:           atomic.LoadUint64(&m.Rejected),
		Throttled:          atomic.LoadUint64(&m.Throttled),
		ClassifierFailures: atomic.LoadUint64(&m.ClassifierFailures),
		RateStoreFailures:  atomic.LoadUint64(&m.RateStoreFailures),
		FanoutDelivered:    atomic.LoadUint64(&m.FanoutDelivered),
		FanoutDropped:      atomic.LoadUint64(&m.FanoutDropped),
	}
}

// Reporter periodically logs a snapshot. It runs under the supervisor
// like any other worker.
type Reporter struct {
	metrics  *PipelineMetrics
	interval time.Duration
	log      *slog.Logger
}

func NewReporter(metrics *PipelineMetrics, interval time.Duration, log *slog.Logger) *Reporter {
	return &Reporter{metrics: metrics, interval: interval, log: log}
}

func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Context done, stopping metrics reporter")
			return nil
		case <-ticker.C:
			s := r.metrics.Snapshot()
			r.log.Info("Pipeline counters",
				"accepted", s.Accepted,
				"rejected", s.Rejected,
				"throttled", s.Throttled,
				"classifier_failures", s.ClassifierFailures,
				"rate_store_failures", s.RateStoreFailures,
				"fanout_delivered", s.FanoutDelivered,
				"fanout_dropped", s.FanoutDropped)
		}
	}
}
