package compute

import (
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/underlx/delaywatch/dataobjects"
)

// StatsHandler keeps running statistics about ingestion batches
type StatsHandler struct {
	mu            sync.Mutex
	delayAvg      *movingaverage.MovingAverage
	samples       int
	batches       int
	failedBatches int
	storedRows    int
	lastBatch     IngestResult
}

// StatsSnapshot is a copy of the statistics at one point in time
type StatsSnapshot struct {
	Batches         int
	FailedBatches   int
	StoredRows      int
	AvgDelayMinutes float64
	LastBatch       IngestResult
	LastBatchAgo    time.Duration
}

// NewStatsHandler returns a StatsHandler averaging delays over the last window departures
func NewStatsHandler(window int) *StatsHandler {
	if window < 1 {
		window = 1
	}
	return &StatsHandler{
		delayAvg: movingaverage.New(window),
	}
}

// RegisterBatch records the outcome of an ingestion batch. departures are the
// rows the batch stored; only their delays enter the moving average.
func (h *StatsHandler) RegisterBatch(result IngestResult, departures []*dataobjects.Departure) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.batches++
	h.lastBatch = result
	if !result.OK {
		h.failedBatches++
		return
	}
	h.storedRows += result.Stored
	for _, departure := range departures {
		h.delayAvg.Add(float64(departure.DelayMinutes))
		h.samples++
	}
}

// Snapshot returns the current statistics
func (h *StatsHandler) Snapshot() StatsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := StatsSnapshot{
		Batches:       h.batches,
		FailedBatches: h.failedBatches,
		StoredRows:    h.storedRows,
		LastBatch:     h.lastBatch,
	}
	if h.samples > 0 {
		s.AvgDelayMinutes = h.delayAvg.Avg()
	}
	if !h.lastBatch.CapturedAt.IsZero() {
		s.LastBatchAgo = time.Since(h.lastBatch.CapturedAt)
	}
	return s
}
