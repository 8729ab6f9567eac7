package resource

import (
	"time"

	"github.com/underlx/delaywatch/compute"
	"github.com/yarf-framework/yarf"
)

// Stats composites resource
type Stats struct {
	resource
}

type apiStats struct {
	Batches         int        `msgpack:"batches" json:"batches" xml:"batches"`
	FailedBatches   int        `msgpack:"failedBatches" json:"failedBatches" xml:"failedBatches"`
	StoredRows      int        `msgpack:"storedRows" json:"storedRows" xml:"storedRows"`
	AvgDelayMinutes float64    `msgpack:"avgDelay" json:"avgDelay" xml:"avgDelay"`
	LastBatch       *apiResult `msgpack:"lastBatch" json:"lastBatch" xml:"lastBatch,omitempty"`
}

// WithStatsHandler associates a StatsHandler with this resource
func (r *Stats) WithStatsHandler(stats *compute.StatsHandler) *Stats {
	r.stats = stats
	return r
}

// Get serves HTTP GET requests on this resource
func (r *Stats) Get(c *yarf.Context) error {
	snapshot := r.stats.Snapshot()
	data := apiStats{
		Batches:         snapshot.Batches,
		FailedBatches:   snapshot.FailedBatches,
		StoredRows:      snapshot.StoredRows,
		AvgDelayMinutes: snapshot.AvgDelayMinutes,
	}
	if snapshot.Batches > 0 {
		result := newAPIResult(snapshot.LastBatch)
		data.LastBatch = &result
	}
	RenderData(c, data)
	return nil
}

type apiResult struct {
	BatchID    string    `msgpack:"batch" json:"batch" xml:"batch"`
	Source     string    `msgpack:"source" json:"source" xml:"source"`
	CapturedAt time.Time `msgpack:"capturedAt" json:"capturedAt" xml:"capturedAt"`
	Stored     int       `msgpack:"stored" json:"stored" xml:"stored"`
	Skipped    int       `msgpack:"skipped" json:"skipped" xml:"skipped"`
	OK         bool      `msgpack:"ok" json:"ok" xml:"ok"`
	Reason     string    `msgpack:"reason" json:"reason" xml:"reason"`
}

func newAPIResult(result compute.IngestResult) apiResult {
	return apiResult{
		BatchID:    result.BatchID,
		Source:     result.Source,
		CapturedAt: result.CapturedAt,
		Stored:     result.Stored,
		Skipped:    result.Skipped,
		OK:         result.OK,
		Reason:     result.Reason,
	}
}
