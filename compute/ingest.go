package compute

import (
	"errors"
	"fmt"
	"log"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/underlx/delaywatch/dataobjects"
	"github.com/underlx/delaywatch/scraper"
)

// DepartureWriter is the write side of the departure log
type DepartureWriter interface {
	InsertBatch(departures []*dataobjects.Departure) (int, []error, error)
}

// IngestResult is the outcome of one ingestion batch
type IngestResult struct {
	BatchID    string
	Source     string
	CapturedAt time.Time
	Fetched    int
	Stored     int
	Skipped    int
	OK         bool
	Reason     string
}

// Ingester runs ingestion batches: one fetch from Source, normalization of
// every entry, and one InsertBatch into Store. Batches share no state apart
// from Stats, so overlapping calls to RunBatch are fine.
type Ingester struct {
	Source     scraper.Source
	Store      DepartureWriter
	Normalizer *Normalizer
	Stats      *StatsHandler
	Log        *log.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
	// ResultCallback, if set, is called with the result of every batch
	ResultCallback func(result IngestResult)
}

// RunBatch runs one ingestion batch
func (i *Ingester) RunBatch() IngestResult {
	clock := i.Clock
	if clock == nil {
		clock = time.Now
	}

	result := IngestResult{
		Source:     i.Source.ID(),
		CapturedAt: clock().Truncate(time.Second),
	}
	if id, err := uuid.NewV4(); err == nil {
		result.BatchID = id.String()
	}

	departures, result := i.runBatch(result)

	if result.OK {
		i.logf("Batch %s: %s", result.BatchID, result.Reason)
	} else {
		i.logf("Batch %s failed: %s", result.BatchID, result.Reason)
	}
	if i.Stats != nil {
		i.Stats.RegisterBatch(result, departures)
	}
	if i.ResultCallback != nil {
		i.ResultCallback(result)
	}
	return result
}

func (i *Ingester) runBatch(result IngestResult) ([]*dataobjects.Departure, IngestResult) {
	entries, err := i.Source.Fetch()
	if err != nil {
		result.Reason = fmt.Sprintf("fetching departures: %s", err)
		return nil, result
	}
	result.Fetched = len(entries)
	if len(entries) == 0 {
		result.Reason = "no trains found in upstream response"
		return nil, result
	}

	normalizer := i.Normalizer
	if normalizer == nil {
		normalizer = new(Normalizer)
	}
	departures := make([]*dataobjects.Departure, 0, len(entries))
	for _, entry := range entries {
		departures = append(departures, normalizer.Normalize(entry, result.CapturedAt))
	}

	stored, rowErrs, err := i.Store.InsertBatch(departures)
	if err != nil {
		result.Reason = fmt.Sprintf("storing departures: %s", err)
		return nil, result
	}
	skipped := make(map[int]bool, len(rowErrs))
	for _, rowErr := range rowErrs {
		i.logf("Batch %s: skipped %s", result.BatchID, rowErr)
		var re *dataobjects.RowError
		if errors.As(rowErr, &re) {
			skipped[re.Row] = true
		}
	}

	result.Stored = stored
	result.Skipped = len(departures) - stored
	result.OK = true
	result.Reason = fmt.Sprintf("stored %d of %d departures", stored, len(departures))
	return storedDepartures(departures, skipped), result
}

// storedDepartures drops the rows the store reported as skipped
func storedDepartures(departures []*dataobjects.Departure, skipped map[int]bool) []*dataobjects.Departure {
	if len(skipped) == 0 {
		return departures
	}
	kept := make([]*dataobjects.Departure, 0, len(departures)-len(skipped))
	for idx, departure := range departures {
		if !skipped[idx] {
			kept = append(kept, departure)
		}
	}
	return kept
}

func (i *Ingester) logf(format string, v ...interface{}) {
	if i.Log != nil {
		i.Log.Printf(format, v...)
	}
}
