package main

import (
	"time"

	"github.com/underlx/delaywatch/compute"
	statsd "gopkg.in/alexcesaro/statsd.v2"
)

// APIrequestTelemetry is a channel where something should be sent whenever an API
// request is served
var APIrequestTelemetry = make(chan interface{}, 10)

var batchTelemetry = make(chan compute.IngestResult, 10)

// BatchTelemetry is passed to the ingester as its result callback
func BatchTelemetry(result compute.IngestResult) {
	select {
	case batchTelemetry <- result:
	default:
	}
}

// StatsSender is meant to be called as a goroutine that handles sending telemetry
// to a statsd (or compatible) server
func StatsSender() {
	statsdAddress, present := secrets.Get("statsdAddress")
	statsdPrefix, present2 := secrets.Get("statsdPrefix")
	if !present || !present2 {
		for {
			// keep draining so that senders never block
			select {
			case <-APIrequestTelemetry:
			case <-batchTelemetry:
			}
		}
	}

	c, err := statsd.New(statsd.Address(statsdAddress), statsd.Prefix(statsdPrefix))
	if err != nil {
		// If nothing is listening on the target port, an error is returned and
		// the returned client does nothing but is still usable. So we can
		// just log the error and go on.
		mainLog.Println(err)
	}
	defer c.Close()

	ticker := time.NewTicker(1 * time.Minute)

	for {
		select {
		case <-ticker.C:
			snapshot := statsHandler.Snapshot()
			c.Gauge("avg_delay", snapshot.AvgDelayMinutes)
			c.Gauge("last_batch_age", int(snapshot.LastBatchAgo.Seconds()))
		case result := <-batchTelemetry:
			c.Increment("batches")
			if !result.OK {
				c.Increment("failed_batches")
				continue
			}
			c.Count("stored_rows", result.Stored)
			c.Count("skipped_rows", result.Skipped)
		case <-APIrequestTelemetry:
			c.Increment("apicalls")
		}
	}
}
