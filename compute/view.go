package compute

import (
	"log"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/thoas/go-funk"
	"github.com/underlx/delaywatch/dataobjects"
)

// DepartureReader is the read side of the departure log
type DepartureReader interface {
	LatestDepartures(limit int) ([]*dataobjects.Departure, error)
	FilteredDepartures(criteria dataobjects.Criteria, limit int) ([]*dataobjects.Departure, error)
	LastKnownPlatform(trainNumber string) (dataobjects.PlatformInfo, error)
}

// DepartureRow is a departure annotated for display
type DepartureRow struct {
	*dataobjects.Departure
	Band     Band
	Label    string
	Emphasis string
	Color    string
}

// DepartureView is the result of a read query. When the query failed, Rows
// is empty and Reason explains why.
type DepartureView struct {
	Rows   []DepartureRow
	Reason string
	Err    error
}

// OK returns whether the query behind the view succeeded
func (v DepartureView) OK() bool {
	return v.Err == nil
}

// ViewBuilder answers display queries on the departure log
type ViewBuilder struct {
	reader    DepartureReader
	log       *log.Logger
	platforms *cache.Cache
}

// NewViewBuilder returns a new ViewBuilder reading from reader
func NewViewBuilder(reader DepartureReader, log *log.Logger) *ViewBuilder {
	return &ViewBuilder{
		reader:    reader,
		log:       log,
		platforms: cache.New(1*time.Minute, 5*time.Minute),
	}
}

// Latest returns the most recently captured departures, optionally only those in the given bands
func (b *ViewBuilder) Latest(limit int, bands ...Band) DepartureView {
	departures, err := b.reader.LatestDepartures(limit)
	return b.view(departures, err, bands)
}

// Filtered returns the most recently captured departures matching criteria,
// optionally only those in the given bands
func (b *ViewBuilder) Filtered(criteria dataobjects.Criteria, limit int, bands ...Band) DepartureView {
	var departures []*dataobjects.Departure
	var err error
	if criteria.IsZero() {
		departures, err = b.reader.LatestDepartures(limit)
	} else {
		departures, err = b.reader.FilteredDepartures(criteria, limit)
	}
	return b.view(departures, err, bands)
}

// Platform returns the last known platform of a train. Failures are reported
// as an unknown platform.
func (b *ViewBuilder) Platform(trainNumber string) dataobjects.PlatformInfo {
	trainNumber = strings.TrimSpace(trainNumber)
	if cached, ok := b.platforms.Get(trainNumber); ok {
		return cached.(dataobjects.PlatformInfo)
	}

	info, err := b.reader.LastKnownPlatform(trainNumber)
	if err != nil {
		b.logf("Platform lookup for train %s failed: %s", trainNumber, err)
		return dataobjects.PlatformInfo{
			TrainNumber: trainNumber,
			Platform:    dataobjects.UnknownPlatform,
		}
	}
	if info.Known {
		b.platforms.Set(trainNumber, info, cache.DefaultExpiration)
	}
	return info
}

func (b *ViewBuilder) view(departures []*dataobjects.Departure, err error, bands []Band) DepartureView {
	if err != nil {
		b.logf("Departure query failed: %s", err)
		return DepartureView{
			Rows:   []DepartureRow{},
			Reason: err.Error(),
			Err:    err,
		}
	}

	rows := AnnotateDepartures(departures)
	if len(bands) > 0 {
		rows = funk.Filter(rows, func(row DepartureRow) bool {
			return funk.Contains(bands, row.Band)
		}).([]DepartureRow)
	}
	return DepartureView{Rows: rows}
}

// AnnotateDepartures adds display fields to departures
func AnnotateDepartures(departures []*dataobjects.Departure) []DepartureRow {
	rows := make([]DepartureRow, 0, len(departures))
	for _, departure := range departures {
		band := BandForDeparture(departure)
		rows = append(rows, DepartureRow{
			Departure: departure,
			Band:      band,
			Label:     band.Label(departure.DelayMinutes),
			Emphasis:  band.Emphasis(),
			Color:     band.Color(),
		})
	}
	return rows
}

func (b *ViewBuilder) logf(format string, v ...interface{}) {
	if b.log != nil {
		b.log.Printf(format, v...)
	}
}
