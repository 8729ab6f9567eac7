package compute

import (
	"fmt"

	"github.com/underlx/delaywatch/dataobjects"
)

// Band groups delays by magnitude for display
type Band int

const (
	// BandUnknown is used when the delay could not be read
	BandUnknown Band = iota
	// BandEarly is a negative delay
	BandEarly
	// BandOnTime is a zero delay
	BandOnTime
	// BandMinor is a delay under 5 minutes
	BandMinor
	// BandModerate is a delay from 5 to under 15 minutes
	BandModerate
	// BandSevere is a delay of 15 minutes or more
	BandSevere
)

var bandNames = map[Band]string{
	BandUnknown:  "unknown",
	BandEarly:    "early",
	BandOnTime:   "on-time",
	BandMinor:    "minor",
	BandModerate: "moderate",
	BandSevere:   "severe",
}

// Bands lists every band, from earliest to latest
var Bands = []Band{BandEarly, BandOnTime, BandMinor, BandModerate, BandSevere, BandUnknown}

// BandForDelay returns the band of a delay in minutes
func BandForDelay(delay int) Band {
	switch {
	case delay < 0:
		return BandEarly
	case delay == 0:
		return BandOnTime
	case delay < 5:
		return BandMinor
	case delay < 15:
		return BandModerate
	}
	return BandSevere
}

// BandForDeparture returns the band of a departure read from the log
func BandForDeparture(departure *dataobjects.Departure) Band {
	if departure.DelayUnparsable {
		return BandUnknown
	}
	return BandForDelay(departure.DelayMinutes)
}

// ParseBand returns the band with the given name
func ParseBand(name string) (Band, bool) {
	for band, n := range bandNames {
		if n == name {
			return band, true
		}
	}
	return BandUnknown, false
}

func (b Band) String() string {
	if name, ok := bandNames[b]; ok {
		return name
	}
	return bandNames[BandUnknown]
}

// Emphasis returns how prominently the band should be displayed
func (b Band) Emphasis() string {
	switch b {
	case BandMinor:
		return "low"
	case BandModerate:
		return "medium"
	case BandSevere:
		return "high"
	case BandEarly, BandOnTime:
		return "none"
	}
	return "neutral"
}

// Color returns the display color of the band
func (b Band) Color() string {
	switch b {
	case BandSevere:
		return "red"
	case BandModerate:
		return "orange"
	case BandUnknown:
		return "black"
	}
	return "green"
}

// Label describes the delay of a departure in the given band
func (b Band) Label(delay int) string {
	switch b {
	case BandEarly:
		return fmt.Sprintf("early by %d min", -delay)
	case BandOnTime:
		return "on time"
	case BandMinor, BandModerate, BandSevere:
		return fmt.Sprintf("+%d min", delay)
	}
	return "unknown"
}
