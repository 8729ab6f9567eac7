package compute

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/underlx/delaywatch/dataobjects"
	"github.com/underlx/delaywatch/scraper"
)

// UnknownDestination is used for trains whose destination is not reported
const UnknownDestination = "unknown"

var leadingIntegerRegexp = regexp.MustCompile(`^[+-]?\d+`)

// Normalizer turns raw upstream entries into departures
type Normalizer struct {
	// Carriers defaults to DefaultCarrierTable
	Carriers *CarrierTable
}

// Normalize turns a raw entry into a departure captured at capturedAt.
// It never fails: fields that cannot be interpreted get their default value.
func (n *Normalizer) Normalize(raw scraper.RawEntry, capturedAt time.Time) *dataobjects.Departure {
	carriers := n.Carriers
	if carriers == nil {
		carriers = DefaultCarrierTable
	}

	carrier := strings.TrimSpace(raw.Carrier)
	if carrier == "" {
		carrier = carriers.Match(raw.TypeInfo)
	}

	scheduled := strings.TrimSpace(raw.ScheduledTime)
	delay := ParseDelay(raw.Delay)

	departure := &dataobjects.Departure{
		CapturedAt:        capturedAt,
		TrainNumber:       strings.TrimSpace(raw.TrainNumber),
		Carrier:           carrier,
		Destination:       Destination(raw.TargetStation, raw.Station),
		ScheduledTime:     scheduled,
		ActualTimeDisplay: FormatActualTime(scheduled, delay),
		DelayMinutes:      delay,
	}
	if platform := strings.TrimSpace(raw.Platform); platform != "" {
		departure.Platform = &platform
	}
	return departure
}

// Normalize normalizes a raw entry with the default carrier table
func Normalize(raw scraper.RawEntry, capturedAt time.Time) *dataobjects.Departure {
	return new(Normalizer).Normalize(raw, capturedAt)
}

// Destination prefers the target station over the generic station field
func Destination(targetStation, station string) string {
	if s := strings.TrimSpace(targetStation); s != "" {
		return s
	}
	if s := strings.TrimSpace(station); s != "" {
		return s
	}
	return UnknownDestination
}

// ParseDelay returns the delay in minutes expressed by s, such as "7", "-3",
// "+5" or "12 min". Anything else, including the empty string, is 0.
func ParseDelay(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, "−", "-"))
	m := leadingIntegerRegexp.FindString(s)
	if m == "" {
		return 0
	}
	delay, err := strconv.Atoi(m)
	if err != nil {
		// out of range
		return 0
	}
	return delay
}

// FormatActualTime annotates the scheduled time with the delay
func FormatActualTime(scheduled string, delay int) string {
	switch {
	case delay > 0:
		return fmt.Sprintf("%s (+%d min)", scheduled, delay)
	case delay < 0:
		return fmt.Sprintf("%s (early by %d min)", scheduled, -delay)
	}
	return scheduled
}
