package scraper

import (
	"fmt"
)

// RawEntry is one train as reported by an upstream, before any interpretation.
// Fields the upstream does not provide are left empty.
type RawEntry struct {
	TrainNumber   string
	Carrier       string
	TargetStation string
	Station       string
	ScheduledTime string
	Delay         string
	TypeInfo      string
	Platform      string
}

// Source retrieves one batch of departures from an upstream.
// Fetch performs a single synchronous request and has no side effects.
type Source interface {
	ID() string
	Fetch() ([]RawEntry, error)
}

// FetchError is returned by a Source when a batch could not be retrieved
type FetchError struct {
	Source string
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError returns a FetchError for the given source
func NewFetchError(source, reason string, err error) *FetchError {
	return &FetchError{
		Source: source,
		Reason: reason,
		Err:    err,
	}
}
