package dataobjects

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/rickb777/date"
)

var datePrefixRegexp = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

// Criteria selects departures from the log. Empty fields do not filter.
type Criteria struct {
	// DatePrefix matches the beginning of captured_at: "2024", "2024-05" or "2024-05-01"
	DatePrefix string
	// TrainNumber matches train_number exactly
	TrainNumber string
	// Hour matches the hour of day of captured_at, "0" to "23"
	Hour string
}

// IsZero returns whether no criterion is set
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.DatePrefix) == "" &&
		strings.TrimSpace(c.TrainNumber) == "" &&
		strings.TrimSpace(c.Hour) == ""
}

// Predicate translates the criteria into a WHERE predicate for the given
// backend. It returns a nil predicate when no criterion is set.
func (c Criteria) Predicate(backend Backend) (sq.Sqlizer, error) {
	if c.IsZero() {
		return nil, nil
	}

	capturedAt := backend.capturedAtText()
	pred := sq.And{}

	if prefix := strings.TrimSpace(c.DatePrefix); prefix != "" {
		if err := validateDatePrefix(prefix); err != nil {
			return nil, err
		}
		pred = append(pred, sq.Like{capturedAt: prefix + "%"})
	}

	if train := strings.TrimSpace(c.TrainNumber); train != "" {
		pred = append(pred, sq.Eq{"train_number": train})
	}

	if h := strings.TrimSpace(c.Hour); h != "" {
		hour, err := normalizeHour(h)
		if err != nil {
			return nil, err
		}
		pred = append(pred, sq.Like{capturedAt: "% " + hour + ":%"})
	}

	return pred, nil
}

func validateDatePrefix(prefix string) error {
	if !datePrefixRegexp.MatchString(prefix) {
		return fmt.Errorf("%w: date prefix %q must look like YYYY, YYYY-MM or YYYY-MM-DD", ErrInvalidFilter, prefix)
	}
	switch len(prefix) {
	case len("2006-01"):
		month, _ := strconv.Atoi(prefix[5:])
		if month < 1 || month > 12 {
			return fmt.Errorf("%w: date prefix %q has an invalid month", ErrInvalidFilter, prefix)
		}
	case len("2006-01-02"):
		d, err := date.ParseISO(prefix)
		if err != nil {
			return fmt.Errorf("%w: date prefix %q: %s", ErrInvalidFilter, prefix, err)
		}
		// out of range days are normalized by the parser, e.g. 02-30 becomes 03-01
		if d.String() != prefix {
			return fmt.Errorf("%w: date prefix %q is not a calendar date", ErrInvalidFilter, prefix)
		}
	}
	return nil
}

func normalizeHour(h string) (string, error) {
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 || len(h) > 2 {
		return "", fmt.Errorf("%w: hour %q must be between 0 and 23", ErrInvalidFilter, h)
	}
	return fmt.Sprintf("%02d", hour), nil
}
