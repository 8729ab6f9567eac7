package dataobjects

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gbl08ma/sqalx"
	"github.com/go-playground/validator/v10"
)

// UnknownPlatform is reported when no platform is known for a train
const UnknownPlatform = "unknown"

var validate = validator.New()

// ErrMalformedDeparture is returned for departures that cannot be stored
var ErrMalformedDeparture = errors.New("malformed departure")

// Departure is one observation of a departing train, as captured by an ingestion batch
type Departure struct {
	// CapturedAt is the time of the ingestion batch, not of the train
	CapturedAt        time.Time `validate:"required"`
	TrainNumber       string    `validate:"required,max=64"`
	Carrier           string    `validate:"max=128"`
	Destination       string    `validate:"required"`
	ScheduledTime     string
	ActualTimeDisplay string
	DelayMinutes      int
	// DelayUnparsable is set on rows read back from the log whose stored delay
	// is not an integer
	DelayUnparsable bool
	Platform        *string
}

// Validate checks whether the departure can be appended to the log
func (departure *Departure) Validate() error {
	if departure == nil {
		return fmt.Errorf("%w: nil departure", ErrMalformedDeparture)
	}
	if strings.TrimSpace(departure.TrainNumber) == "" {
		return fmt.Errorf("%w: blank train number", ErrMalformedDeparture)
	}
	if err := validate.Struct(departure); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedDeparture, err)
	}
	return nil
}

// RowError is the reason one row of a batch was not stored
type RowError struct {
	// Row is the index of the departure in the batch
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// PlatformInfo is the last known platform of a train
type PlatformInfo struct {
	TrainNumber string
	Platform    string
	Known       bool
}

var departureColumns = []string{
	"train_number", "carrier", "destination", "scheduled_time",
	"actual_time_display", "delay_minutes", "platform",
}

// InsertBatch appends the departures of one ingestion batch to the log.
// Rows are inserted independently of each other: a row that fails
// validation or insertion is skipped and a *RowError for it is included in
// rowErrs. err is only non-nil when the batch as a whole could not be
// stored, in which case stored is zero.
func (s *Store) InsertBatch(departures []*Departure) (stored int, rowErrs []error, err error) {
	tx, err := s.node.Beginx()
	if err != nil {
		return 0, nil, fmt.Errorf("InsertBatch: %s", err)
	}
	defer tx.Rollback()

	for i, departure := range departures {
		if verr := departure.Validate(); verr != nil {
			rowErrs = append(rowErrs, &RowError{Row: i, Err: verr})
			continue
		}

		row, err := s.beginRow(tx)
		if err != nil {
			return 0, nil, fmt.Errorf("InsertBatch: %s", err)
		}

		_, ierr := s.sdb.Insert(departureTable).
			Columns(append([]string{"captured_at"}, departureColumns...)...).
			Values(
				s.backend.capturedAtValue(departure.CapturedAt),
				strings.TrimSpace(departure.TrainNumber),
				departure.Carrier,
				departure.Destination,
				departure.ScheduledTime,
				departure.ActualTimeDisplay,
				strconv.Itoa(departure.DelayMinutes),
				departure.Platform).
			RunWith(row).Exec()
		if ierr != nil {
			rowErrs = append(rowErrs, &RowError{Row: i, Err: ierr})
			if err := row.Rollback(); err != nil {
				return 0, nil, fmt.Errorf("InsertBatch: %s", err)
			}
			continue
		}
		if err := row.Commit(); err != nil {
			return 0, nil, fmt.Errorf("InsertBatch: %s", err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("InsertBatch: %s", err)
	}
	return stored, rowErrs, nil
}

const rowSavepoint = "departure_row"

// rowScope isolates the insertion of one row inside a batch transaction
type rowScope struct {
	sqalx.Node
	// explicit is set when the savepoint is managed here instead of by sqalx
	explicit bool
}

func (s *Store) beginRow(tx sqalx.Node) (*rowScope, error) {
	if s.backend == Postgres {
		sp, err := tx.Beginx()
		if err != nil {
			return nil, err
		}
		return &rowScope{Node: sp}, nil
	}
	if _, err := tx.Exec("SAVEPOINT " + rowSavepoint); err != nil {
		return nil, err
	}
	return &rowScope{Node: tx, explicit: true}, nil
}

func (r *rowScope) Commit() error {
	if !r.explicit {
		return r.Node.Commit()
	}
	_, err := r.Node.Exec("RELEASE SAVEPOINT " + rowSavepoint)
	return err
}

func (r *rowScope) Rollback() error {
	if !r.explicit {
		return r.Node.Rollback()
	}
	if _, err := r.Node.Exec("ROLLBACK TO SAVEPOINT " + rowSavepoint); err != nil {
		return err
	}
	// ROLLBACK TO keeps the savepoint on the stack
	_, err := r.Node.Exec("RELEASE SAVEPOINT " + rowSavepoint)
	return err
}

// LatestDepartures returns the most recently captured departures
func (s *Store) LatestDepartures(limit int) ([]*Departure, error) {
	return s.getDeparturesWithSelect(s.sdb.Select(), limit)
}

// FilteredDepartures returns the most recently captured departures matching criteria
func (s *Store) FilteredDepartures(criteria Criteria, limit int) ([]*Departure, error) {
	pred, err := criteria.Predicate(s.backend)
	if err != nil {
		return []*Departure{}, err
	}
	sbuilder := s.sdb.Select()
	if pred != nil {
		sbuilder = sbuilder.Where(pred)
	}
	return s.getDeparturesWithSelect(sbuilder, limit)
}

func (s *Store) getDeparturesWithSelect(sbuilder sq.SelectBuilder, limit int) ([]*Departure, error) {
	departures := []*Departure{}

	tx, err := s.node.Beginx()
	if err != nil {
		return departures, err
	}
	defer tx.Commit() // read-only tx

	rows, err := sbuilder.Columns(append([]string{s.backend.capturedAtText() + " AS captured_at_text"}, departureColumns...)...).
		From(departureTable).
		OrderBy("captured_at DESC", s.backend.insertionOrder()+" ASC").
		Limit(clampLimit(limit)).
		RunWith(tx).Query()
	if err != nil {
		return departures, fmt.Errorf("getDeparturesWithSelect: %s", err)
	}
	defer rows.Close()

	for rows.Next() {
		var departure Departure
		var capturedAt, delay string
		var platform sql.NullString
		err := rows.Scan(
			&capturedAt,
			&departure.TrainNumber,
			&departure.Carrier,
			&departure.Destination,
			&departure.ScheduledTime,
			&departure.ActualTimeDisplay,
			&delay,
			&platform)
		if err != nil {
			return departures, fmt.Errorf("getDeparturesWithSelect: %s", err)
		}
		departure.CapturedAt, err = time.ParseInLocation(capturedAtLayout, capturedAt, time.Local)
		if err != nil {
			return departures, fmt.Errorf("getDeparturesWithSelect: %s", err)
		}
		departure.DelayMinutes, err = strconv.Atoi(strings.TrimSpace(delay))
		if err != nil {
			departure.DelayMinutes = 0
			departure.DelayUnparsable = true
		}
		if platform.Valid {
			departure.Platform = &platform.String
		}
		departures = append(departures, &departure)
	}
	if err := rows.Err(); err != nil {
		return departures, fmt.Errorf("getDeparturesWithSelect: %s", err)
	}
	return departures, nil
}

// LastKnownPlatform returns the most recent non-empty platform recorded for
// the given train number. A train without a recorded platform is not an
// error: the result then has Known set to false.
func (s *Store) LastKnownPlatform(trainNumber string) (PlatformInfo, error) {
	info := PlatformInfo{
		TrainNumber: trainNumber,
		Platform:    UnknownPlatform,
	}

	tx, err := s.node.Beginx()
	if err != nil {
		return info, err
	}
	defer tx.Commit() // read-only tx

	rows, err := s.sdb.Select("platform").
		From(departureTable).
		Where(sq.Eq{"train_number": strings.TrimSpace(trainNumber)}).
		Where(sq.NotEq{"platform": nil}).
		Where(sq.NotEq{"platform": ""}).
		OrderBy("captured_at DESC", s.backend.insertionOrder()+" DESC").
		Limit(1).
		RunWith(tx).Query()
	if err != nil {
		return info, fmt.Errorf("LastKnownPlatform: %s", err)
	}
	defer rows.Close()

	if rows.Next() {
		var platform string
		if err := rows.Scan(&platform); err != nil {
			return info, fmt.Errorf("LastKnownPlatform: %s", err)
		}
		info.Platform = platform
		info.Known = true
	}
	if err := rows.Err(); err != nil {
		return info, fmt.Errorf("LastKnownPlatform: %s", err)
	}
	return info, nil
}
