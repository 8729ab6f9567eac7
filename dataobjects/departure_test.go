package dataobjects

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// forEachBackend runs fn against an in-memory SQLite store and, when
// TEST_DATABASE_URL is set, against a Postgres store too.
func forEachBackend(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestStore(t, StoreConfig{SQLitePath: ":memory:"}))
	})
	t.Run("postgres", func(t *testing.T) {
		dsn := os.Getenv("TEST_DATABASE_URL")
		if dsn == "" {
			t.Skip("TEST_DATABASE_URL not set")
		}
		s := newTestStore(t, StoreConfig{DatabaseURL: dsn})
		_, err := s.Node().Exec("DELETE FROM " + departureTable)
		require.NoError(t, err)
		fn(t, s)
	})
}

func newTestStore(t *testing.T, cfg StoreConfig) *Store {
	t.Helper()
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema())
	return s
}

func strptr(s string) *string {
	return &s
}

func departureAt(capturedAt time.Time, train string, delay int) *Departure {
	return &Departure{
		CapturedAt:        capturedAt,
		TrainNumber:       train,
		Carrier:           "ČD",
		Destination:       "Praha hl.n.",
		ScheduledTime:     "12:34",
		ActualTimeDisplay: "12:34",
		DelayMinutes:      delay,
	}
}

func TestStoreConfigSelectsBackend(t *testing.T) {
	assert.Equal(t, SQLite, StoreConfig{}.Backend())
	assert.Equal(t, SQLite, StoreConfig{SQLitePath: "x.sqlite3"}.Backend())
	assert.Equal(t, Postgres, StoreConfig{DatabaseURL: "postgres://localhost/db"}.Backend())
	assert.Equal(t, "file:"+DefaultSQLitePath+"?_busy_timeout=5000&_journal_mode=WAL", StoreConfig{}.dataSourceName())
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		require.NoError(t, s.EnsureSchema())
		require.NoError(t, s.EnsureSchema())
	})
}

func TestEnsureSchemaAddsPlatformToOlderTables(t *testing.T) {
	s, err := Open(StoreConfig{SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Node().Exec(`CREATE TABLE departure_log (
		captured_at TEXT NOT NULL, train_number TEXT NOT NULL, carrier TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL DEFAULT '', scheduled_time TEXT NOT NULL DEFAULT '',
		actual_time_display TEXT NOT NULL DEFAULT '', delay_minutes TEXT NOT NULL DEFAULT '0')`)
	require.NoError(t, err)
	_, err = s.Node().Exec(`INSERT INTO departure_log VALUES ('2024-05-01 10:00:00', 'R 123', 'ČD', 'Cheb', '10:05', '10:05', '0')`)
	require.NoError(t, err)

	require.NoError(t, s.EnsureSchema())
	require.NoError(t, s.EnsureSchema())

	departures, err := s.LatestDepartures(10)
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.Nil(t, departures[0].Platform)
}

func TestInsertBatchSkipsMalformedRows(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
		batch := []*Departure{}
		for i := 0; i < 10; i++ {
			batch = append(batch, departureAt(now, fmt.Sprintf("Os %d", 7000+i), i))
		}
		batch[4].TrainNumber = "  "

		stored, rowErrs, err := s.InsertBatch(batch)
		require.NoError(t, err)
		assert.Equal(t, 9, stored)
		require.Len(t, rowErrs, 1)
		assert.True(t, errors.Is(rowErrs[0], ErrMalformedDeparture))

		departures, err := s.LatestDepartures(50)
		require.NoError(t, err)
		assert.Len(t, departures, 9)
	})
}

func TestInsertBatchSkipsRowsRejectedByDatabase(t *testing.T) {
	s := newTestStore(t, StoreConfig{SQLitePath: ":memory:"})
	_, err := s.Node().Exec(`CREATE TRIGGER reject_os_7003 BEFORE INSERT ON departure_log
		WHEN NEW.train_number = 'Os 7003'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	batch := []*Departure{}
	for i := 0; i < 10; i++ {
		batch = append(batch, departureAt(now, fmt.Sprintf("Os %d", 7000+i), i))
	}

	stored, rowErrs, err := s.InsertBatch(batch)
	require.NoError(t, err)
	assert.Equal(t, 9, stored)
	require.Len(t, rowErrs, 1)
	var rowErr *RowError
	require.True(t, errors.As(rowErrs[0], &rowErr))
	assert.Equal(t, 3, rowErr.Row)
	assert.Contains(t, rowErr.Error(), "rejected")

	departures, err := s.LatestDepartures(50)
	require.NoError(t, err)
	require.Len(t, departures, 9)
	for _, d := range departures {
		assert.NotEqual(t, "Os 7003", d.TrainNumber)
	}

	// the batch transaction is still usable after a rejected row
	stored, rowErrs, err = s.InsertBatch([]*Departure{departureAt(now, "Os 7003", 0), departureAt(now, "Os 7100", 0)})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Len(t, rowErrs, 1)
}

func TestValidateDoesNotModifyDeparture(t *testing.T) {
	d := departureAt(time.Now(), "  R 762 ", 0)
	require.NoError(t, d.Validate())
	assert.Equal(t, "  R 762 ", d.TrainNumber)

	d.TrainNumber = " "
	assert.True(t, errors.Is(d.Validate(), ErrMalformedDeparture))
}

func TestInsertBatchStoresForeignZonesAsLocalTime(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		utc := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
		tokyo := time.Date(2024, 5, 2, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))

		_, _, err := s.InsertBatch([]*Departure{departureAt(utc, "R 1", 0)})
		require.NoError(t, err)
		_, _, err = s.InsertBatch([]*Departure{departureAt(tokyo, "R 2", 0)})
		require.NoError(t, err)

		departures, err := s.LatestDepartures(10)
		require.NoError(t, err)
		require.Len(t, departures, 2)
		byTrain := map[string]time.Time{}
		for _, d := range departures {
			byTrain[d.TrainNumber] = d.CapturedAt
		}
		assert.True(t, utc.Equal(byTrain["R 1"]), "got %s", byTrain["R 1"])
		assert.True(t, tokyo.Equal(byTrain["R 2"]), "got %s", byTrain["R 2"])

		// date filters see the local calendar date
		departures, err = s.FilteredDepartures(Criteria{DatePrefix: utc.In(time.Local).Format("2006-01-02")}, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, departures)
	})
}

func TestInsertBatchRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		now := time.Date(2024, 5, 1, 8, 15, 0, 0, time.Local)
		d := departureAt(now, "R 1234", -2)
		d.ActualTimeDisplay = "12:34 (early by 2 min)"
		d.Platform = strptr("3")

		stored, rowErrs, err := s.InsertBatch([]*Departure{d})
		require.NoError(t, err)
		assert.Empty(t, rowErrs)
		assert.Equal(t, 1, stored)

		departures, err := s.LatestDepartures(0)
		require.NoError(t, err)
		require.Len(t, departures, 1)
		got := departures[0]
		assert.True(t, now.Equal(got.CapturedAt))
		assert.Equal(t, "R 1234", got.TrainNumber)
		assert.Equal(t, "ČD", got.Carrier)
		assert.Equal(t, "Praha hl.n.", got.Destination)
		assert.Equal(t, "12:34", got.ScheduledTime)
		assert.Equal(t, "12:34 (early by 2 min)", got.ActualTimeDisplay)
		assert.Equal(t, -2, got.DelayMinutes)
		assert.False(t, got.DelayUnparsable)
		require.NotNil(t, got.Platform)
		assert.Equal(t, "3", *got.Platform)
	})
}

func TestLatestDeparturesOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		older := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
		newer := older.Add(5 * time.Minute)

		_, _, err := s.InsertBatch([]*Departure{departureAt(older, "A", 1), departureAt(older, "B", 2)})
		require.NoError(t, err)
		_, _, err = s.InsertBatch([]*Departure{departureAt(newer, "C", 3), departureAt(newer, "D", 4), departureAt(newer, "E", 5)})
		require.NoError(t, err)

		departures, err := s.LatestDepartures(50)
		require.NoError(t, err)
		trains := []string{}
		for _, d := range departures {
			trains = append(trains, d.TrainNumber)
		}
		assert.Equal(t, []string{"C", "D", "E", "A", "B"}, trains)

		departures, err = s.LatestDepartures(2)
		require.NoError(t, err)
		assert.Len(t, departures, 2)
	})
}

func TestFilteredDepartures(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		mayFirstMorning := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
		mayFirstAfternoon := time.Date(2024, 5, 1, 14, 10, 0, 0, time.Local)
		maySecond := time.Date(2024, 5, 2, 9, 45, 0, 0, time.Local)
		aprilLast := time.Date(2024, 4, 30, 23, 59, 0, 0, time.Local)

		for _, batch := range [][]*Departure{
			{departureAt(aprilLast, "Ex 1", 0)},
			{departureAt(mayFirstMorning, "Ex 1", 3), departureAt(mayFirstMorning, "R 2", 0)},
			{departureAt(mayFirstAfternoon, "Ex 1", 20)},
			{departureAt(maySecond, "R 2", 6)},
		} {
			_, _, err := s.InsertBatch(batch)
			require.NoError(t, err)
		}

		departures, err := s.FilteredDepartures(Criteria{DatePrefix: "2024-05-01"}, 50)
		require.NoError(t, err)
		require.Len(t, departures, 3)
		for i, d := range departures {
			assert.Equal(t, "2024-05-01", d.CapturedAt.Format("2006-01-02"))
			if i > 0 {
				assert.False(t, d.CapturedAt.After(departures[i-1].CapturedAt))
			}
		}
		assert.True(t, mayFirstAfternoon.Equal(departures[0].CapturedAt))

		departures, err = s.FilteredDepartures(Criteria{DatePrefix: "2024-05"}, 50)
		require.NoError(t, err)
		assert.Len(t, departures, 4)

		departures, err = s.FilteredDepartures(Criteria{TrainNumber: "Ex 1"}, 50)
		require.NoError(t, err)
		assert.Len(t, departures, 3)

		departures, err = s.FilteredDepartures(Criteria{Hour: "9"}, 50)
		require.NoError(t, err)
		assert.Len(t, departures, 3)

		departures, err = s.FilteredDepartures(Criteria{DatePrefix: "2024-05-01", TrainNumber: "R 2", Hour: "09"}, 50)
		require.NoError(t, err)
		require.Len(t, departures, 1)
		assert.Equal(t, 0, departures[0].DelayMinutes)

		departures, err = s.FilteredDepartures(Criteria{}, 50)
		require.NoError(t, err)
		assert.Len(t, departures, 5)
	})
}

func TestFilteredDeparturesInvalidCriteria(t *testing.T) {
	s := newTestStore(t, StoreConfig{SQLitePath: ":memory:"})
	for _, c := range []Criteria{
		{DatePrefix: "yesterday"},
		{DatePrefix: "2024-13"},
		{DatePrefix: "2024-02-30"},
		{DatePrefix: "2024-05-01%"},
		{Hour: "24"},
		{Hour: "noon"},
	} {
		departures, err := s.FilteredDepartures(c, 50)
		assert.True(t, errors.Is(err, ErrInvalidFilter), "criteria %+v", c)
		assert.NotNil(t, departures)
		assert.Empty(t, departures)
	}
}

func TestLastKnownPlatform(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		info, err := s.LastKnownPlatform("R 1234")
		require.NoError(t, err)
		assert.False(t, info.Known)
		assert.Equal(t, UnknownPlatform, info.Platform)

		first := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
		withPlatform := departureAt(first, "R 1234", 0)
		withPlatform.Platform = strptr("2")
		_, _, err = s.InsertBatch([]*Departure{withPlatform})
		require.NoError(t, err)

		// a later sighting without a platform does not hide the known one
		_, _, err = s.InsertBatch([]*Departure{departureAt(first.Add(time.Minute), "R 1234", 0)})
		require.NoError(t, err)

		info, err = s.LastKnownPlatform("R 1234")
		require.NoError(t, err)
		assert.True(t, info.Known)
		assert.Equal(t, "2", info.Platform)

		newer := departureAt(first.Add(2*time.Minute), "R 1234", 0)
		newer.Platform = strptr("4")
		_, _, err = s.InsertBatch([]*Departure{newer})
		require.NoError(t, err)

		info, err = s.LastKnownPlatform("R 1234")
		require.NoError(t, err)
		assert.Equal(t, "4", info.Platform)
	})
}

func TestUnparsableStoredDelay(t *testing.T) {
	s := newTestStore(t, StoreConfig{SQLitePath: ":memory:"})
	_, err := s.Node().Exec(`INSERT INTO departure_log (captured_at, train_number, carrier, destination, scheduled_time, actual_time_display, delay_minutes)
		VALUES ('2024-05-01 10:00:00', 'R 9', 'ČD', 'Cheb', '10:05', '10:05', 'n/a')`)
	require.NoError(t, err)

	departures, err := s.LatestDepartures(10)
	require.NoError(t, err)
	require.Len(t, departures, 1)
	assert.True(t, departures[0].DelayUnparsable)
	assert.Equal(t, 0, departures[0].DelayMinutes)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, uint64(DefaultQueryLimit), clampLimit(0))
	assert.Equal(t, uint64(DefaultQueryLimit), clampLimit(-5))
	assert.Equal(t, uint64(7), clampLimit(7))
	assert.Equal(t, uint64(MaxQueryLimit), clampLimit(1000))
}
