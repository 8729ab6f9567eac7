package dataobjects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const departureTable = "departure_log"

type column struct {
	name       string
	definition string
}

// columns introduced after the initial table layout, in the order they were added
var additiveColumns = map[Backend][]column{
	SQLite: {
		{"platform", "TEXT"},
	},
	Postgres: {
		{"platform", "TEXT"},
		{"id", "BIGSERIAL"},
	},
}

func (b Backend) createTableStatement() string {
	capturedAtType := "TEXT"
	if b == Postgres {
		capturedAtType = "TIMESTAMP"
	}
	return `CREATE TABLE IF NOT EXISTS ` + departureTable + ` (
		captured_at ` + capturedAtType + ` NOT NULL,
		train_number TEXT NOT NULL,
		carrier TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL DEFAULT '',
		scheduled_time TEXT NOT NULL DEFAULT '',
		actual_time_display TEXT NOT NULL DEFAULT '',
		delay_minutes TEXT NOT NULL DEFAULT '0'
	)`
}

// EnsureSchema creates the departure log if it does not exist and adds any
// columns missing from older layouts. It can be called any number of times.
func (s *Store) EnsureSchema() error {
	// executed outside a transaction: a failed ALTER must not poison the
	// statements that follow it on Postgres
	_, err := s.node.Exec(s.backend.createTableStatement())
	if err != nil {
		return fmt.Errorf("EnsureSchema: %s", err)
	}

	for _, col := range additiveColumns[s.backend] {
		_, err = s.node.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", departureTable, col.name, col.definition))
		if err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("EnsureSchema: adding column %s: %s", col.name, err)
		}
	}

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS " + departureTable + "_captured_at_idx ON " + departureTable + " (captured_at)",
		"CREATE INDEX IF NOT EXISTS " + departureTable + "_train_number_idx ON " + departureTable + " (train_number)",
	} {
		_, err = s.node.Exec(stmt)
		if err != nil {
			return fmt.Errorf("EnsureSchema: %s", err)
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// duplicate_column
		return pqErr.Code == "42701"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), "duplicate column name")
	}
	return strings.Contains(err.Error(), "duplicate column")
}
