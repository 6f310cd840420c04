// Package ledger keeps a local audit trail of training runs. Writes are
// best effort: a broken ledger is logged and ignored, it never aborts a
// training run.
package ledger

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"ftnirs/internal/errors"
	"ftnirs/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMP NOT NULL,
	approach    TEXT NOT NULL,
	filter      TEXT NOT NULL,
	scaler      TEXT NOT NULL,
	epochs      INTEGER NOT NULL,
	test_r2     REAL NOT NULL,
	test_rmse   REAL NOT NULL,
	description TEXT NOT NULL DEFAULT ''
)`

// Entry is one training run's audit record
type Entry struct {
	ID          string    `db:"id"`
	CreatedAt   time.Time `db:"created_at"`
	Approach    string    `db:"approach"`
	Filter      string    `db:"filter"`
	Scaler      string    `db:"scaler"`
	Epochs      int       `db:"epochs"`
	TestR2      float64   `db:"test_r2"`
	TestRMSE    float64   `db:"test_rmse"`
	Description string    `db:"description"`
}

// RunLedger appends training run entries to a local SQLite file
type RunLedger struct {
	db  *sqlx.DB
	log *logging.Logger
}

// Open creates or opens the ledger database at path
func Open(path string, log *logging.Logger) (*RunLedger, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open run ledger %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize run ledger schema")
	}
	return &RunLedger{db: db, log: log}, nil
}

// Record appends one run entry. Failures are logged and swallowed.
func (l *RunLedger) Record(e Entry) {
	if l == nil || l.db == nil {
		return
	}
	_, err := l.db.NamedExec(`INSERT INTO runs
		(id, created_at, approach, filter, scaler, epochs, test_r2, test_rmse, description)
		VALUES (:id, :created_at, :approach, :filter, :scaler, :epochs, :test_r2, :test_rmse, :description)`, e)
	if err != nil && l.log != nil {
		l.log.Warn("run ledger write failed: %v", err)
	}
}

// Runs returns every recorded entry, oldest first
func (l *RunLedger) Runs() ([]Entry, error) {
	var entries []Entry
	err := l.db.Select(&entries, `SELECT * FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read run ledger")
	}
	return entries, nil
}

// Close releases the underlying database handle
func (l *RunLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
