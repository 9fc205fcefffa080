package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Fullex26/noticehook/pkg/models"
)

// Store keeps a log of dispatch outcomes in SQLite. It is an audit trail
// only; nothing is ever redelivered from it.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			text TEXT,
			status_code INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_deliveries_timestamp ON deliveries(timestamp);
		CREATE INDEX IF NOT EXISTS idx_deliveries_outcome ON deliveries(outcome);
	`)
	return err
}

// SaveDelivery persists one dispatch outcome
func (s *Store) SaveDelivery(d models.Delivery) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO deliveries (id, timestamp, method, url, title, text, status_code, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp, d.Method, d.URL, d.Title, d.Text, d.StatusCode, string(d.Outcome), d.Error,
	)
	return err
}

// RecentDeliveries returns deliveries from the last N hours, newest first
func (s *Store) RecentDeliveries(hours int) ([]models.Delivery, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	rows, err := s.db.Query(`
		SELECT id, timestamp, method, url, title, text, status_code, outcome, error
		FROM deliveries
		WHERE timestamp > ?
		ORDER BY timestamp DESC
		LIMIT 100`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Delivery
	for rows.Next() {
		var (
			d                 models.Delivery
			title, text, dErr sql.NullString
			outcome           string
		)
		if err := rows.Scan(&d.ID, &d.Timestamp, &d.Method, &d.URL, &title, &text, &d.StatusCode, &outcome, &dErr); err != nil {
			continue
		}
		d.Title = title.String
		d.Text = text.String
		d.Error = dErr.String
		d.Outcome = models.Outcome(outcome)
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByOutcome returns how many deliveries of each outcome happened in the last N hours
func (s *Store) CountByOutcome(hours int) (map[models.Outcome]int, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	rows, err := s.db.Query(`
		SELECT outcome, COUNT(*) FROM deliveries
		WHERE timestamp > ?
		GROUP BY outcome`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[models.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// LastSuccess returns a human readable age of the last successful delivery
func (s *Store) LastSuccess() (string, error) {
	var timestamp time.Time
	err := s.db.QueryRow(`
		SELECT timestamp FROM deliveries
		WHERE outcome = ?
		ORDER BY timestamp DESC
		LIMIT 1`, string(models.OutcomeSent)).Scan(&timestamp)
	if err != nil {
		return "never", nil
	}

	diff := time.Since(timestamp)
	if diff < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes())), nil
	}
	if diff < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(diff.Hours())), nil
	}
	return fmt.Sprintf("%d days ago", int(diff.Hours()/24)), nil
}

// Prune removes deliveries older than N days
func (s *Store) Prune(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result, err := s.db.Exec(`DELETE FROM deliveries WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
