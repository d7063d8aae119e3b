package certscraper

import (
	"context"
	"database/sql"
	"time"

	"certifyhub-backend/services/certscraper/db"
)

// unit statuses recorded in the journal
const (
	StatusOk      = "ok"
	StatusEmpty   = "empty"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Unit is one journaled work item, either a view page or a single
// question lookup.
type Unit struct {
	RunID         string
	Certification string
	Kind          string
	Topic         int
	Number        int
	Status        string
	Detail        string
}

// Journal records per-unit outcomes in sqlite so a finished run can
// report exactly which pages and questions failed, across restarts.
type Journal struct {
	db *sql.DB
}

func OpenJournal(path string) (*Journal, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Exec(db.Schema); err != nil {
		database.Close()
		return nil, err
	}
	return &Journal{db: database}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Record(ctx context.Context, unit Unit) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO run_units
			(run_id, certification, kind, topic, number, status, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.RunID, unit.Certification, unit.Kind,
		unit.Topic, unit.Number, unit.Status, unit.Detail,
		time.Now().Unix(),
	)
	return err
}

// Failures lists the failed units of a run in insertion order.
func (j *Journal) Failures(ctx context.Context, runID string) ([]Unit, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, certification, kind, topic, number, status, detail
		FROM run_units
		WHERE run_id = ? AND status = ?
		ORDER BY id`,
		runID, StatusFailed,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var unit Unit
		err := rows.Scan(
			&unit.RunID, &unit.Certification, &unit.Kind,
			&unit.Topic, &unit.Number, &unit.Status, &unit.Detail,
		)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// StatusCounts tallies unit outcomes for a run.
func (j *Journal) StatusCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM run_units WHERE run_id = ? GROUP BY status`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
