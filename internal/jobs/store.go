package jobs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"attrib/internal/logging"
	"attrib/internal/store"
	"attrib/internal/synthesis"
)

// Store persists scan jobs in the shared SQLite database.
type Store struct {
	db     *store.DB
	logger *logging.Logger
}

// NewStore creates the job store and ensures its table exists.
func NewStore(db *store.DB, logger *logging.Logger) (*Store, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS scan_jobs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'initiated',
			phase TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			batch_position INTEGER NOT NULL DEFAULT 0,
			results TEXT,
			outcome TEXT,
			started_at TEXT NOT NULL,
			last_update TEXT NOT NULL,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_scan_jobs_status ON scan_jobs(status);
		CREATE INDEX IF NOT EXISTS idx_scan_jobs_started ON scan_jobs(started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize jobs schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Create inserts a new job.
func (s *Store) Create(job *Job) error {
	if err := s.insert(s.db, job); err != nil {
		return err
	}

	s.logger.Debug("Created scan job", map[string]interface{}{
		"jobId": job.ID,
		"query": job.Query,
	})
	return nil
}

// Replace atomically swaps any previous row for this id with a fresh job,
// so a restarted job begins from a clean started_at instead of inheriting
// the finished run's timestamps.
func (s *Store) Replace(job *Job) error {
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM scan_jobs WHERE id = ?", job.ID); err != nil {
			return fmt.Errorf("failed to clear previous job: %w", err)
		}
		return s.insert(tx, job)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Replaced scan job", map[string]interface{}{
		"jobId": job.ID,
		"query": job.Query,
	})
	return nil
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) insert(ex execer, job *Job) error {
	targetJSON, resultsJSON, outcomeJSON, err := encodeJob(job)
	if err != nil {
		return err
	}

	_, err = ex.Exec(`
		INSERT INTO scan_jobs
			(id, query, target, status, phase, progress, batch_position,
			 results, outcome, started_at, last_update, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Query, targetJSON, job.Status, job.Phase, job.Progress,
		job.BatchPosition, resultsJSON, outcomeJSON,
		job.StartedAt.Format(time.RFC3339Nano),
		job.LastUpdate.Format(time.RFC3339Nano),
		nullString(job.Error))
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get retrieves a job by id, or nil when unknown.
func (s *Store) Get(id string) (*Job, error) {
	row := s.db.QueryRow(`
		SELECT id, query, target, status, phase, progress, batch_position,
		       results, outcome, started_at, last_update, error
		FROM scan_jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

// Update persists the full job state; last-writer-wins per key.
func (s *Store) Update(job *Job) error {
	targetJSON, resultsJSON, outcomeJSON, err := encodeJob(job)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`
		UPDATE scan_jobs SET
			target = ?, status = ?, phase = ?, progress = ?,
			batch_position = ?, results = ?, outcome = ?,
			last_update = ?, error = ?
		WHERE id = ?
	`, targetJSON, job.Status, job.Phase, job.Progress, job.BatchPosition,
		resultsJSON, outcomeJSON,
		job.LastUpdate.Format(time.RFC3339Nano),
		nullString(job.Error), job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job not found: %s", job.ID)
	}
	return nil
}

// CountActive returns how many jobs are currently runnable (initiated,
// in progress or paused).
func (s *Store) CountActive() (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM scan_jobs
		WHERE status IN ('initiated', 'in_progress', 'paused')
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active jobs: %w", err)
	}
	return n, nil
}

// List returns recent jobs, newest first, bounded by limit.
func (s *Store) List(limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, query, target, status, phase, progress, batch_position,
		       results, outcome, started_at, last_update, error
		FROM scan_jobs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Reclaim deletes jobs older than the TTL regardless of status. Stale jobs
// are reclaimed, never resumed.
func (s *Store) Reclaim(ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339Nano)
	result, err := s.db.Exec("DELETE FROM scan_jobs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	removed, _ := result.RowsAffected()
	if removed > 0 {
		s.logger.Info("Reclaimed stale scan jobs", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed, nil
}

func encodeJob(job *Job) (target, results, outcome string, err error) {
	t, err := json.Marshal(job.Target)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode job target: %w", err)
	}

	r := []byte("[]")
	if job.Results != nil {
		if r, err = json.Marshal(job.Results); err != nil {
			return "", "", "", fmt.Errorf("failed to encode job results: %w", err)
		}
	}

	var o []byte
	if job.Outcome != nil {
		if o, err = json.Marshal(job.Outcome); err != nil {
			return "", "", "", fmt.Errorf("failed to encode job outcome: %w", err)
		}
	}

	return string(t), string(r), string(o), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row *sql.Row) (*Job, error) {
	job, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

func scanJobFromRows(rows *sql.Rows) (*Job, error) {
	return scanInto(rows)
}

func scanInto(r rowScanner) (*Job, error) {
	var job Job
	var target, results, startedAt, lastUpdate string
	var outcome, errMsg sql.NullString

	err := r.Scan(&job.ID, &job.Query, &target, &job.Status, &job.Phase,
		&job.Progress, &job.BatchPosition, &results, &outcome,
		&startedAt, &lastUpdate, &errMsg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job row: %w", err)
	}

	if err := json.Unmarshal([]byte(target), &job.Target); err != nil {
		return nil, fmt.Errorf("failed to decode job target: %w", err)
	}
	if results != "" {
		if err := json.Unmarshal([]byte(results), &job.Results); err != nil {
			return nil, fmt.Errorf("failed to decode job results: %w", err)
		}
	}
	if outcome.Valid && outcome.String != "" {
		var o synthesis.Explanation
		if err := json.Unmarshal([]byte(outcome.String), &o); err != nil {
			return nil, fmt.Errorf("failed to decode job outcome: %w", err)
		}
		job.Outcome = &o
	}
	job.Error = errMsg.String

	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		job.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, lastUpdate); err == nil {
		job.LastUpdate = t
	}

	return &job, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
