// internal/journal/journal.go
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tamzrod/pilatus-bridge/internal/camserver"
)

// Journal stores camserver traffic and acquisition runs in sqlite.
type Journal struct {
	db  *sql.DB
	now func() time.Time

	mu sync.Mutex
}

// Command is one journaled protocol record.
type Command struct {
	ID        int64
	At        time.Time
	Direction string
	Body      string
}

// Run is one acquisition sequence.
type Run struct {
	ID              string
	ImageIndex      int
	FramesRequested int
	FramesAcquired  int
	Started         time.Time
	Finished        time.Time
}

// Done reports whether FinishRun was recorded.
func (r Run) Done() bool { return !r.Finished.IsZero() }

// Open opens (or creates) the journal at path and migrates its schema.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// A single connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// RecordCommand appends one protocol record.
func (j *Journal) RecordCommand(dir camserver.Direction, text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO commands (at_unix_ms, direction, body) VALUES (?, ?, ?)`,
		j.now().UnixMilli(), dir.String(), text,
	)
	if err != nil {
		return fmt.Errorf("journal: record command: %w", err)
	}
	return nil
}

// Observer returns a camserver observer that journals every record.
// Insert failures are reported to onErr, which may be nil.
func (j *Journal) Observer(onErr func(error)) camserver.Observer {
	return func(dir camserver.Direction, text string) {
		if err := j.RecordCommand(dir, text); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

func (j *Journal) StartRun(runID string, imageIndex, frames int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO runs (run_id, image_index, frames_requested, started_unix_ms) VALUES (?, ?, ?, ?)`,
		runID, imageIndex, frames, j.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("journal: start run %s: %w", runID, err)
	}
	return nil
}

func (j *Journal) FinishRun(runID string, frames int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.Exec(
		`UPDATE runs SET frames_acquired = ?, finished_unix_ms = ? WHERE run_id = ?`,
		frames, j.now().UnixMilli(), runID,
	)
	if err != nil {
		return fmt.Errorf("journal: finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("journal: finish run %s: unknown run", runID)
	}
	return nil
}

// Runs lists runs oldest first.
func (j *Journal) Runs() ([]Run, error) {
	rows, err := j.db.Query(`
		SELECT run_id, image_index, frames_requested, frames_acquired, started_unix_ms, finished_unix_ms
		FROM runs ORDER BY started_unix_ms, rowid`)
	if err != nil {
		return nil, fmt.Errorf("journal: runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			acquired sql.NullInt64
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.ImageIndex, &r.FramesRequested, &acquired, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		r.FramesAcquired = int(acquired.Int64)
		r.Started = time.UnixMilli(started)
		if finished.Valid {
			r.Finished = time.UnixMilli(finished.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Commands returns the newest limit records, oldest first. limit <= 0
// returns everything.
func (j *Journal) Commands(limit int) ([]Command, error) {
	q := `SELECT id, at_unix_ms, direction, body FROM commands ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: commands: %w", err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		var (
			c  Command
			at int64
		)
		if err := rows.Scan(&c.ID, &at, &c.Direction, &c.Body); err != nil {
			return nil, fmt.Errorf("journal: scan command: %w", err)
		}
		c.At = time.UnixMilli(at)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}
