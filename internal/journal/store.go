// Package journal keeps an optional SQLite record of reboot attempts so an
// operator can see when a service was restarted and what happened.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/faucetdb/reboot/internal/model"
)

// FileName is the database file created inside the journal directory.
const FileName = "reboot.db"

// ErrNotFound is returned when a requested attempt does not exist.
var ErrNotFound = errors.New("not found")

// Store persists reboot attempts in SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the journal in dir. Pass an empty string
// for an in-memory journal.
func Open(dir string) (*Store, error) {
	var dsn string
	if dir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		dsn = filepath.Join(dir, FileName) + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// attemptRow maps 1:1 to the attempts table. The command is stored as JSON.
type attemptRow struct {
	ID          int64     `db:"id"`
	RunID       string    `db:"run_id"`
	TargetPID   int       `db:"target_pid"`
	LaunchDir   string    `db:"launch_dir"`
	CommandJSON string    `db:"command_json"`
	Terminated  bool      `db:"terminated"`
	Killed      bool      `db:"killed"`
	NewPID      int       `db:"new_pid"`
	State       string    `db:"state"`
	Error       string    `db:"error"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
}

func attemptRowFromModel(a *model.Attempt) (attemptRow, error) {
	cmd := a.Command
	if cmd == nil {
		cmd = []string{}
	}
	cmdJSON, err := json.Marshal(cmd)
	if err != nil {
		return attemptRow{}, fmt.Errorf("marshal command: %w", err)
	}
	return attemptRow{
		ID:          a.ID,
		RunID:       a.RunID,
		TargetPID:   a.TargetPID,
		LaunchDir:   a.LaunchDir,
		CommandJSON: string(cmdJSON),
		Terminated:  a.Terminated,
		Killed:      a.Killed,
		NewPID:      a.NewPID,
		State:       string(a.State),
		Error:       a.Error,
		StartedAt:   a.StartedAt,
		FinishedAt:  a.FinishedAt,
	}, nil
}

func (r attemptRow) toModel() (model.Attempt, error) {
	var cmd []string
	if err := json.Unmarshal([]byte(r.CommandJSON), &cmd); err != nil {
		return model.Attempt{}, fmt.Errorf("unmarshal command for run %s: %w", r.RunID, err)
	}
	return model.Attempt{
		ID:         r.ID,
		RunID:      r.RunID,
		TargetPID:  r.TargetPID,
		LaunchDir:  r.LaunchDir,
		Command:    cmd,
		Terminated: r.Terminated,
		Killed:     r.Killed,
		NewPID:     r.NewPID,
		State:      model.State(r.State),
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}, nil
}

// Record inserts an attempt. The ID field on a is populated after a
// successful insert.
func (s *Store) Record(ctx context.Context, a *model.Attempt) error {
	row, err := attemptRowFromModel(a)
	if err != nil {
		return err
	}

	const q = `INSERT INTO attempts
		(run_id, target_pid, launch_dir, command_json, terminated, killed, new_pid,
		 state, error, started_at, finished_at)
		VALUES
		(:run_id, :target_pid, :launch_dir, :command_json, :terminated, :killed, :new_pid,
		 :state, :error, :started_at, :finished_at)`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get attempt id: %w", err)
	}
	a.ID = id
	return nil
}

// Get returns the attempt with the given run ID.
func (s *Store) Get(ctx context.Context, runID string) (*model.Attempt, error) {
	var row attemptRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM attempts WHERE run_id = ?", runID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	a, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	LaunchDir string
	Limit     int
}

// List returns attempts newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]model.Attempt, error) {
	q := "SELECT * FROM attempts"
	var args []any
	if f.LaunchDir != "" {
		q += " WHERE launch_dir = ?"
		args = append(args, f.LaunchDir)
	}
	q += " ORDER BY started_at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var rows []attemptRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]model.Attempt, 0, len(rows))
	for _, r := range rows {
		a, err := r.toModel()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

// Prune deletes attempts that started before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM attempts WHERE started_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return result.RowsAffected()
}
