package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/process"
)

// Entry is one recorded invocation.
type Entry struct {
	ID               string    `json:"id"`
	Mode             string    `json:"mode"`
	ExecutablePath   string    `json:"executable_path"`
	Arguments        string    `json:"arguments,omitempty"`
	WorkingDirectory string    `json:"working_directory,omitempty"`
	Started          bool      `json:"started"`
	ProcessID        int       `json:"process_id,omitempty"`
	ExitCode         int       `json:"exit_code"`
	Outcome          string    `json:"outcome,omitempty"`
	StartTime        time.Time `json:"start_time,omitzero"`
	ExitTime         time.Time `json:"exit_time,omitzero"`
	Succeeded        bool      `json:"succeeded"`
	ErrorCode        string    `json:"error_code,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// Duration is the process wall time, zero if it never started.
func (e Entry) Duration() time.Duration {
	if e.StartTime.IsZero() || e.ExitTime.IsZero() {
		return 0
	}
	return e.ExitTime.Sub(e.StartTime)
}

// Filter narrows List results.
type Filter struct {
	// Executable matches ExecutablePath exactly.
	Executable string
	// FailedOnly returns only unsuccessful invocations.
	FailedOnly bool
	// Since excludes invocations recorded earlier.
	Since time.Time
	// Limit caps the number of entries; 0 means no limit.
	Limit int
}

// Store is a SQLite-backed invocation journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ process.Observer = (*Store)(nil)

// Open opens (creating if needed) the journal database at cfg.Path.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	} else {
		// Every pooled connection would otherwise get its own empty database.
		cfg.MaxOpenConns = 1
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(min(cfg.MaxOpenConns, 2))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run journal migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			executable_path TEXT NOT NULL,
			arguments TEXT NOT NULL DEFAULT '',
			working_directory TEXT NOT NULL DEFAULT '',
			started INTEGER NOT NULL,
			process_id INTEGER,
			exit_code INTEGER,
			outcome TEXT,
			start_time INTEGER,
			exit_time INTEGER,
			succeeded INTEGER NOT NULL,
			error_code TEXT,
			error_message TEXT,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_recorded_at ON invocations(recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_executable ON invocations(executable_path)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Observe records inv. It implements process.Observer.
func (s *Store) Observe(ctx context.Context, inv process.Invocation) error {
	return s.Record(ctx, EntryFromInvocation(inv, s.now()))
}

// EntryFromInvocation flattens inv into an Entry recorded at recordedAt.
func EntryFromInvocation(inv process.Invocation, recordedAt time.Time) Entry {
	e := Entry{
		ID:         inv.ID,
		Mode:       string(inv.Mode),
		Succeeded:  inv.Err == nil,
		RecordedAt: recordedAt,
	}
	if cfg := inv.Configuration; cfg != nil {
		e.ExecutablePath = cfg.TargetFilePath
		e.Arguments = cfg.Arguments
		e.WorkingDirectory = cfg.WorkingDirectory
	}
	if r := inv.Result; r != nil {
		e.Started = true
		e.ExecutablePath = r.ExecutablePath
		e.ProcessID = r.ProcessID
		e.ExitCode = r.ExitCode
		e.Outcome = r.Outcome.String()
		e.StartTime = r.StartTime
		e.ExitTime = r.ExitTime
	}
	if inv.Err != nil {
		e.ErrorMessage = inv.Err.Error()
		if appErr, ok := apperrors.AsAppError(inv.Err); ok {
			e.ErrorCode = string(appErr.Code)
		}
	}
	return e
}

// Record inserts e.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return apperrors.InvalidInput("id", "entry id is required")
	}
	var pid, exitCode any
	var outcome any
	if e.Started {
		pid, exitCode, outcome = e.ProcessID, e.ExitCode, e.Outcome
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocations (
			id, mode, executable_path, arguments, working_directory, started,
			process_id, exit_code, outcome, start_time, exit_time,
			succeeded, error_code, error_message, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Mode, e.ExecutablePath, e.Arguments, e.WorkingDirectory, e.Started,
		pid, exitCode, outcome, unixNano(e.StartTime), unixNano(e.ExitTime),
		e.Succeeded, nullString(e.ErrorCode), nullString(e.ErrorMessage), e.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation %s: %w", e.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, mode, executable_path, arguments, working_directory, started,
	process_id, exit_code, outcome, start_time, exit_time,
	succeeded, error_code, error_message, recorded_at FROM invocations`

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("invocation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}
	return e, nil
}

// List returns entries matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := selectColumns + " WHERE 1=1"
	args := []any{}

	if f.Executable != "" {
		query += " AND executable_path = ?"
		args = append(args, f.Executable)
	}
	if f.FailedOnly {
		query += " AND succeeded = 0"
	}
	if !f.Since.IsZero() {
		query += " AND recorded_at >= ?"
		args = append(args, f.Since.UnixNano())
	}

	query += " ORDER BY recorded_at DESC, id"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Prune deletes entries recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM invocations WHERE recorded_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                   Entry
		pid, exitCode       sql.NullInt64
		startTime, exitTime sql.NullInt64
		outcome, code, msg  sql.NullString
		recordedAt          int64
	)
	err := row.Scan(
		&e.ID, &e.Mode, &e.ExecutablePath, &e.Arguments, &e.WorkingDirectory, &e.Started,
		&pid, &exitCode, &outcome, &startTime, &exitTime,
		&e.Succeeded, &code, &msg, &recordedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ProcessID = int(pid.Int64)
	e.ExitCode = int(exitCode.Int64)
	e.Outcome = outcome.String
	e.ErrorCode = code.String
	e.ErrorMessage = msg.String
	if startTime.Valid {
		e.StartTime = time.Unix(0, startTime.Int64)
	}
	if exitTime.Valid {
		e.ExitTime = time.Unix(0, exitTime.Int64)
	}
	e.RecordedAt = time.Unix(0, recordedAt)
	return &e, nil
}

func unixNano(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
