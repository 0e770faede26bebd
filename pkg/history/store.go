// Package history keeps a local SQLite record of submission outcomes.
//
// The store is optional. When enabled, every classified outcome is appended
// and the most recent rows can be listed through the HTTP API or the
// `formai history` command.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/entrhq/formai/pkg/types"
)

// FileName is the database file created inside the history directory.
const FileName = "history.db"

// DefaultLimit is used by Recent when the limit is not positive.
const DefaultLimit = 20

// MaxLimit caps a single Recent query.
const MaxLimit = 500

// ErrNotFound is returned when the database does not exist and
// CreateIfNotExists is false.
var ErrNotFound = errors.New("history database not found")

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the service.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Entry is one stored submission.
type Entry struct {
	ID        int64
	CreatedAt time.Time
	Model     string
	Outcome   types.SubmissionOutcome
}

// Store is a SQLite-backed submission log. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Open opens or creates the store in dir.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	} else {
		mode = "rw"
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check history path: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath, now: time.Now}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL,
		details TEXT,
		model TEXT,
		tokens_used INTEGER,
		cost_estimate REAL,
		captcha_detected INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
	CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Record appends one outcome.
func (s *Store) Record(ctx context.Context, outcome *types.SubmissionOutcome, model string) (int64, error) {
	if outcome == nil {
		return 0, errors.New("outcome is nil")
	}

	var tokens sql.NullInt64
	if outcome.TokensUsed != nil {
		tokens = sql.NullInt64{Int64: int64(*outcome.TokensUsed), Valid: true}
	}
	var cost sql.NullFloat64
	if outcome.CostEstimate != nil {
		cost = sql.NullFloat64{Float64: *outcome.CostEstimate, Valid: true}
	}
	captcha := 0
	if outcome.CaptchaDetected {
		captcha = 1
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO submissions (request_id, created_at, url, status, message, details, model, tokens_used, cost_estimate, captcha_detected)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.RequestID,
		s.now().UnixMilli(),
		outcome.URL,
		string(outcome.Status),
		outcome.Message,
		outcome.Details,
		model,
		tokens,
		cost,
		captcha,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert submission: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, request_id, created_at, url, status, message, details, model, tokens_used, cost_estimate, captcha_detected
	FROM submissions
	ORDER BY created_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			created int64
			status  string
			details sql.NullString
			model   sql.NullString
			tokens  sql.NullInt64
			cost    sql.NullFloat64
			captcha int
		)
		if err := rows.Scan(&e.ID, &e.Outcome.RequestID, &created, &e.Outcome.URL, &status,
			&e.Outcome.Message, &details, &model, &tokens, &cost, &captcha); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		e.Model = model.String
		e.Outcome.Status = types.SubmissionStatus(status)
		e.Outcome.Details = details.String
		e.Outcome.CaptchaDetected = captcha != 0
		if tokens.Valid {
			n := int(tokens.Int64)
			e.Outcome.TokensUsed = &n
		}
		if cost.Valid {
			c := cost.Float64
			e.Outcome.CostEstimate = &c
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored submissions per status.
func (s *Store) Count(ctx context.Context) (map[types.SubmissionStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.SubmissionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[types.SubmissionStatus(status)] = n
	}
	return counts, rows.Err()
}
