package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/chatterchain/internal/model"
)

// DefaultWordCacheSize is the number of id -> text entries kept in memory.
const DefaultWordCacheSize = 8192

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	words *lru.Cache

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// The special path ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := ":memory:?_pragma=foreign_keys(on)"
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable("open db", err)
	}
	// A single connection owns the database. Concurrent callers queue on it,
	// and every write below is one atomic statement.
	db.SetMaxOpenConns(1)

	cache, err := lru.New(DefaultWordCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("word cache: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		words:   cache,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, unavailable("migrate", err)
	}

	return s, nil
}

// NewRunID returns a fresh ULID for an ingestion run.
func (s *SQLiteStore) NewRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS Words (
		id      INTEGER PRIMARY KEY,
		keyword TEXT NOT NULL,
		string  TEXT NOT NULL,
		UNIQUE(keyword, string)
	);

	CREATE TABLE IF NOT EXISTS Occurrence (
		prev        INTEGER NOT NULL REFERENCES Words(id),
		curr        INTEGER NOT NULL REFERENCES Words(id),
		next        INTEGER NOT NULL REFERENCES Words(id),
		occurrences INTEGER NOT NULL DEFAULT 1,
		UNIQUE(prev, curr, next)
	);
	CREATE INDEX IF NOT EXISTS idx_occurrence_curr_next ON Occurrence(curr, next);

	CREATE TABLE IF NOT EXISTS Feeds (
		id          TEXT PRIMARY KEY,
		source      TEXT NOT NULL,
		lines       INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		error       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_feeds_started ON Feeds(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) AddWord(ctx context.Context, role model.Role, text string) (model.ID, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO Words (keyword, string) VALUES (?, ?)`, string(role), text)
	if err != nil {
		return 0, unavailable("insert word", err)
	}

	var id model.ID
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM Words WHERE keyword = ? AND string = ?`, string(role), text).Scan(&id)
	if err != nil {
		return 0, unavailable("select word id", err)
	}
	return id, nil
}

func (s *SQLiteStore) Word(ctx context.Context, id model.ID) (string, error) {
	if v, ok := s.words.Get(id); ok {
		return v.(string), nil
	}

	var text string
	err := s.db.QueryRowContext(ctx, `SELECT string FROM Words WHERE id = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("word %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", unavailable("select word", err)
	}

	s.words.Add(id, text)
	return text, nil
}

// FindCaseInsensitive matches on casefold(string), a Go function registered
// with the driver. Sentinel rows are never returned.
func (s *SQLiteStore) FindCaseInsensitive(ctx context.Context, text string) ([]model.Token, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, keyword, string FROM Words
		 WHERE casefold(string) = ? AND keyword NOT IN ('start', 'end')
		 ORDER BY id`, foldCase(text))
	if err != nil {
		return nil, unavailable("find words", err)
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var tok model.Token
		var role string
		if err := rows.Scan(&tok.ID, &role, &tok.Text); err != nil {
			return nil, unavailable("scan word", err)
		}
		tok.Role = model.Role(role)
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find words", err)
	}
	return tokens, nil
}

func (s *SQLiteStore) Increment(ctx context.Context, prev, curr, next model.ID) error {
	return s.AddOccurrences(ctx, prev, curr, next, 1)
}

// AddOccurrences adds n observations of the triple as one upsert.
func (s *SQLiteStore) AddOccurrences(ctx context.Context, prev, curr, next model.ID, n int64) error {
	if n < 1 {
		return fmt.Errorf("add occurrences: count must be positive, got %d", n)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO Occurrence (prev, curr, next, occurrences) VALUES (?, ?, ?, ?)
		 ON CONFLICT(prev, curr, next) DO UPDATE SET occurrences = occurrences + excluded.occurrences`,
		prev, curr, next, n)
	if err != nil {
		return unavailable("increment", err)
	}
	return nil
}

func (s *SQLiteStore) NextSingle(ctx context.Context, curr model.ID) ([]model.Candidate, error) {
	return s.candidates(ctx, "next single",
		`SELECT next, SUM(occurrences) FROM Occurrence WHERE curr = ? GROUP BY next ORDER BY next`, curr)
}

func (s *SQLiteStore) NextDouble(ctx context.Context, prev, curr model.ID) ([]model.Candidate, error) {
	return s.candidates(ctx, "next double",
		`SELECT next, occurrences FROM Occurrence WHERE prev = ? AND curr = ? ORDER BY next`, prev, curr)
}

func (s *SQLiteStore) PrevSingle(ctx context.Context, curr model.ID) ([]model.Candidate, error) {
	return s.candidates(ctx, "prev single",
		`SELECT prev, SUM(occurrences) FROM Occurrence WHERE curr = ? GROUP BY prev ORDER BY prev`, curr)
}

func (s *SQLiteStore) PrevDouble(ctx context.Context, curr, next model.ID) ([]model.Candidate, error) {
	return s.candidates(ctx, "prev double",
		`SELECT prev, occurrences FROM Occurrence WHERE curr = ? AND next = ? ORDER BY prev`, curr, next)
}

func (s *SQLiteStore) candidates(ctx context.Context, op, query string, args ...interface{}) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Weight); err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

// Transition returns the stored row for a triple, or ErrNotFound.
func (s *SQLiteStore) Transition(ctx context.Context, prev, curr, next model.ID) (*model.Transition, error) {
	t := &model.Transition{Prev: prev, Curr: curr, Next: next}
	err := s.db.QueryRowContext(ctx,
		`SELECT occurrences FROM Occurrence WHERE prev = ? AND curr = ? AND next = ?`,
		prev, curr, next).Scan(&t.Occurrences)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition %d,%d,%d: %w", prev, curr, next, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("select transition", err)
	}
	return t, nil
}

func (s *SQLiteStore) RecordFeed(ctx context.Context, run FeedRun) error {
	var errText *string
	if run.Error != "" {
		errText = &run.Error
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO Feeds (id, source, lines, skipped, started_at, finished_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Lines, run.Skipped,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339), errText)
	if err != nil {
		return unavailable("insert feed", err)
	}
	return nil
}

// Feeds returns the most recent ingestion runs, newest first.
func (s *SQLiteStore) Feeds(ctx context.Context, limit int) ([]FeedRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, lines, skipped, started_at, finished_at, error
		 FROM Feeds ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, unavailable("list feeds", err)
	}
	defer rows.Close()

	var runs []FeedRun
	for rows.Next() {
		var r FeedRun
		var started, finished string
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.Source, &r.Lines, &r.Skipped, &started, &finished, &errText); err != nil {
			return nil, unavailable("scan feed", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		if errText.Valid {
			r.Error = errText.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
