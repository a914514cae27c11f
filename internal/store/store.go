// Package store provides the lexicon and transition storage interfaces and
// their SQLite and in-memory implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/chatterchain/internal/model"
)

var (
	// ErrNotFound is returned when a lexicon identity does not resolve.
	// It signals a corrupt or mismatched model.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps failures to open the store or run a query.
	ErrUnavailable = errors.New("store unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Lexicon persists unique (role, text) pairs under stable identities.
type Lexicon interface {
	// AddWord inserts the pair if absent and returns its identity.
	AddWord(ctx context.Context, role model.Role, text string) (model.ID, error)

	// Word returns the surface text of id, or an error wrapping ErrNotFound.
	Word(ctx context.Context, id model.ID) (string, error)

	// FindCaseInsensitive returns every token whose text case-folds to text.
	FindCaseInsensitive(ctx context.Context, text string) ([]model.Token, error)
}

// Transitions persists weighted (prev, curr, next) edges.
// An empty candidate set is a valid result, not an error.
type Transitions interface {
	// Increment adds one observation of the triple in a single atomic step.
	Increment(ctx context.Context, prev, curr, next model.ID) error

	// NextSingle aggregates over every prev: curr -> next.
	NextSingle(ctx context.Context, curr model.ID) ([]model.Candidate, error)

	// NextDouble returns the exact (prev, curr) -> next distribution.
	NextDouble(ctx context.Context, prev, curr model.ID) ([]model.Candidate, error)

	// PrevSingle aggregates over every next: curr -> prev.
	PrevSingle(ctx context.Context, curr model.ID) ([]model.Candidate, error)

	// PrevDouble returns the exact (curr, next) -> prev distribution.
	PrevDouble(ctx context.Context, curr, next model.ID) ([]model.Candidate, error)
}

// Store is the full capability set the chain model needs.
type Store interface {
	Lexicon
	Transitions

	// Close closes the store.
	Close() error
}

// FeedRun describes one corpus ingestion run.
type FeedRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Lines      int       `json:"lines"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// FeedRecorder is implemented by stores that keep a log of ingestion runs.
type FeedRecorder interface {
	NewRunID() string
	RecordFeed(ctx context.Context, run FeedRun) error
}
