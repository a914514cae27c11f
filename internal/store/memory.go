package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rcliao/chatterchain/internal/model"
)

type wordKey struct {
	role model.Role
	text string
}

type triple struct {
	prev, curr, next model.ID
}

// MemoryStore implements Store in process memory. It mirrors SQLiteStore's
// semantics, including identity assignment order and aggregation.
type MemoryStore struct {
	mu     sync.RWMutex
	ids    map[wordKey]model.ID
	tokens []model.Token // index i holds identity i+1
	counts map[triple]int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:    make(map[wordKey]model.ID),
		counts: make(map[triple]int64),
	}
}

func (m *MemoryStore) AddWord(ctx context.Context, role model.Role, text string) (model.ID, error) {
	k := wordKey{role, text}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.ids[k]; ok {
		return id, nil
	}
	id := model.ID(len(m.tokens) + 1)
	m.ids[k] = id
	m.tokens = append(m.tokens, model.Token{ID: id, Role: role, Text: text})
	return id, nil
}

func (m *MemoryStore) Word(ctx context.Context, id model.ID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id < 1 || int(id) > len(m.tokens) {
		return "", fmt.Errorf("word %d: %w", id, ErrNotFound)
	}
	return m.tokens[id-1].Text, nil
}

func (m *MemoryStore) FindCaseInsensitive(ctx context.Context, text string) ([]model.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	folded := foldCase(text)
	var out []model.Token
	for _, tok := range m.tokens {
		if tok.Role.IsSentinel() {
			continue
		}
		if foldCase(tok.Text) == folded {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (m *MemoryStore) Increment(ctx context.Context, prev, curr, next model.ID) error {
	return m.AddOccurrences(ctx, prev, curr, next, 1)
}

// AddOccurrences adds n observations of the triple.
func (m *MemoryStore) AddOccurrences(ctx context.Context, prev, curr, next model.ID, n int64) error {
	if n < 1 {
		return fmt.Errorf("add occurrences: count must be positive, got %d", n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range []model.ID{prev, curr, next} {
		if id < 1 || int(id) > len(m.tokens) {
			return fmt.Errorf("increment: word %d: %w", id, ErrNotFound)
		}
	}
	m.counts[triple{prev, curr, next}] += n
	return nil
}

func (m *MemoryStore) NextSingle(ctx context.Context, curr model.ID) ([]model.Candidate, error) {
	return m.collect(func(t triple) (model.ID, bool) { return t.next, t.curr == curr }), nil
}

func (m *MemoryStore) NextDouble(ctx context.Context, prev, curr model.ID) ([]model.Candidate, error) {
	return m.collect(func(t triple) (model.ID, bool) { return t.next, t.prev == prev && t.curr == curr }), nil
}

func (m *MemoryStore) PrevSingle(ctx context.Context, curr model.ID) ([]model.Candidate, error) {
	return m.collect(func(t triple) (model.ID, bool) { return t.prev, t.curr == curr }), nil
}

func (m *MemoryStore) PrevDouble(ctx context.Context, curr, next model.ID) ([]model.Candidate, error) {
	return m.collect(func(t triple) (model.ID, bool) { return t.prev, t.curr == curr && t.next == next }), nil
}

// collect sums the weights of matching triples by the projected identity,
// ordered by identity like the SQL queries.
func (m *MemoryStore) collect(project func(triple) (model.ID, bool)) []model.Candidate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sums := make(map[model.ID]int64)
	for t, n := range m.counts {
		if id, ok := project(t); ok {
			sums[id] += n
		}
	}
	if len(sums) == 0 {
		return nil
	}

	out := make([]model.Candidate, 0, len(sums))
	for id, w := range sums {
		out = append(out, model.Candidate{ID: id, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transition returns the stored row for a triple, or ErrNotFound.
func (m *MemoryStore) Transition(ctx context.Context, prev, curr, next model.ID) (*model.Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.counts[triple{prev, curr, next}]
	if !ok {
		return nil, fmt.Errorf("transition %d,%d,%d: %w", prev, curr, next, ErrNotFound)
	}
	return &model.Transition{Prev: prev, Curr: curr, Next: next, Occurrences: n}, nil
}

// Len returns the number of words and transitions held.
func (m *MemoryStore) Len() (words, transitions int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens), len(m.counts)
}

func (m *MemoryStore) Close() error { return nil }
