package markov

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rcliao/chatterchain/internal/model"
	"github.com/rcliao/chatterchain/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

func newMemoryChain(t *testing.T, opts ...Option) (*Chain, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	c, err := New(context.Background(), s, opts...)
	require.NoError(t, err)
	return c, s
}

func newSQLiteChain(t *testing.T, opts ...Option) (*Chain, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	c, err := New(context.Background(), s, opts...)
	require.NoError(t, err)
	return c, s
}

// faultyStore wraps a store and injects failures.
type faultyStore struct {
	store.Store
	failIncrementAfter int64 // fail once this many increments have succeeded; <0 never
	increments         atomic.Int64
	missingWord        model.ID
}

var errInjected = errors.New("injected failure")

func (f *faultyStore) Increment(ctx context.Context, prev, curr, next model.ID) error {
	if f.failIncrementAfter >= 0 && f.increments.Load() >= f.failIncrementAfter {
		return errInjected
	}
	if err := f.Store.Increment(ctx, prev, curr, next); err != nil {
		return err
	}
	f.increments.Add(1)
	return nil
}

func (f *faultyStore) Word(ctx context.Context, id model.ID) (string, error) {
	if id == f.missingWord {
		return "", store.ErrNotFound
	}
	return f.Store.Word(ctx, id)
}

func TestSentinelStability(t *testing.T) {
	modes := []Mode{
		{Order: Single},
		{Order: Double},
		{Order: Hybrid, Threshold: 3},
	}
	for _, m := range modes {
		t.Run(m.String(), func(t *testing.T) {
			ctx := context.Background()
			_, s := newMemoryChain(t, WithMode(m))

			end, err := s.AddWord(ctx, model.RoleEnd, "")
			require.NoError(t, err)
			start, err := s.AddWord(ctx, model.RoleStart, "")
			require.NoError(t, err)

			assert.Equal(t, model.EndID, end)
			assert.Equal(t, model.StartID, start)
		})
	}
}

func TestSentinelStabilitySQLite(t *testing.T) {
	ctx := context.Background()
	_, s := newSQLiteChain(t)

	end, _ := s.AddWord(ctx, model.RoleEnd, "")
	start, _ := s.AddWord(ctx, model.RoleStart, "")
	assert.Equal(t, model.EndID, end)
	assert.Equal(t, model.StartID, start)

	// Binding a second chain to the same store keeps the sentinels.
	_, err := New(ctx, s)
	assert.NoError(t, err)
}

func TestNewRejectsCorruptModel(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	// User content inserted before the sentinels shifts their identities.
	_, err := s.AddWord(ctx, model.RoleFirst, "early")
	require.NoError(t, err)

	_, err = New(ctx, s)
	assert.ErrorIs(t, err, ErrCorruptModel)
}

func TestNewPropagatesStoreFailure(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	s.Close()

	_, err = New(context.Background(), s)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestChance(t *testing.T) {
	never, _ := newMemoryChain(t, WithChance(0))
	always, _ := newMemoryChain(t, WithChance(1))
	for i := 0; i < 100; i++ {
		assert.False(t, never.Chance())
		assert.True(t, always.Chance())
	}

	tenth, _ := newMemoryChain(t, WithChance(10))
	hits := 0
	const trials = 20000
	for i := 0; i < trials; i++ {
		if tenth.Chance() {
			hits++
		}
	}
	assert.InDelta(t, 0.1, float64(hits)/trials, 0.02)
}

func TestDefaults(t *testing.T) {
	c, _ := newMemoryChain(t)
	assert.Equal(t, DefaultMode, c.Mode())
	assert.Equal(t, ReplyAnchored, c.ReplyMode())
	assert.Equal(t, "hybrid(10)", c.Mode().String())
}

func TestParseOrder(t *testing.T) {
	for in, want := range map[string]Order{"single": Single, "Double": Double, " hybrid ": Hybrid} {
		got, err := ParseOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseOrder("triple")
	assert.Error(t, err)
}

func TestParseReplyMode(t *testing.T) {
	for in, want := range map[string]ReplyMode{
		"off": ReplyOff, "random": ReplyRandom, "reply": ReplyAnchored, "reply_unique": ReplyUnique,
	} {
		got, err := ParseReplyMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		assert.Equal(t, in, got.String())
	}
	_, err := ParseReplyMode("sometimes")
	assert.Error(t, err)
}
