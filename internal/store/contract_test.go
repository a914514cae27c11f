package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rcliao/chatterchain/internal/model"
)

type testBackend interface {
	Store
	Importer
	Transition(ctx context.Context, prev, curr, next model.ID) (*model.Transition, error)
}

// runContract exercises the behaviour every backend must share.
func runContract(t *testing.T, open func(t *testing.T) testBackend) {
	t.Run("IdempotentAddWord", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		first, err := s.AddWord(ctx, model.RoleMiddle, "cat")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		for i := 0; i < 5; i++ {
			id, err := s.AddWord(ctx, model.RoleMiddle, "cat")
			if err != nil {
				t.Fatalf("add again: %v", err)
			}
			if id != first {
				t.Errorf("expected id %d on repeat %d, got %d", first, i, id)
			}
		}

		other, _ := s.AddWord(ctx, model.RoleFirst, "cat")
		if other == first {
			t.Error("expected a different role to get a different id")
		}
		if matches, _ := s.FindCaseInsensitive(ctx, "cat"); len(matches) != 2 {
			t.Errorf("expected exactly 2 rows for cat, got %d", len(matches))
		}
	})

	t.Run("MonotonicIdentities", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		end, _ := s.AddWord(ctx, model.RoleEnd, "")
		start, _ := s.AddWord(ctx, model.RoleStart, "")
		if end != model.EndID || start != model.StartID {
			t.Fatalf("expected sentinels 1 and 2, got %d and %d", end, start)
		}
		a, _ := s.AddWord(ctx, model.RoleFirst, "a")
		b, _ := s.AddWord(ctx, model.RoleLast, "b")
		if !(start < a && a < b) {
			t.Errorf("expected increasing ids, got start=%d a=%d b=%d", start, a, b)
		}
	})

	t.Run("WordNotFound", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		_, err := s.Word(ctx, 999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		id, _ := s.AddWord(ctx, model.RoleMiddle, "here")
		text, err := s.Word(ctx, id)
		if err != nil {
			t.Fatalf("word: %v", err)
		}
		if text != "here" {
			t.Errorf("expected 'here', got %q", text)
		}
	})

	t.Run("FindCaseInsensitive", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.AddWord(ctx, model.RoleEnd, "")
		s.AddWord(ctx, model.RoleStart, "")
		hello, _ := s.AddWord(ctx, model.RoleFirst, "Hello")
		hello2, _ := s.AddWord(ctx, model.RoleMiddle, "hello")
		s.AddWord(ctx, model.RoleMiddle, "world")

		got, err := s.FindCaseInsensitive(ctx, "HELLO")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(got))
		}
		if got[0].ID != hello || got[0].Role != model.RoleFirst {
			t.Errorf("unexpected first match %+v", got[0])
		}
		if got[1].ID != hello2 || got[1].Role != model.RoleMiddle {
			t.Errorf("unexpected second match %+v", got[1])
		}

		none, err := s.FindCaseInsensitive(ctx, "missing")
		if err != nil {
			t.Fatalf("find missing: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no matches, got %d", len(none))
		}

		sentinels, _ := s.FindCaseInsensitive(ctx, "")
		if len(sentinels) != 0 {
			t.Errorf("expected sentinels to be excluded, got %v", sentinels)
		}
	})

	t.Run("FindCaseInsensitiveUnicode", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		s.AddWord(ctx, model.RoleEnd, "")
		s.AddWord(ctx, model.RoleStart, "")
		upper, _ := s.AddWord(ctx, model.RoleFirst, "Über")
		s.AddWord(ctx, model.RoleMiddle, "alles")

		for _, q := range []string{"Über", "über", "ÜBER"} {
			got, err := s.FindCaseInsensitive(ctx, q)
			if err != nil {
				t.Fatalf("find %q: %v", q, err)
			}
			if len(got) != 1 || got[0].ID != upper || got[0].Text != "Über" {
				t.Errorf("find %q: expected the Über row, got %+v", q, got)
			}
		}

		greek, _ := s.AddWord(ctx, model.RoleLast, "ΣΟΦΙΑ")
		got, _ := s.FindCaseInsensitive(ctx, "σοφια")
		if len(got) != 1 || got[0].ID != greek {
			t.Errorf("expected the ΣΟΦΙΑ row, got %+v", got)
		}
	})

	t.Run("IncrementCounts", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		a, b, c := addThree(t, s)

		for i := 0; i < 3; i++ {
			if err := s.Increment(ctx, a, b, c); err != nil {
				t.Fatalf("increment: %v", err)
			}
		}

		tr, err := s.Transition(ctx, a, b, c)
		if err != nil {
			t.Fatalf("transition: %v", err)
		}
		if tr.Occurrences != 3 {
			t.Errorf("expected 3 occurrences, got %d", tr.Occurrences)
		}

		if _, err := s.Transition(ctx, c, b, a); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for unseen triple, got %v", err)
		}
	})

	t.Run("ConcurrentIncrementsLoseNothing", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		a, b, c := addThree(t, s)

		const workers, each = 8, 25
		var wg sync.WaitGroup
		errs := make(chan error, workers*each)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < each; i++ {
					if err := s.Increment(ctx, a, b, c); err != nil {
						errs <- err
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("increment: %v", err)
		}

		tr, err := s.Transition(ctx, a, b, c)
		if err != nil {
			t.Fatalf("transition: %v", err)
		}
		if tr.Occurrences != workers*each {
			t.Errorf("expected %d occurrences, got %d", workers*each, tr.Occurrences)
		}
	})

	t.Run("CandidateShapes", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		x, _ := s.AddWord(ctx, model.RoleFirst, "x")
		y, _ := s.AddWord(ctx, model.RoleFirst, "y")
		b, _ := s.AddWord(ctx, model.RoleMiddle, "b")
		c, _ := s.AddWord(ctx, model.RoleLast, "c")
		d, _ := s.AddWord(ctx, model.RoleLast, "d")

		s.AddOccurrences(ctx, x, b, c, 2)
		s.AddOccurrences(ctx, x, b, d, 1)
		s.AddOccurrences(ctx, y, b, c, 5)

		assertCandidates(t, "NextDouble(x,b)", mustCandidates(s.NextDouble(ctx, x, b)),
			[]model.Candidate{{ID: c, Weight: 2}, {ID: d, Weight: 1}})
		assertCandidates(t, "NextSingle(b)", mustCandidates(s.NextSingle(ctx, b)),
			[]model.Candidate{{ID: c, Weight: 7}, {ID: d, Weight: 1}})
		assertCandidates(t, "PrevDouble(b,c)", mustCandidates(s.PrevDouble(ctx, b, c)),
			[]model.Candidate{{ID: x, Weight: 2}, {ID: y, Weight: 5}})
		assertCandidates(t, "PrevSingle(b)", mustCandidates(s.PrevSingle(ctx, b)),
			[]model.Candidate{{ID: x, Weight: 3}, {ID: y, Weight: 5}})

		if got := mustCandidates(s.NextDouble(ctx, y, c)); len(got) != 0 {
			t.Errorf("expected dead end, got %v", got)
		}
		if got := mustCandidates(s.PrevSingle(ctx, x)); len(got) != 0 {
			t.Errorf("expected no predecessors, got %v", got)
		}
	})

	t.Run("AddOccurrencesRejectsNonPositive", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		a, b, c := addThree(t, s)

		if err := s.AddOccurrences(ctx, a, b, c, 0); err == nil {
			t.Error("expected error for zero count")
		}
	})
}

func addThree(t *testing.T, s Lexicon) (a, b, c model.ID) {
	t.Helper()
	ctx := context.Background()
	var err error
	if a, err = s.AddWord(ctx, model.RoleFirst, "a"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if b, err = s.AddWord(ctx, model.RoleMiddle, "b"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if c, err = s.AddWord(ctx, model.RoleLast, "c"); err != nil {
		t.Fatalf("add c: %v", err)
	}
	return a, b, c
}

func mustCandidates(c []model.Candidate, err error) []model.Candidate {
	if err != nil {
		panic(err)
	}
	return c
}

func assertCandidates(t *testing.T, name string, got, want []model.Candidate) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", name, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d]: expected %+v, got %+v", name, i, want[i], got[i])
		}
	}
}

func TestMemoryStoreContract(t *testing.T) {
	runContract(t, func(t *testing.T) testBackend { return NewMemoryStore() })
}

func TestSQLiteStoreContract(t *testing.T) {
	runContract(t, func(t *testing.T) testBackend { return newTestStore(t) })
}
