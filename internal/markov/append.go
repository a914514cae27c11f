package markov

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/chatterchain/internal/model"
	"github.com/rcliao/chatterchain/internal/tokenizer"
)

type word struct {
	role model.Role
	text string
}

var (
	startWord = word{role: model.RoleStart}
	endWord   = word{role: model.RoleEnd}
)

// triples returns the (prev, curr, next) windows recorded for tokens: two
// start sentinels lead the line and one end sentinel closes it, giving
// len(tokens)+1 windows.
func triples(tokens []string) [][3]word {
	seq := make([]word, 0, len(tokens)+3)
	seq = append(seq, startWord, startWord)
	for i, t := range tokens {
		seq = append(seq, word{role: model.RoleAt(i, len(tokens)), text: t})
	}
	seq = append(seq, endWord)

	out := make([][3]word, 0, len(seq)-2)
	for i := 0; i+2 < len(seq); i++ {
		out = append(out, [3]word{seq[i], seq[i+1], seq[i+2]})
	}
	return out
}

// AppendLine tokenizes line and records each of its triples.
//
// Triples are written concurrently. The first failure cancels the rest and
// is returned; triples already committed stay committed.
func (c *Chain) AppendLine(ctx context.Context, line string) error {
	tokens := tokenizer.Split(line)
	if len(tokens) == 0 {
		return ErrEmptyLine
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for _, t := range triples(tokens) {
		g.Go(func() error {
			return c.appendTriple(gctx, t)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("append line: %w", err)
	}
	return nil
}

// Append records every non-blank line of text.
func (c *Chain) Append(ctx context.Context, text string) error {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := c.AppendLine(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// appendTriple resolves the three identities concurrently and then counts
// the triple once.
func (c *Chain) appendTriple(ctx context.Context, t [3]word) error {
	var ids [3]model.ID

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range t {
		g.Go(func() error {
			id, err := c.store.AddWord(gctx, w.role, w.text)
			if err != nil {
				return fmt.Errorf("add word %q: %w", w.text, err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := c.store.Increment(ctx, ids[0], ids[1], ids[2]); err != nil {
		return fmt.Errorf("increment: %w", err)
	}
	return nil
}
