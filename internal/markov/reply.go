package markov

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/rcliao/chatterchain/internal/model"
	"github.com/rcliao/chatterchain/internal/tokenizer"
)

// GenerateReply produces a reply to seed according to the reply mode.
//
// In the anchored modes a token of seed is chosen at random and matched
// case-insensitively against the lexicon; the reply is then built so that
// it passes through the matched token. ErrNoAnchorMatch is returned when
// nothing matches.
func (c *Chain) GenerateReply(ctx context.Context, seed string) (string, error) {
	switch c.replyMode {
	case ReplyOff:
		return "", nil
	case ReplyRandom:
		return c.Generate(ctx)
	}

	anchor, err := c.pickAnchor(ctx, seed)
	if err != nil {
		return "", err
	}

	sentence, err := c.ReplyFrom(ctx, anchor)
	if err != nil {
		return "", err
	}

	if c.replyMode == ReplyUnique && sentence == seed {
		c.log.Debug("reply echoed its seed, generating freely", zap.String("seed", seed))
		return c.Generate(ctx)
	}
	return sentence, nil
}

// pickAnchor chooses a seed token uniformly and then one of its lexicon
// matches uniformly.
func (c *Chain) pickAnchor(ctx context.Context, seed string) (model.Token, error) {
	words := tokenizer.Split(seed)
	if len(words) == 0 {
		return model.Token{}, fmt.Errorf("%w: empty seed", ErrNoAnchorMatch)
	}
	word := words[rand.IntN(len(words))]

	matches, err := c.store.FindCaseInsensitive(ctx, word)
	if err != nil {
		return model.Token{}, fmt.Errorf("find anchor: %w", err)
	}
	if len(matches) == 0 {
		return model.Token{}, fmt.Errorf("%w: %q", ErrNoAnchorMatch, word)
	}
	return matches[rand.IntN(len(matches))], nil
}

// ReplyFrom builds a sentence that passes through anchor.
//
// A first-role anchor opens the sentence and the walk goes forward only; a
// last-role anchor closes it and the walk goes backward only. Any other
// anchor is given a successor (the pivot) by order-1 sampling; the sentence
// is the backward walk ending at the anchor followed by the forward walk
// starting at the pivot.
func (c *Chain) ReplyFrom(ctx context.Context, anchor model.Token) (string, error) {
	switch anchor.Role {
	case model.RoleFirst:
		return c.walk(ctx, forward, model.StartID, anchor.ID, true)
	case model.RoleLast:
		return c.walk(ctx, backward, model.EndID, anchor.ID, true)
	}

	pivot := model.EndID
	ch, ok, err := c.pickSingle(ctx, forward, anchor.ID)
	if err != nil {
		return "", err
	}
	if ok {
		pivot = ch.id
	}

	head, err := c.walk(ctx, backward, pivot, anchor.ID, true)
	if err != nil {
		return "", err
	}
	tail, err := c.walk(ctx, forward, anchor.ID, pivot, true)
	if err != nil {
		return "", err
	}
	return joinHalves(head, tail), nil
}

// joinHalves separates the halves with one space unless either boundary
// rune is punctuation.
func joinHalves(head, tail string) string {
	if head == "" {
		return tail
	}
	if tail == "" {
		return head
	}
	if tokenizer.EndsWithPunctuation(head) || tokenizer.StartsWithPunctuation(tail) {
		return head + tail
	}
	return head + " " + tail
}
