package markov

import (
	"context"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"

	"github.com/rcliao/chatterchain/internal/model"
	"github.com/rcliao/chatterchain/internal/tokenizer"
)

type direction int

const (
	forward direction = iota
	backward
)

func (d direction) String() string {
	if d == backward {
		return "backward"
	}
	return "forward"
}

// stop is the sentinel that ends a walk in direction d.
func (d direction) stop() model.ID {
	if d == backward {
		return model.StartID
	}
	return model.EndID
}

// choice is one sampling outcome and the order that produced it.
type choice struct {
	id     model.ID
	weight int64
	order  Order
}

// sample picks a candidate with probability proportional to its weight.
// It reports false for an empty (or weightless) set.
func sample(cands []model.Candidate) (model.Candidate, bool) {
	var total int64
	for _, c := range cands {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total == 0 {
		return model.Candidate{}, false
	}

	r := rand.Int64N(total)
	for _, c := range cands {
		if c.Weight <= 0 {
			continue
		}
		r -= c.Weight
		if r < 0 {
			return c, true
		}
	}
	return cands[len(cands)-1], true
}

// pickSingle samples the order-1 neighbours of curr.
func (c *Chain) pickSingle(ctx context.Context, d direction, curr model.ID) (choice, bool, error) {
	var cands []model.Candidate
	var err error
	if d == forward {
		cands, err = c.store.NextSingle(ctx, curr)
	} else {
		cands, err = c.store.PrevSingle(ctx, curr)
	}
	if err != nil {
		return choice{}, false, err
	}
	cand, ok := sample(cands)
	return choice{id: cand.ID, weight: cand.Weight, order: Single}, ok, nil
}

// pickDouble samples the order-2 neighbours of the (old, curr) state. Going
// backward, old is the token after curr.
func (c *Chain) pickDouble(ctx context.Context, d direction, old, curr model.ID) (choice, bool, error) {
	var cands []model.Candidate
	var err error
	if d == forward {
		cands, err = c.store.NextDouble(ctx, old, curr)
	} else {
		cands, err = c.store.PrevDouble(ctx, curr, old)
	}
	if err != nil {
		return choice{}, false, err
	}
	cand, ok := sample(cands)
	return choice{id: cand.ID, weight: cand.Weight, order: Double}, ok, nil
}

// step chooses the neighbour of curr in direction d under the chain's mode.
// Hybrid backoff is decided per step: an order-2 choice whose weight is
// below the threshold is discarded and order-1 is sampled instead. An empty
// order-2 set is a dead end in every mode.
func (c *Chain) step(ctx context.Context, d direction, old, curr model.ID) (choice, bool, error) {
	switch c.mode.Order {
	case Single:
		return c.pickSingle(ctx, d, curr)
	case Double:
		return c.pickDouble(ctx, d, old, curr)
	}

	ch, ok, err := c.pickDouble(ctx, d, old, curr)
	if err != nil || !ok {
		return choice{}, false, err
	}
	if ch.weight >= c.mode.Threshold {
		return ch, true, nil
	}
	return c.pickSingle(ctx, d, curr)
}

// walk is the single generation routine behind every public variant.
//
// Starting from the state (old, curr) it samples neighbours in direction d
// until the direction's stop sentinel is chosen, no candidate exists, or the
// word cap is reached. When emitSeed is set, curr itself is emitted first.
// Backward walks collect tokens in reverse and flip them before joining, so
// the spacing rule is the same in both directions.
func (c *Chain) walk(ctx context.Context, d direction, old, curr model.ID, emitSeed bool) (string, error) {
	stop := d.stop()
	var tokens []string

	emit := func(id model.ID) error {
		text, err := c.store.Word(ctx, id)
		if err != nil {
			return err
		}
		tokens = append(tokens, text)
		return nil
	}

	if emitSeed {
		if curr == stop {
			return "", nil
		}
		if err := emit(curr); err != nil {
			return "", err
		}
	}

	for c.maxWords <= 0 || len(tokens) < c.maxWords {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		ch, ok, err := c.step(ctx, d, old, curr)
		if err != nil {
			return "", err
		}
		if !ok {
			c.log.Debug("walk reached a dead end",
				zap.Stringer("direction", d),
				zap.Int64("old", int64(old)),
				zap.Int64("curr", int64(curr)),
				zap.Int("emitted", len(tokens)))
			break
		}
		if ch.id == stop {
			break
		}
		if err := emit(ch.id); err != nil {
			return "", err
		}
		old, curr = curr, ch.id
	}

	if d == backward {
		slices.Reverse(tokens)
	}
	return tokenizer.Join(tokens), nil
}
