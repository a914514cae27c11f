// Package markov implements an order-2 Markov chain over word tokens with
// order-1 backoff, persisted through a store.Store.
//
// Ingestion tokenizes a line and records every (prev, curr, next) triple.
// Generation walks the recorded triples at random, forward from the start
// sentinel or in both directions from an anchor token taken from a seed.
package markov

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/rcliao/chatterchain/internal/model"
	"github.com/rcliao/chatterchain/internal/store"
)

var (
	// ErrNoAnchorMatch is returned when no lexicon entry matches the seed
	// token chosen for a reply. Callers may retry or generate freely.
	ErrNoAnchorMatch = errors.New("no similar words found")

	// ErrCorruptModel is returned when the sentinels do not hold their
	// reserved identities.
	ErrCorruptModel = errors.New("corrupt model")

	// ErrEmptyLine is returned when a line has no tokens to append.
	ErrEmptyLine = errors.New("empty line")
)

const (
	// DefaultChance is the default 1-in-N gate for unsolicited generation.
	DefaultChance = 10
	// DefaultMaxWords caps a single walk.
	DefaultMaxWords = 512
)

// Chain is a Markov chain model bound to a store.
type Chain struct {
	store       store.Store
	mode        Mode
	chance      int
	replyMode   ReplyMode
	maxWords    int
	concurrency int
	log         *zap.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithMode sets the model order mode.
func WithMode(m Mode) Option {
	return func(c *Chain) { c.mode = m }
}

// WithChance sets N for Chance's 1-in-N gate. Zero disables it.
func WithChance(n int) Option {
	return func(c *Chain) { c.chance = n }
}

// WithReplyMode sets how GenerateReply treats its seed.
func WithReplyMode(r ReplyMode) Option {
	return func(c *Chain) { c.replyMode = r }
}

// WithMaxWords caps the number of tokens one walk emits. Zero means no cap.
func WithMaxWords(n int) Option {
	return func(c *Chain) { c.maxWords = n }
}

// WithConcurrency limits the in-flight triple writes of one AppendLine.
// Zero means no limit.
func WithConcurrency(n int) Option {
	return func(c *Chain) { c.concurrency = n }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.log = l
		}
	}
}

// New binds a chain to s, inserting the end and start sentinels first so
// they receive identities 1 and 2.
func New(ctx context.Context, s store.Store, opts ...Option) (*Chain, error) {
	c := &Chain{
		store:     s,
		mode:      DefaultMode,
		chance:    DefaultChance,
		replyMode: DefaultReplyMode,
		maxWords:  DefaultMaxWords,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	end, err := s.AddWord(ctx, model.RoleEnd, "")
	if err != nil {
		return nil, fmt.Errorf("add end sentinel: %w", err)
	}
	start, err := s.AddWord(ctx, model.RoleStart, "")
	if err != nil {
		return nil, fmt.Errorf("add start sentinel: %w", err)
	}
	if end != model.EndID || start != model.StartID {
		return nil, fmt.Errorf("%w: sentinels at end=%d start=%d, want %d and %d",
			ErrCorruptModel, end, start, model.EndID, model.StartID)
	}

	c.log.Debug("chain ready",
		zap.Stringer("mode", c.mode),
		zap.Stringer("reply_mode", c.replyMode),
		zap.Int("chance", c.chance))
	return c, nil
}

// Mode returns the configured order mode.
func (c *Chain) Mode() Mode { return c.mode }

// ReplyMode returns the configured reply mode.
func (c *Chain) ReplyMode() ReplyMode { return c.replyMode }

// Chance reports true with probability 1/N, where N is the configured
// chance. It never reports true when N is zero.
func (c *Chain) Chance() bool {
	if c.chance <= 0 {
		return false
	}
	return rand.IntN(c.chance) == 0
}

// Generate walks forward from the start sentinel to the end sentinel.
func (c *Chain) Generate(ctx context.Context) (string, error) {
	return c.walk(ctx, forward, model.StartID, model.StartID, false)
}
