package markov

import (
	"fmt"
	"strings"
)

// Order selects which candidate sets a generation step samples from.
type Order int

const (
	// Single samples order-1 candidates only.
	Single Order = iota
	// Double samples order-2 candidates only.
	Double
	// Hybrid samples order-2 and backs off to order-1 whenever the chosen
	// edge's weight is below the mode threshold.
	Hybrid
)

func (o Order) String() string {
	switch o {
	case Single:
		return "single"
	case Double:
		return "double"
	case Hybrid:
		return "hybrid"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder parses "single", "double" or "hybrid", case-insensitively.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return Single, nil
	case "double":
		return Double, nil
	case "hybrid":
		return Hybrid, nil
	}
	return 0, fmt.Errorf("invalid markov type %q (valid: single, double, hybrid)", s)
}

// DefaultHybridThreshold is the backoff threshold used when none is given.
const DefaultHybridThreshold = 10

// Mode is the model order configuration.
type Mode struct {
	Order     Order
	Threshold int64 // only consulted by Hybrid
}

// DefaultMode is Hybrid with DefaultHybridThreshold.
var DefaultMode = Mode{Order: Hybrid, Threshold: DefaultHybridThreshold}

func (m Mode) String() string {
	if m.Order == Hybrid {
		return fmt.Sprintf("hybrid(%d)", m.Threshold)
	}
	return m.Order.String()
}

// ReplyMode controls how GenerateReply uses its seed text.
type ReplyMode int

const (
	// ReplyOff always yields an empty reply.
	ReplyOff ReplyMode = iota
	// ReplyRandom ignores the seed and generates freely.
	ReplyRandom
	// ReplyAnchored builds the reply around a token of the seed.
	ReplyAnchored
	// ReplyUnique is ReplyAnchored, falling back to free generation when the
	// reply would echo the seed.
	ReplyUnique
)

// DefaultReplyMode is ReplyAnchored.
const DefaultReplyMode = ReplyAnchored

func (r ReplyMode) String() string {
	switch r {
	case ReplyOff:
		return "off"
	case ReplyRandom:
		return "random"
	case ReplyAnchored:
		return "reply"
	case ReplyUnique:
		return "reply_unique"
	}
	return fmt.Sprintf("ReplyMode(%d)", int(r))
}

// ParseReplyMode parses "off", "random", "reply" or "reply_unique".
func ParseReplyMode(s string) (ReplyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return ReplyOff, nil
	case "random":
		return ReplyRandom, nil
	case "reply":
		return ReplyAnchored, nil
	case "reply_unique", "replyunique", "unique":
		return ReplyUnique, nil
	}
	return 0, fmt.Errorf("invalid reply mode %q (valid: off, random, reply, reply_unique)", s)
}
