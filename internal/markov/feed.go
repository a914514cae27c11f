package markov

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/chatterchain/internal/store"
)

const (
	// DefaultLogEvery is how many appended lines pass between progress logs.
	DefaultLogEvery = 1000

	maxLineBytes = 1 << 20
)

type feedOptions struct {
	source   string
	progress func(store.FeedRun)
	logEvery int
}

// FeedOption configures Feed.
type FeedOption func(*feedOptions)

// WithSource names the corpus in logs and in the run record.
func WithSource(name string) FeedOption {
	return func(o *feedOptions) { o.source = name }
}

// WithProgress registers a callback invoked after every appended line.
func WithProgress(fn func(store.FeedRun)) FeedOption {
	return func(o *feedOptions) { o.progress = fn }
}

// WithLogEvery sets how many lines pass between progress logs. Zero
// disables progress logging.
func WithLogEvery(n int) FeedOption {
	return func(o *feedOptions) { o.logEvery = n }
}

// Feed appends every utterance of r, one per line. Blank lines are skipped
// and counted. Lines are appended in order; the first failure or context
// cancellation aborts the scan. When the store keeps a run log the run is
// recorded there, failed or not.
func (c *Chain) Feed(ctx context.Context, r io.Reader, opts ...FeedOption) (*store.FeedRun, error) {
	o := feedOptions{source: "-", logEvery: DefaultLogEvery}
	for _, opt := range opts {
		opt(&o)
	}

	recorder, _ := c.store.(store.FeedRecorder)
	run := &store.FeedRun{Source: o.source, StartedAt: time.Now().UTC()}
	if recorder != nil {
		run.ID = recorder.NewRunID()
	} else {
		run.ID = ulid.Make().String()
	}

	log := c.log.With(zap.String("feed", run.ID), zap.String("source", o.source))
	log.Info("feed started")

	err := c.scan(ctx, r, run, o, log)

	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
		log.Error("feed failed", zap.Int("lines", run.Lines), zap.Error(err))
	} else {
		log.Info("feed finished",
			zap.Int("lines", run.Lines),
			zap.Int("skipped", run.Skipped),
			zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)))
	}

	if recorder != nil {
		if rerr := recorder.RecordFeed(context.WithoutCancel(ctx), *run); rerr != nil {
			log.Warn("could not record feed run", zap.Error(rerr))
		}
	}
	return run, err
}

func (c *Chain) scan(ctx context.Context, r io.Reader, run *store.FeedRun, o feedOptions, log *zap.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			run.Skipped++
			continue
		}
		if err := c.AppendLine(ctx, line); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		run.Lines++

		if o.progress != nil {
			o.progress(*run)
		}
		if o.logEvery > 0 && run.Lines%o.logEvery == 0 {
			log.Info("feed progress", zap.Int("lines", run.Lines), zap.Int("skipped", run.Skipped))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	return nil
}

// FeedFile feeds the corpus stored at path.
func (c *Chain) FeedFile(ctx context.Context, path string, opts ...FeedOption) (*store.FeedRun, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	opts = append([]FeedOption{WithSource(path)}, opts...)
	return c.Feed(ctx, f, opts...)
}
