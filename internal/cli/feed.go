package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/chatterchain/internal/markov"
	"github.com/rcliao/chatterchain/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "feed [file...]",
		Short: "Learn a corpus",
		Long:  "Learn a newline-delimited corpus, one utterance per line. Reads stdin when no file (or -) is given.",
		Run:   runFeed,
	}

	cmd.Flags().Int("log-every", markov.DefaultLogEvery, "Log progress every N lines (0 disables)")
	cmd.Flags().Bool("progress", false, "Show a line counter on stderr")

	RootCmd.AddCommand(cmd)
}

func runFeed(cmd *cobra.Command, args []string) {
	logEvery, _ := cmd.Flags().GetInt("log-every")
	progress, _ := cmd.Flags().GetBool("progress")

	c, s, err := openChain(cmd.Context())
	if err != nil {
		exitErr("open chain", err)
	}
	defer s.Close()

	opts := []markov.FeedOption{markov.WithLogEvery(logEvery)}
	if progress {
		opts = append(opts, markov.WithProgress(func(r store.FeedRun) {
			if r.Lines%100 == 0 {
				fmt.Fprintf(os.Stderr, "\rfed %s lines", humanize.Comma(int64(r.Lines)))
			}
		}))
	}

	if len(args) == 0 {
		args = []string{"-"}
	}

	var runs []*store.FeedRun
	for _, path := range args {
		var run *store.FeedRun
		if path == "-" {
			run, err = c.Feed(cmd.Context(), os.Stdin, append(opts, markov.WithSource("stdin"))...)
		} else {
			run, err = c.FeedFile(cmd.Context(), path, opts...)
		}
		if progress {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			exitErr("feed "+path, err)
		}
		runs = append(runs, run)
	}

	if textOutput() {
		for _, r := range runs {
			fmt.Printf("%s: %s lines learned, %s blank skipped in %s\n",
				r.Source, humanize.Comma(int64(r.Lines)), humanize.Comma(int64(r.Skipped)),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		}
		return
	}
	b, _ := json.MarshalIndent(runs, "", "  ")
	fmt.Println(string(b))
}
