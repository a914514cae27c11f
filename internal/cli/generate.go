package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/chatterchain/internal/markov"
)

func init() {
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Generate sentences",
		Long:  "Walk the chain from the start sentinel and print the generated sentences.",
		Run:   runGenerate,
	}
	gen.Flags().IntP("count", "n", 1, "Number of sentences")

	reply := &cobra.Command{
		Use:   "reply [seed]",
		Short: "Reply to a message",
		Long:  "Generate a reply to the seed text (positional arg or stdin) according to markov.reply_mode.",
		Run:   runReply,
	}
	reply.Flags().Bool("fallback", true, "Generate freely when no seed word is known")

	RootCmd.AddCommand(gen, reply)
}

func runGenerate(cmd *cobra.Command, args []string) {
	n, _ := cmd.Flags().GetInt("count")
	if n < 1 {
		exitErr("generate", fmt.Errorf("count must be >= 1, got %d", n))
	}

	c, s, err := openChain(cmd.Context())
	if err != nil {
		exitErr("open chain", err)
	}
	defer s.Close()

	sentences := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sentence, err := c.Generate(cmd.Context())
		if err != nil {
			exitErr("generate", err)
		}
		sentences = append(sentences, sentence)
	}

	if textOutput() {
		for _, sentence := range sentences {
			fmt.Println(sentence)
		}
		return
	}
	b, _ := json.Marshal(map[string]any{"sentences": sentences})
	fmt.Println(string(b))
}

// answer replies to seed. Surrounding whitespace, such as the newline of
// piped input, is not part of the seed, so ReplyUnique can recognise an
// echo. With fallback set, a seed with no known word gets a free sentence.
func answer(ctx context.Context, c *markov.Chain, log *zap.Logger, seed string, fallback bool) (string, error) {
	seed = strings.TrimSpace(seed)
	reply, err := c.GenerateReply(ctx, seed)
	if errors.Is(err, markov.ErrNoAnchorMatch) && fallback {
		log.Debug("no anchor in message, generating freely", zap.String("seed", seed))
		return c.Generate(ctx)
	}
	return reply, err
}

func runReply(cmd *cobra.Command, args []string) {
	fallback, _ := cmd.Flags().GetBool("fallback")

	seed, err := readText(args)
	if err != nil {
		exitErr("read stdin", err)
	}

	c, s, err := openChain(cmd.Context())
	if err != nil {
		exitErr("open chain", err)
	}
	defer s.Close()

	seed = strings.TrimSpace(seed)
	reply, err := answer(cmd.Context(), c, logger, seed, fallback)
	if err != nil {
		exitErr("reply", err)
	}

	if textOutput() {
		fmt.Println(reply)
		return
	}
	b, _ := json.Marshal(map[string]string{"seed": seed, "reply": reply})
	fmt.Println(string(b))
}
