package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/chatterchain/internal/config"
	"github.com/rcliao/chatterchain/internal/markov"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat",
		Long: `Start an interactive shell. Every message is learned; with probability
1/markov.chance the bot answers it. Commands: /generate, /reply <text>, /help, /quit.`,
		Run: runChat,
	}
	cmd.Flags().Bool("always", false, "Answer every message")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	always, _ := cmd.Flags().GetBool("always")

	c, s, err := openChain(cmd.Context())
	if err != nil {
		exitErr("open chain", err)
	}
	defer s.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32mchatter>\033[0m ",
		HistoryFile:     filepath.Join(config.DefaultDir(), "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		exitErr("start shell", err)
	}
	defer rl.Close()

	fmt.Println("Type a message to chat. Commands: /generate, /reply <text>, /help, /quit")
	fmt.Println()

	sh := &shell{chain: c, in: rl, out: os.Stdout, always: always, log: logger}
	if err := sh.run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		exitErr("chat", err)
	}
}

// lineReader is the part of readline.Instance the shell needs.
type lineReader interface {
	Readline() (string, error)
}

type shell struct {
	chain  *markov.Chain
	in     lineReader
	out    io.Writer
	always bool
	log    *zap.Logger
}

var errQuit = errors.New("quit")

func (s *shell) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.in.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if err := s.handleCommand(ctx, line); err != nil {
				if err == errQuit {
					return nil
				}
				fmt.Fprintf(s.out, "Error: %v\n", err)
			}
			continue
		}

		if err := s.handleMessage(ctx, line); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func (s *shell) handleCommand(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")

	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit

	case "/help", "/h":
		fmt.Fprintln(s.out, "/generate        say something")
		fmt.Fprintln(s.out, "/reply <text>    answer text without learning it")
		fmt.Fprintln(s.out, "/quit            leave")

	case "/generate", "/markov":
		sentence, err := s.chain.Generate(ctx)
		if err != nil {
			return err
		}
		s.say(sentence)

	case "/reply":
		return s.reply(ctx, rest)

	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return nil
}

// handleMessage learns line and, when the chance gate opens, answers it.
func (s *shell) handleMessage(ctx context.Context, line string) error {
	if err := s.chain.AppendLine(ctx, line); err != nil {
		return err
	}
	if !s.always && !s.chain.Chance() {
		return nil
	}
	return s.reply(ctx, line)
}

func (s *shell) reply(ctx context.Context, seed string) error {
	sentence, err := answer(ctx, s.chain, s.log, seed, true)
	if err != nil {
		return err
	}
	s.say(sentence)
	return nil
}

func (s *shell) say(sentence string) {
	if sentence == "" {
		return
	}
	fmt.Fprintln(s.out, sentence)
}
