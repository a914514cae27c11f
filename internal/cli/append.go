package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "append [text]",
		Short: "Learn one utterance",
		Long:  "Learn from text. Text can be a positional arg or piped via stdin; each non-blank line is one utterance.",
		Run:   runAppend,
	}

	RootCmd.AddCommand(cmd)
}

// readText returns the positional args joined by spaces, or stdin when
// nothing was given and stdin is not a terminal.
func readText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", nil
}

func runAppend(cmd *cobra.Command, args []string) {
	text, err := readText(args)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(text) == "" {
		exitErr("append", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	c, s, err := openChain(cmd.Context())
	if err != nil {
		exitErr("open chain", err)
	}
	defer s.Close()

	if err := c.Append(cmd.Context(), text); err != nil {
		exitErr("append", err)
	}

	if textOutput() {
		fmt.Println("ok")
		return
	}
	fmt.Println(`{"ok":true}`)
}
