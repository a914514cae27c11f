package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatterchain/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import transitions from JSON",
		Long:  "Import transitions from JSON (file or stdin). Expects the format produced by export; counts add to existing ones.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		exitErr("read input", err)
	}

	var transitions []store.ExportedTransition
	if err := json.Unmarshal(data, &transitions); err != nil {
		exitErr("parse json", err)
	}

	// openChain establishes the sentinels before anything is imported.
	_, s, err := openChain(cmd.Context())
	if err != nil {
		exitErr("open chain", err)
	}
	defer s.Close()

	imported, err := store.Import(cmd.Context(), s, transitions)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
