package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/chatterchain/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if textOutput() {
		printStats(stats)
		return
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func printStats(st *store.Stats) {
	fmt.Printf("database:     %s (%s)\n", st.DBPath, humanize.Bytes(uint64(st.DBSizeBytes)))
	fmt.Printf("words:        %s\n", humanize.Comma(int64(st.Words)))
	fmt.Printf("transitions:  %s\n", humanize.Comma(int64(st.Transitions)))
	fmt.Printf("occurrences:  %s\n", humanize.Comma(st.TotalOccurrences))
	for _, r := range st.Roles {
		fmt.Printf("  %-8s %s\n", r.Role, humanize.Comma(int64(r.Count)))
	}
	if len(st.RecentFeeds) == 0 {
		return
	}
	fmt.Println("recent feeds:")
	for _, f := range st.RecentFeeds {
		status := "ok"
		if f.Error != "" {
			status = "failed: " + f.Error
		}
		fmt.Printf("  %s  %-24s %8s lines  %s  %s\n",
			f.ID, f.Source, humanize.Comma(int64(f.Lines)), humanize.Time(f.StartedAt), status)
	}
}
