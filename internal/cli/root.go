// Package cli implements the chatterchain CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/chatterchain/internal/config"
	"github.com/rcliao/chatterchain/internal/logging"
	"github.com/rcliao/chatterchain/internal/markov"
	"github.com/rcliao/chatterchain/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	verbose    bool

	cfg    *config.Config
	logger = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "chatterchain",
	Short: "Markov chain chatter bot",
	Long:  "Learns word transitions from text and generates sentences and replies from them. SQLite-backed, single binary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(getConfigPath())
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $CHATTERCHAIN_DB or ~/.chatterchain/chain.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.chatterchain/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func getDBPath() string {
	return cfg.DatabasePath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// openChain opens the store and binds a chain configured from cfg to it.
// The caller closes the returned store.
func openChain(ctx context.Context) (*markov.Chain, *store.SQLiteStore, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	opts = append(opts, markov.WithLogger(logger))

	c, err := markov.New(ctx, s, opts...)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return c, s, nil
}

func textOutput() bool {
	return formatFlag == "text"
}

func exitErr(msg string, err error) {
	logger.Debug("command failed", zap.String("op", msg), zap.Error(err))
	_ = logger.Sync()
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
