package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/chatterchain/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Print the configuration after defaults, file, environment and flags are applied. Use --init to write a default config file.",
		Run:   runConfig,
	}
	cmd.Flags().Bool("init", false, "Write a default config file if none exists")

	RootCmd.AddCommand(cmd)
}

func runConfig(cmd *cobra.Command, args []string) {
	initFile, _ := cmd.Flags().GetBool("init")

	if initFile {
		path := getConfigPath()
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("config already exists: %s\n", path)
			return
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			exitErr("init config", err)
		}
		fmt.Printf("wrote %s\n", path)
		return
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		exitErr("marshal config", err)
	}
	fmt.Print(string(b))
}
