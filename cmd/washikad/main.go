package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"washika-dao/config"
)

const programName = "washikad"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Washika DAO governance ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file (default "+config.DefaultConfigFile+")")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(inspectCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
