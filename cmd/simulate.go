package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jetstack/securechat/pkg/simulation"
)

var simulateConfigPath string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated encrypted conversation",
	Long: `Generate a key pair for every party, then have the parties send each
other encrypted messages and decrypt what they receive.

Without --config the built-in conversation between nayana and chris is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := simulation.DefaultConfig()
		if simulateConfigPath != "" {
			data, err := os.ReadFile(simulateConfigPath)
			if err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			if cfg, err = simulation.ParseConfig(data); err != nil {
				return err
			}
		}

		if cmd.Flags().Changed("key-dir") {
			cfg.KeyDir = keyDir
		}
		if cmd.Flags().Changed("key-size") {
			cfg.KeySize = keySize
		}

		_, err := simulation.Run(cmd.Context(), cfg, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.PersistentFlags().StringVarP(
		&simulateConfigPath,
		"config",
		"c",
		"",
		"YAML file describing the parties and messages.",
	)
}
