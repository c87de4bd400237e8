package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xtding233/gacha-mint/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gacha",
		Short: "Pay-to-pull gacha machine that mints its rewards as NFTs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "machine config file (.yaml, .yml or .toml); defaults when empty")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(serveCmd())
	root.AddCommand(oddsCmd())
	root.AddCommand(configCmd())
	return root
}

func initConfig() {
	viper.SetEnvPrefix("GACHA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Inspect machine configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the machine config and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.LoadMachine(viper.GetString("config"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: network=%s pull_cost=%s treasury=%s tiers=%d\n",
				m.Network, m.PullCost, m.Treasury, len(m.Table.Profiles()))
			return nil
		},
	})
	return cfg
}
