package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xtding233/gacha-mint/internal/config"
	"github.com/xtding233/gacha-mint/internal/gacha"
)

func oddsCmd() *cobra.Command {
	var trials int
	var seed uint64
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Simulate pulls and compare observed odds with the configured weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.LoadMachine(viper.GetString("config"))
			if err != nil {
				return err
			}
			if trials <= 0 {
				return fmt.Errorf("--trials must be > 0")
			}
			rng := gacha.DefaultRNG()
			if seed != 0 {
				rng = gacha.NewSeededRNG(seed)
			}
			odds, err := gacha.Simulate(m.Table, trials, rng)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(odds)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.AppendHeader(table.Row{"Tier", "Rating", "Roll", "Expected", "Observed", "Hits", "Score mean", "p50", "p90", "p99"})
			for _, o := range odds.Tiers {
				p := m.Table.Profile(o.Tier)
				lo, hi := m.Table.Bounds(o.Tier)
				tw.AppendRow(table.Row{
					o.Tier, p.Rating,
					fmt.Sprintf("[%g, %g]", lo, hi),
					fmt.Sprintf("%.2f%%", o.Expected*100),
					fmt.Sprintf("%.2f%%", o.Observed*100),
					o.Hits,
					fmt.Sprintf("%.1f", o.Score.Mean),
					o.Score.P50, o.Score.P90, o.Score.P99,
				})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "trials", odds.Trials, "fallbacks", odds.Fallbacks})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&trials, "trials", 100_000, "number of simulated pulls")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reproducible runs (0 uses crypto randomness)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
