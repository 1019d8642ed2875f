package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/runner"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Show which external tools are installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prober := probes.New(runner.New(), cfg)
		return newPrinter().Tools(prober.Tools())
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules [family]",
	Short: "Show the classification thresholds",
	Long: `Show the thresholds used to classify gateway, latency and speed test
results. Within a group the first matching rule wins.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(classify.FamilyGateway), string(classify.FamilyLatency), string(classify.FamilySpeedtest)},
	RunE: func(cmd *cobra.Command, args []string) error {
		families := classify.Families()
		if len(args) == 1 {
			families = []classify.Family{classify.Family(args[0])}
		}

		p := newPrinter()
		for _, f := range families {
			table, ok := classify.TableFor(f)
			if !ok {
				return fmt.Errorf("unknown rule family %q", f)
			}
			if err := p.Rules(f, table); err != nil {
				return err
			}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(configCmd)
}
