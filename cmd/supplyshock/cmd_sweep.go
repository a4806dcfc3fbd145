package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/supplyshock/internal/format"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one event per seed and compare outcomes",
		Long: `Run every seed in [--from, --to) in its own fresh session: generate the
event, analyze and apply it, then accept the recommendations. Prints the
KPIs after impact and after mitigation for each seed. Stored sessions are
not touched.

Example:
  supplyshock sweep --from 1 --to 25 --parallel 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			from, _ := cmd.Flags().GetInt64("from")
			to, _ := cmd.Flags().GetInt64("to")
			parallel, _ := cmd.Flags().GetInt("parallel")

			client, err := reasoning.NewClient(a.cfg.Reasoning.ClientConfig())
			if err != nil {
				return fmt.Errorf("creating reasoning client: %w", err)
			}
			base, err := a.baseline()
			if err != nil {
				return err
			}

			results, err := sweep.Run(cmd.Context(), sweep.Options{
				From:     from,
				To:       to,
				Parallel: parallel,
				Client:   client,
				Baseline: base,
			})
			if err != nil {
				return err
			}

			if a.jsonOut {
				if results == nil {
					results = []sweep.Result{}
				}
				return printJSON(cmd, results)
			}

			mode := format.ASCII
			if md, _ := cmd.Flags().GetBool("markdown"); md {
				mode = format.Markdown
			}
			t := format.NewTable(mode)
			t.Header("Seed", "Event", "Type", "Severity", "Service", "At risk", "Lead", "Cost", "Mitigated service", "Applied")
			t.Columns(
				format.Column{Number: 1, Align: format.AlignRight},
				format.Column{Number: 5, Align: format.AlignRight},
				format.Column{Number: 6, Align: format.AlignRight},
				format.Column{Number: 7, Align: format.AlignRight},
				format.Column{Number: 8, Align: format.AlignRight},
				format.Column{Number: 9, Align: format.AlignRight},
			)
			for _, r := range results {
				t.Row(r.Seed, r.EventID, r.EventType, r.Severity,
					r.Impact.ServiceLevel, r.Impact.StockoutRiskCustomers, r.Impact.AvgLeadTime, r.Impact.CostIndex,
					r.Mitigated.ServiceLevel, r.Applied)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}

	cmd.Flags().Int64("from", 1, "First seed (inclusive)")
	cmd.Flags().Int64("to", 11, "Last seed (exclusive)")
	cmd.Flags().Int("parallel", 0, "Concurrent sessions (default GOMAXPROCS)")
	cmd.Flags().Bool("markdown", false, "Render a Markdown table")
	return cmd
}
