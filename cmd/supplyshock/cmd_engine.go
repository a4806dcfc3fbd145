package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/format"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/mutation"
	"github.com/nvandessel/supplyshock/internal/topology"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Generate the world event for a seed",
		Long: `Generate the deterministic world event for a seed without touching
any session. The same seed always yields the same event apart from its
timestamp.

Example:
  supplyshock event --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetInt64("seed")
			jsonOut, _ := cmd.Flags().GetBool("json")

			ev := events.Generate(seed)
			if jsonOut {
				return printJSON(cmd, ev)
			}
			printEvent(cmd, ev)
			return nil
		},
	}

	cmd.Flags().Int64("seed", 1, "Event seed")
	return cmd
}

func printEvent(cmd *cobra.Command, ev events.WorldEvent) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s  severity=%s  horizon=%s\n", ev.ID, ev.EventType, ev.Severity, ev.TimeHorizon)
	fmt.Fprintf(out, "  %s\n", ev.Headline)
	fmt.Fprintf(out, "  Regions: %s\n", strings.Join(ev.Regions, ", "))
	modes := make([]string, len(ev.Logistics.Modes))
	for i, m := range ev.Logistics.Modes {
		modes[i] = string(m)
	}
	fmt.Fprintf(out, "  Modes:   %s\n", strings.Join(modes, ", "))
	if len(ev.Logistics.Lanes) > 0 {
		fmt.Fprintf(out, "  Lanes:   %s\n", strings.Join(ev.Logistics.Lanes, "; "))
	}
	for _, f := range ev.Facts {
		fmt.Fprintf(out, "  - %s\n", f)
	}
}

// kpiResult is the JSON output of kpi and apply.
type kpiResult struct {
	KPIs            kpi.Set   `json:"kpis"`
	Deltas          kpi.Delta `json:"deltas"`
	AtRiskCustomers []string  `json:"at_risk_customers"`
	Outcomes        []string  `json:"outcomes,omitempty"`
}

func newKPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Project KPIs for a topology snapshot",
		Long: `Project service level, stockout-risk customers, average lead time and
cost index for a snapshot. Without --snapshot the configured baseline is
used. Deltas are relative to the baseline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			base, err := a.baseline()
			if err != nil {
				return err
			}
			snap := base
			if path, _ := cmd.Flags().GetString("snapshot"); path != "" {
				if snap, err = topology.LoadSnapshotFile(path); err != nil {
					return err
				}
			}

			return printKPIs(cmd, a, kpi.Project(base), snap, nil)
		},
	}

	cmd.Flags().String("snapshot", "", "Topology snapshot file (YAML or JSON)")
	return cmd
}

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply mutation instructions to a snapshot",
		Long: `Apply a JSON array of mutation instructions to the baseline (or
--snapshot) and project the KPIs of the result. Instructions naming an
unknown entity are skipped and reported.

Example:
  supplyshock apply --mutations strike.json --out after.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			mutPath, _ := cmd.Flags().GetString("mutations")
			data, err := os.ReadFile(mutPath)
			if err != nil {
				return fmt.Errorf("reading mutations: %w", err)
			}
			var ins []mutation.Instruction
			if err := json.Unmarshal(data, &ins); err != nil {
				return fmt.Errorf("parsing mutations: %w", err)
			}

			base, err := a.baseline()
			if err != nil {
				return err
			}
			snap := base
			if path, _ := cmd.Flags().GetString("snapshot"); path != "" {
				if snap, err = topology.LoadSnapshotFile(path); err != nil {
					return err
				}
			}

			next, report := mutation.ApplyWithReport(snap, ins)

			if out, _ := cmd.Flags().GetString("out"); out != "" {
				encoded, err := json.MarshalIndent(next, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding snapshot: %w", err)
				}
				if err := os.WriteFile(out, encoded, 0644); err != nil {
					return fmt.Errorf("writing snapshot: %w", err)
				}
			}

			outcomes := make([]string, len(report.Outcomes))
			for i, o := range report.Outcomes {
				outcomes[i] = string(o)
			}
			return printKPIs(cmd, a, kpi.Project(base), next, outcomes)
		},
	}

	cmd.Flags().String("mutations", "", "JSON file holding an array of mutation instructions")
	cmd.Flags().String("snapshot", "", "Snapshot to mutate instead of the baseline")
	cmd.Flags().String("out", "", "Write the resulting snapshot to this file as JSON")
	_ = cmd.MarkFlagRequired("mutations")
	return cmd
}

func printKPIs(cmd *cobra.Command, a *app, baseline kpi.Set, snap topology.Snapshot, outcomes []string) error {
	current := kpi.Project(snap)
	atRisk := kpi.AtRiskCustomers(snap)
	if atRisk == nil {
		atRisk = []string{}
	}

	if a.jsonOut {
		return printJSON(cmd, kpiResult{
			KPIs:            current,
			Deltas:          kpi.Diff(baseline, current),
			AtRiskCustomers: atRisk,
			Outcomes:        outcomes,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, format.KPIs(format.ASCII, baseline, current))
	fmt.Fprintln(out)
	if len(atRisk) > 0 {
		fmt.Fprintf(out, "At risk: %s\n", strings.Join(atRisk, ", "))
	}
	if len(outcomes) > 0 {
		counts := map[string]int{}
		for _, o := range outcomes {
			counts[o]++
		}
		fmt.Fprintf(out, "Instructions: %d applied, %d unknown entity, %d unknown type, %d without changes\n",
			counts[string(mutation.OutcomeApplied)], counts[string(mutation.OutcomeUnknownEntity)],
			counts[string(mutation.OutcomeUnknownType)], counts[string(mutation.OutcomeNoChanges)])
	}
	return nil
}

func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Show the baseline network",
		Long: `Show the configured baseline network, or a snapshot file given with
--file, as node and edge tables. --file also validates the snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.baseline()
			if err != nil {
				return err
			}
			if path, _ := cmd.Flags().GetString("file"); path != "" {
				if snap, err = topology.LoadSnapshotFile(path); err != nil {
					return err
				}
			}

			if a.jsonOut {
				return printJSON(cmd, snap)
			}

			mode := format.ASCII
			if md, _ := cmd.Flags().GetBool("markdown"); md {
				mode = format.Markdown
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, format.Nodes(mode, snap))
			fmt.Fprintln(out)
			fmt.Fprintln(out, format.Edges(mode, snap))
			return nil
		},
	}

	cmd.Flags().String("file", "", "Snapshot file to show instead of the baseline")
	cmd.Flags().Bool("markdown", false, "Render Markdown tables")
	return cmd
}
