package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/format"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/store"
)

// sessionView is the JSON output of the session commands.
type sessionView struct {
	SessionID       string              `json:"session_id"`
	State           session.State       `json:"state"`
	NextSeed        int64               `json:"next_seed"`
	BaselineKPIs    kpi.Set             `json:"baseline_kpis"`
	KPIs            kpi.Set             `json:"kpis"`
	Deltas          kpi.Delta           `json:"deltas"`
	AtRiskCustomers []string            `json:"at_risk_customers"`
	Event           *events.WorldEvent  `json:"event,omitempty"`
	Analysis        *reasoning.Analysis `json:"analysis,omitempty"`
	Applied         *bool               `json:"applied,omitempty"`
}

func viewOf(s *session.Session) sessionView {
	atRisk := kpi.AtRiskCustomers(s.Snapshot())
	if atRisk == nil {
		atRisk = []string{}
	}
	return sessionView{
		SessionID:       s.ID(),
		State:           s.State(),
		NextSeed:        s.NextSeed(),
		BaselineKPIs:    s.BaselineKPIs(),
		KPIs:            s.KPIs(),
		Deltas:          s.Deltas(),
		AtRiskCustomers: atRisk,
		Event:           s.LatestEvent(),
		Analysis:        s.LatestAnalysis(),
	}
}

func printSession(cmd *cobra.Command, s *session.Session) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s: %s (next seed %d)\n", s.ID(), s.State(), s.NextSeed())
	if ev := s.LatestEvent(); ev != nil {
		fmt.Fprintf(out, "Latest event: %s %s (%s) %s\n", ev.ID, ev.EventType, ev.Severity, ev.Headline)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, format.KPIs(format.ASCII, s.BaselineKPIs(), s.KPIs()))
	if atRisk := kpi.AtRiskCustomers(s.Snapshot()); len(atRisk) > 0 {
		fmt.Fprintf(out, "At risk: %s\n", strings.Join(atRisk, ", "))
	}
}

func printRecommendations(cmd *cobra.Command, a *reasoning.Analysis) {
	if a == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nAnalysis: %s\n", a.Summary)
	for _, r := range a.Recommendations {
		fmt.Fprintf(out, "  %s %s (%d mutations): %s\n", r.ID, r.ActionType, len(r.Mutations), r.Rationale)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the next event on the session",
		Long: `Generate the session's next event (or --seed), ask the reasoning
service for its impact, apply it and save the session. Events stack: a
second run applies on top of the first. On failure the session is left
unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.withSession(cmd.Context(), true, func(st store.SessionStore, s *session.Session) error {
				seed := s.NextSeed()
				if cmd.Flags().Changed("seed") {
					seed, _ = cmd.Flags().GetInt64("seed")
				}
				if _, err := s.ProcessEvent(cmd.Context(), seed); err != nil {
					return err
				}
				if err := st.Save(cmd.Context(), s.Record()); err != nil {
					return fmt.Errorf("saving session: %w", err)
				}

				if a.jsonOut {
					return printJSON(cmd, viewOf(s))
				}
				printSession(cmd, s)
				printRecommendations(cmd, s.LatestAnalysis())
				return nil
			})
		},
	}

	cmd.Flags().Int64("seed", 0, "Use this seed instead of the session's next seed")
	return cmd
}

func newAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept",
		Short: "Accept the latest recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.withSession(cmd.Context(), false, func(st store.SessionStore, s *session.Session) error {
				applied, err := s.AcceptRecommendations()
				if err != nil {
					return err
				}
				if applied {
					if err := st.Save(cmd.Context(), s.Record()); err != nil {
						return fmt.Errorf("saving session: %w", err)
					}
				}

				if a.jsonOut {
					v := viewOf(s)
					v.Applied = &applied
					return printJSON(cmd, v)
				}
				if !applied {
					fmt.Fprintln(cmd.OutOrStdout(), "Recommendations carry no mutations; nothing changed.")
				}
				printSession(cmd, s)
				return nil
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the session to the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.withSession(cmd.Context(), false, func(st store.SessionStore, s *session.Session) error {
				s.Reset()
				if err := st.Save(cmd.Context(), s.Record()); err != nil {
					return fmt.Errorf("saving session: %w", err)
				}
				if a.jsonOut {
					return printJSON(cmd, viewOf(s))
				}
				printSession(cmd, s)
				return nil
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session state and KPIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.withSession(cmd.Context(), false, func(st store.SessionStore, s *session.Session) error {
				if a.jsonOut {
					return printJSON(cmd, viewOf(s))
				}
				printSession(cmd, s)
				if edges, _ := cmd.Flags().GetBool("edges"); edges {
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprintln(cmd.OutOrStdout(), format.Edges(format.ASCII, s.Snapshot()))
				}
				printRecommendations(cmd, s.LatestAnalysis())
				return nil
			})
		},
	}

	cmd.Flags().Bool("edges", false, "Also list every edge of the current snapshot")
	return cmd
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}
	cmd.AddCommand(
		newSessionsListCmd(),
		newSessionsDeleteCmd(),
		newSessionsSaveCmd(),
		newSessionsRestoreCmd(),
	)
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				if list == nil {
					list = []store.Summary{}
				}
				return printJSON(cmd, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored sessions.")
				return nil
			}

			t := format.NewTable(format.ASCII)
			t.Header("ID", "State", "Next seed", "Service", "At risk", "Updated")
			t.Columns(
				format.Column{Number: 3, Align: format.AlignRight},
				format.Column{Number: 4, Align: format.AlignRight},
				format.Column{Number: 5, Align: format.AlignRight},
			)
			for _, s := range list {
				t.Row(s.ID, s.State, s.NextSeed, s.KPIs.ServiceLevel, s.KPIs.StockoutRiskCustomers, s.UpdatedAt.Format(time.RFC3339))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd, map[string]string{"status": "deleted", "id": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

func newSessionsSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <file>",
		Short: "Write the session to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.withSession(cmd.Context(), false, func(st store.SessionStore, s *session.Session) error {
				if err := session.WriteFile(args[0], s.Record()); err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd, map[string]string{"status": "saved", "id": s.ID(), "path": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved session %s to %s\n", s.ID(), args[0])
				return nil
			})
		},
	}
}

func newSessionsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Load a session file into the store",
		Long: `Load a session file written by "sessions save" into the store,
replacing any stored session with the same id. The record is validated
before it is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := session.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, err := session.Restore(rec, nil, a.sessionOptions()...)
			if err != nil {
				return err
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Save(cmd.Context(), s.Record()); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			if a.jsonOut {
				return printJSON(cmd, viewOf(s))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored session %s\n", s.ID())
			return nil
		},
	}
}
