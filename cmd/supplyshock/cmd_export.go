package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/supplyshock/internal/export"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/store"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export a report of the session",
		Long: `Write a JSON report of the --session (latest event, recommendations,
KPIs against the baseline, disrupted edges) to the configured sink: a
directory (export.driver fs) or an S3-compatible bucket (export.driver s3).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sink, err := export.Open(cmd.Context(), a.cfg.Export, a.cfg.ExportDir())
			if err != nil {
				return fmt.Errorf("opening report sink: %w", err)
			}

			return a.withSession(cmd.Context(), false, func(st store.SessionStore, s *session.Session) error {
				report := export.BuildReport(s, time.Now())
				loc, err := export.Write(cmd.Context(), sink, report)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd, map[string]any{"location": loc, "report": report})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote report for session %s to %s\n", s.ID(), loc)
				return nil
			})
		},
	}
}
