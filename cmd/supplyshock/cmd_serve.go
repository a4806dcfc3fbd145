package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/supplyshock/internal/config"
	"github.com/nvandessel/supplyshock/internal/export"
	"github.com/nvandessel/supplyshock/internal/mcp"
	"github.com/nvandessel/supplyshock/internal/server"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP",
		Long: `Serve the --session over a JSON HTTP API until interrupted.

Routes:
  GET  /api/state                   current state and KPIs
  POST /api/events                  process the next event ({"seed": n} optional)
  GET  /api/events/{seed}           generate an event without applying it
  POST /api/recommendations/accept  accept the latest recommendations
  POST /api/reset                   reset to the baseline
  POST /api/reports                 export a report
  GET  /metrics                     Prometheus metrics

Every transition is saved to the configured store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			sink, err := export.Open(cmd.Context(), a.cfg.Export, a.cfg.ExportDir())
			if err != nil {
				return fmt.Errorf("opening report sink: %w", err)
			}

			return a.withSession(cmd.Context(), true, func(st store.SessionStore, s *session.Session) error {
				srv := server.New(s,
					server.WithStore(st),
					server.WithMetrics(a.metrics),
					server.WithSink(sink),
					server.WithLogger(a.logger),
				)

				ctx, cancel := signalContext(cmd.Context())
				defer cancel()
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:3001)")
	return cmd
}

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the simulation tools over MCP on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing event
generation, mutation, KPI projection and the --session lifecycle as tools.
Logs go to stderr. Tool calls are audited to mcp-audit.jsonl in the
supplyshock home directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.withSession(cmd.Context(), true, func(st store.SessionStore, s *session.Session) error {
				if err := os.MkdirAll(config.HomeDir(), 0700); err != nil {
					return fmt.Errorf("creating home directory: %w", err)
				}
				srv, err := mcp.NewServer(&mcp.Config{
					Name:     "supplyshock",
					Version:  version,
					Session:  s,
					Store:    st,
					AuditDir: config.HomeDir(),
					Logger:   a.logger,
				})
				if err != nil {
					return err
				}
				return srv.Run(cmd.Context())
			})
		},
	}
}

// signalContext is cancelled on interrupt, or when parent is.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
