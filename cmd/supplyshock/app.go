package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvandessel/supplyshock/internal/config"
	"github.com/nvandessel/supplyshock/internal/logging"
	"github.com/nvandessel/supplyshock/internal/metrics"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/store"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// app carries what every command resolves from flags and config.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	metrics   *metrics.Registry

	jsonOut   bool
	sessionID string
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	sessionID, _ := cmd.Flags().GetString("session")

	return &app{
		cfg:       cfg,
		logger:    logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		decisions: logging.NewDecisionLogger(cfg.DecisionDir(), cfg.Logging.Level),
		metrics:   metrics.NewRegistry(),
		jsonOut:   jsonOut,
		sessionID: sessionID,
	}, nil
}

func (a *app) Close() {
	a.decisions.Close()
}

// baseline is the configured topology file, or the built-in network.
func (a *app) baseline() (topology.Snapshot, error) {
	if a.cfg.TopologyFile == "" {
		return topology.Baseline(), nil
	}
	return topology.LoadFile(a.cfg.TopologyFile)
}

func (a *app) analyzer() (*reasoning.Analyzer, error) {
	client, err := reasoning.NewClient(a.cfg.Reasoning.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("creating reasoning client: %w", err)
	}
	a.logger.Debug("reasoning client ready", "config", a.cfg.Reasoning.String())
	return reasoning.NewAnalyzer(client,
		reasoning.WithLogger(a.logger),
		reasoning.WithDecisionLogger(a.decisions),
		reasoning.WithObserver(a.metrics),
	), nil
}

func (a *app) openStore(ctx context.Context) (store.SessionStore, error) {
	st, err := store.Open(ctx, a.cfg.Store.Driver, a.cfg.StorePath(), a.cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return st, nil
}

func (a *app) sessionOptions() []session.Option {
	return []session.Option{
		session.WithLogger(a.logger),
		session.WithDecisionLogger(a.decisions),
		session.WithRecorder(a.metrics),
	}
}

// loadSession restores the --session id from st, or starts it fresh from
// the configured baseline when it has never been saved.
func (a *app) loadSession(ctx context.Context, st store.SessionStore, analyzer *reasoning.Analyzer) (*session.Session, error) {
	rec, err := st.Load(ctx, a.sessionID)
	if errors.Is(err, store.ErrNotFound) {
		base, err := a.baseline()
		if err != nil {
			return nil, err
		}
		opts := append(a.sessionOptions(), session.WithID(a.sessionID), session.WithBaseline(base))
		return session.New(analyzer, opts...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", a.sessionID, err)
	}
	return session.Restore(rec, analyzer, a.sessionOptions()...)
}

// withSession opens the store and the session, runs fn, and closes the
// store. The analyzer is only built when needAnalyzer is set.
func (a *app) withSession(ctx context.Context, needAnalyzer bool, fn func(st store.SessionStore, s *session.Session) error) error {
	var analyzer *reasoning.Analyzer
	if needAnalyzer {
		var err error
		if analyzer, err = a.analyzer(); err != nil {
			return err
		}
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := a.loadSession(ctx, st, analyzer)
	if err != nil {
		return err
	}
	return fn(st, s)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
