// Package sweep runs one event per seed over a range of seeds, each in its
// own session, and collects the resulting KPIs.
package sweep

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// Options configures Run.
type Options struct {
	// From and To bound the seeds: From inclusive, To exclusive.
	From, To int64

	// Parallel caps concurrent sessions. Zero means GOMAXPROCS.
	Parallel int

	// Client answers each event. Nil means the offline rules client.
	Client reasoning.Client

	// Baseline is the starting topology. A zero value means the built-in
	// baseline.
	Baseline topology.Snapshot

	// Now stamps generated events. Nil means time.Now.
	Now func() time.Time
}

// Result is the outcome of one seed.
type Result struct {
	Seed      int64           `json:"seed"`
	EventID   string          `json:"event_id"`
	EventType events.Type     `json:"event_type"`
	Severity  events.Severity `json:"severity"`
	Impact    kpi.Set         `json:"impact"`
	Mitigated kpi.Set         `json:"mitigated"`
	Deltas    kpi.Delta       `json:"deltas"`
	Applied   bool            `json:"recommendations_applied"`
}

// Run processes every seed in [From, To) and returns results sorted by
// seed. The first failing seed cancels the rest and its error is returned.
func Run(ctx context.Context, opts Options) ([]Result, error) {
	if opts.To < opts.From {
		return nil, fmt.Errorf("invalid seed range [%d, %d)", opts.From, opts.To)
	}
	client := opts.Client
	if client == nil {
		client = reasoning.NewRulesClient()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}

	var sessOpts []session.Option
	sessOpts = append(sessOpts, session.WithClock(now))
	if len(opts.Baseline.Nodes) > 0 {
		sessOpts = append(sessOpts, session.WithBaseline(opts.Baseline))
	}

	analyzer := reasoning.NewAnalyzer(client)
	results := make([]Result, opts.To-opts.From)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for seed := opts.From; seed < opts.To; seed++ {
		g.Go(func() error {
			r, err := runSeed(gCtx, analyzer, seed, now(), sessOpts)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[seed-opts.From] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runSeed(ctx context.Context, analyzer *reasoning.Analyzer, seed int64, at time.Time, opts []session.Option) (Result, error) {
	s := session.New(analyzer, opts...)
	ev := events.GenerateAt(seed, at)

	analysis, err := analyzer.Analyze(ctx, ev, s.Snapshot())
	if err != nil {
		return Result{}, err
	}
	if err := s.ApplyEvent(ev, analysis); err != nil {
		return Result{}, err
	}
	impact := s.KPIs()

	applied, err := s.AcceptRecommendations()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Seed:      seed,
		EventID:   ev.ID,
		EventType: ev.EventType,
		Severity:  ev.Severity,
		Impact:    impact,
		Mitigated: s.KPIs(),
		Deltas:    s.Deltas(),
		Applied:   applied,
	}, nil
}
