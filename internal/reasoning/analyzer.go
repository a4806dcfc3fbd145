package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/logging"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// MaxAttempts is the number of calls Analyze makes before giving up: the
// first attempt plus one retry with the stricter prompt.
const MaxAttempts = 2

// Attempt outcomes reported to an AttemptObserver.
const (
	OutcomeOK          = "ok"
	OutcomeSchemaError = "schema_error"
	OutcomeClientError = "client_error"
)

// AttemptObserver is told the outcome of every call to the client.
type AttemptObserver interface {
	ObserveAnalysisAttempt(outcome string)
}

// Analyzer turns an event and a snapshot into a validated Analysis.
type Analyzer struct {
	client    Client
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	observer  AttemptObserver
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = logging.OrDiscard(l) }
}

// WithDecisionLogger records retries and terminal failures.
func WithDecisionLogger(dl *logging.DecisionLogger) AnalyzerOption {
	return func(a *Analyzer) { a.decisions = dl }
}

// WithObserver reports each attempt's outcome, typically to metrics.
func WithObserver(o AttemptObserver) AnalyzerOption {
	return func(a *Analyzer) { a.observer = o }
}

// NewAnalyzer wraps client.
func NewAnalyzer(client Client, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{client: client, logger: logging.Discard()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Client returns the underlying client.
func (a *Analyzer) Client() Client {
	return a.client
}

// Analyze asks the client about ev in the context of s. A failed first
// attempt is retried once with StrictPrefix; if that fails too the error
// wraps both ErrAnalysisFailed and the last cause. An unavailable client
// or a cancelled context is not retried.
func (a *Analyzer) Analyze(ctx context.Context, ev events.WorldEvent, s topology.Snapshot) (*Analysis, error) {
	if !a.client.Available() {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, ErrUnavailable)
	}

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := Request{
			Prompt:   AnalysisPrompt(ev, s, attempt),
			Attempt:  attempt,
			Event:    ev,
			Snapshot: s,
		}
		a.logger.Log(ctx, logging.LevelTrace, "reasoning prompt", "event_id", ev.ID, "attempt", attempt, "prompt", req.Prompt)

		resp, err := a.client.Complete(ctx, req)
		if err != nil {
			a.observe(OutcomeClientError)
			if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
			}
			lastErr = err
			a.retrying(ev, attempt, err)
			continue
		}
		a.logger.Log(ctx, logging.LevelTrace, "reasoning response", "event_id", ev.ID, "attempt", attempt, "response", resp)

		analysis, err := ParseAnalysis(resp)
		if err != nil {
			a.observe(OutcomeSchemaError)
			lastErr = err
			a.retrying(ev, attempt, err)
			continue
		}

		a.observe(OutcomeOK)
		a.logger.Debug("analysis accepted", "event_id", ev.ID, "attempt", attempt,
			"impact_mutations", len(analysis.ImpactMutations), "recommendations", len(analysis.Recommendations))
		return analysis, nil
	}

	a.logger.Warn("analysis failed", "event_id", ev.ID, "error", lastErr)
	a.decisions.Log(logging.DecisionAnalysisFailed, map[string]any{"event_id": ev.ID, "error": lastErr.Error()})
	return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, lastErr)
}

func (a *Analyzer) retrying(ev events.WorldEvent, attempt int, err error) {
	if attempt+1 >= MaxAttempts {
		return
	}
	a.logger.Info("retrying analysis with strict prompt", "event_id", ev.ID, "error", err)
	a.decisions.Log(logging.DecisionAnalysisRetry, map[string]any{"event_id": ev.ID, "error": err.Error()})
}

func (a *Analyzer) observe(outcome string) {
	if a.observer != nil {
		a.observer.ObserveAnalysisAttempt(outcome)
	}
}
