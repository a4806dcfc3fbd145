// Package session holds the current state of one simulation run and moves
// it between Idle, EventApplied and RecommendationsApplied.
//
// A Session is not safe for concurrent use. Hosts that share one (the HTTP
// and MCP servers) guard it with their own mutex.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/logging"
	"github.com/nvandessel/supplyshock/internal/mutation"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// State is a session's position in its lifecycle.
type State string

const (
	StateIdle                   State = "IDLE"
	StateEventApplied           State = "EVENT_APPLIED"
	StateRecommendationsApplied State = "RECOMMENDATIONS_APPLIED"
)

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateEventApplied, StateRecommendationsApplied:
		return true
	}
	return false
}

// FirstSeed is the seed used for the first event after creation or reset.
const FirstSeed int64 = 1

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrNoAnalysis is returned when recommendations are accepted but the
	// session holds no analysis.
	ErrNoAnalysis = errors.New("no analysis available")
)

// Recorder receives session activity. *metrics.Registry implements it.
type Recorder interface {
	RecordEvent(eventType string)
	RecordMutations(ins []mutation.Instruction, report mutation.Report)
	RecordTransition(to string, current kpi.Set)
}

// Session is one simulation run over a topology.
type Session struct {
	id       string
	analyzer *reasoning.Analyzer

	baseline     topology.Snapshot
	baselineKPIs kpi.Set

	state     State
	snapshot  topology.Snapshot
	kpis      kpi.Set
	nextSeed  int64
	event     *events.WorldEvent
	analysis  *reasoning.Analysis
	updatedAt time.Time

	logger    *slog.Logger
	decisions *logging.DecisionLogger
	recorder  Recorder
	now       func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithBaseline starts the session from a topology other than the built-in
// baseline. Reset returns to this snapshot.
func WithBaseline(b topology.Snapshot) Option {
	return func(s *Session) { s.baseline = b.Clone() }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = logging.OrDiscard(l) }
}

// WithDecisionLogger records every transition as a decision line.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(s *Session) { s.decisions = dl }
}

// WithRecorder reports events, mutations and transitions, typically to
// metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithClock replaces time.Now for event timestamps and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates an Idle session. analyzer may be nil, in which case only
// ApplyEvent can advance the session.
func New(analyzer *reasoning.Analyzer, opts ...Option) *Session {
	s := &Session{
		analyzer: analyzer,
		baseline: topology.Baseline(),
		logger:   logging.Discard(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.baselineKPIs = kpi.Project(s.baseline)
	s.resetState()
	return s
}

func (s *Session) resetState() {
	s.state = StateIdle
	s.snapshot = s.baseline.Clone()
	s.kpis = s.baselineKPIs
	s.nextSeed = FirstSeed
	s.event = nil
	s.analysis = nil
	s.updatedAt = s.now()
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// NextSeed returns the seed ProcessNextEvent will use.
func (s *Session) NextSeed() int64 { return s.nextSeed }

// Snapshot returns a copy of the current topology.
func (s *Session) Snapshot() topology.Snapshot { return s.snapshot.Clone() }

// Baseline returns a copy of the topology the session started from.
func (s *Session) Baseline() topology.Snapshot { return s.baseline.Clone() }

// KPIs returns the KPIs of the current snapshot.
func (s *Session) KPIs() kpi.Set { return s.kpis }

// BaselineKPIs returns the KPIs of the baseline snapshot.
func (s *Session) BaselineKPIs() kpi.Set { return s.baselineKPIs }

// Deltas returns current minus baseline for each KPI.
func (s *Session) Deltas() kpi.Delta { return kpi.Diff(s.baselineKPIs, s.kpis) }

// LatestEvent returns the last applied event, or nil.
func (s *Session) LatestEvent() *events.WorldEvent { return s.event }

// LatestAnalysis returns the analysis of the last applied event, or nil.
func (s *Session) LatestAnalysis() *reasoning.Analysis { return s.analysis }

// UpdatedAt returns when the session last changed.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// ProcessNextEvent generates the event for NextSeed, asks the analyzer
// about it and applies its impact mutations. On any failure the session is
// left exactly as it was and the seed is not consumed.
func (s *Session) ProcessNextEvent(ctx context.Context) (events.WorldEvent, error) {
	return s.ProcessEvent(ctx, s.nextSeed)
}

// ProcessEvent is ProcessNextEvent for an explicit seed.
func (s *Session) ProcessEvent(ctx context.Context, seed int64) (events.WorldEvent, error) {
	if s.analyzer == nil {
		return events.WorldEvent{}, fmt.Errorf("processing event: %w", reasoning.ErrUnavailable)
	}

	ev := events.GenerateAt(seed, s.now())
	if s.recorder != nil {
		s.recorder.RecordEvent(string(ev.EventType))
	}
	s.logger.Debug("event generated", "event_id", ev.ID, "type", ev.EventType, "severity", ev.Severity)

	analysis, err := s.analyzer.Analyze(ctx, ev, s.snapshot)
	if err != nil {
		return events.WorldEvent{}, fmt.Errorf("analyzing %s: %w", ev.ID, err)
	}

	if err := s.ApplyEvent(ev, analysis); err != nil {
		return events.WorldEvent{}, err
	}
	return ev, nil
}

// ApplyEvent applies an externally analyzed event to the current snapshot
// and moves to EventApplied. Events stack: a second event is applied on
// top of the first. The seed counter advances past ev.Seed.
func (s *Session) ApplyEvent(ev events.WorldEvent, analysis *reasoning.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("applying %s: %w", ev.ID, ErrNoAnalysis)
	}

	next, report := mutation.ApplyWithReport(s.snapshot, analysis.ImpactMutations)
	if s.recorder != nil {
		s.recorder.RecordMutations(analysis.ImpactMutations, report)
	}

	evCopy := ev
	s.commit(StateEventApplied, next)
	s.event = &evCopy
	s.analysis = analysis
	if ev.Seed >= s.nextSeed {
		s.nextSeed = ev.Seed + 1
	}

	s.logger.Info("event applied", "event_id", ev.ID, "applied", report.Count(mutation.OutcomeApplied),
		"skipped", len(report.Outcomes)-report.Count(mutation.OutcomeApplied))
	s.decisions.Log(logging.DecisionEventApplied, map[string]any{
		"session_id": s.id,
		"event_id":   ev.ID,
		"seed":       ev.Seed,
		"mutations":  len(analysis.ImpactMutations),
		"outcomes":   report.Outcomes,
		"kpis":       s.kpis,
	})
	s.transitioned()
	return nil
}

// AcceptRecommendations applies every recommendation's mutations from the
// latest analysis and moves to RecommendationsApplied. It is only allowed
// from EventApplied. When the recommendations carry no mutations the
// session is left unchanged and applied is false.
func (s *Session) AcceptRecommendations() (applied bool, err error) {
	if s.state != StateEventApplied {
		return false, fmt.Errorf("accepting recommendations in state %s: %w", s.state, ErrInvalidTransition)
	}
	if s.analysis == nil {
		return false, ErrNoAnalysis
	}

	ins := s.analysis.RecommendationMutations()
	if len(ins) == 0 {
		s.logger.Info("recommendations carry no mutations", "event_id", s.analysis.EventID)
		return false, nil
	}

	next, report := mutation.ApplyWithReport(s.snapshot, ins)
	if s.recorder != nil {
		s.recorder.RecordMutations(ins, report)
	}
	s.commit(StateRecommendationsApplied, next)

	s.logger.Info("recommendations applied", "event_id", s.analysis.EventID, "mutations", len(ins))
	s.decisions.Log(logging.DecisionRecommendationsApplied, map[string]any{
		"session_id":      s.id,
		"event_id":        s.analysis.EventID,
		"recommendations": len(s.analysis.Recommendations),
		"outcomes":        report.Outcomes,
		"kpis":            s.kpis,
	})
	s.transitioned()
	return true, nil
}

// Reset returns to Idle with the baseline snapshot, the baseline KPIs and
// the first seed. It is allowed from any state.
func (s *Session) Reset() {
	s.resetState()
	s.logger.Info("session reset", "session_id", s.id)
	s.decisions.Log(logging.DecisionReset, map[string]any{"session_id": s.id})
	s.transitioned()
}

func (s *Session) commit(to State, next topology.Snapshot) {
	s.state = to
	s.snapshot = next
	s.kpis = kpi.Project(next)
	s.updatedAt = s.now()
}

func (s *Session) transitioned() {
	if s.recorder != nil {
		s.recorder.RecordTransition(string(s.state), s.kpis)
	}
}
