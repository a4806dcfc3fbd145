package session

import (
	"fmt"
	"time"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// Record is the persisted form of a Session. KPIs are informational;
// Restore recomputes them from the snapshots.
type Record struct {
	ID        string              `json:"id"`
	State     State               `json:"state"`
	NextSeed  int64               `json:"next_seed"`
	Baseline  topology.Snapshot   `json:"baseline"`
	Snapshot  topology.Snapshot   `json:"snapshot"`
	KPIs      kpi.Set             `json:"kpis"`
	Event     *events.WorldEvent  `json:"event,omitempty"`
	Analysis  *reasoning.Analysis `json:"analysis,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Record captures the session's current state. The snapshots are copies.
func (s *Session) Record() Record {
	rec := Record{
		ID:        s.id,
		State:     s.state,
		NextSeed:  s.nextSeed,
		Baseline:  s.baseline.Clone(),
		Snapshot:  s.snapshot.Clone(),
		KPIs:      s.kpis,
		Analysis:  s.analysis,
		UpdatedAt: s.updatedAt,
	}
	if s.event != nil {
		ev := *s.event
		rec.Event = &ev
	}
	return rec
}

// Restore rebuilds a session from rec. Options are applied as in New; an
// id or baseline in rec takes precedence over WithID and WithBaseline.
func Restore(rec Record, analyzer *reasoning.Analyzer, opts ...Option) (*Session, error) {
	if !rec.State.Valid() {
		return nil, fmt.Errorf("restoring session %s: unknown state %q", rec.ID, rec.State)
	}
	if rec.State != StateIdle && rec.Event == nil {
		return nil, fmt.Errorf("restoring session %s: state %s without an event", rec.ID, rec.State)
	}

	if rec.ID != "" {
		opts = append(opts, WithID(rec.ID))
	}
	if len(rec.Baseline.Nodes) > 0 {
		if err := topology.Validate(rec.Baseline); err != nil {
			return nil, fmt.Errorf("restoring session %s: %w", rec.ID, err)
		}
		opts = append(opts, WithBaseline(rec.Baseline))
	}
	s := New(analyzer, opts...)

	s.state = rec.State
	if rec.State != StateIdle {
		s.snapshot = rec.Snapshot.Clone()
		s.kpis = kpi.Project(s.snapshot)
		ev := *rec.Event
		s.event = &ev
		s.analysis = rec.Analysis
	}
	if rec.NextSeed != 0 {
		s.nextSeed = rec.NextSeed
	}
	if !rec.UpdatedAt.IsZero() {
		s.updatedAt = rec.UpdatedAt
	}
	return s, nil
}
