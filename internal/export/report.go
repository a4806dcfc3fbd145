// Package export writes session reports to a blob sink: a local directory
// or an S3-compatible bucket.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// Report is a point-in-time summary of one session.
type Report struct {
	SessionID       string                  `json:"session_id"`
	GeneratedAt     time.Time               `json:"generated_at"`
	State           session.State           `json:"state"`
	Event           *events.WorldEvent      `json:"event,omitempty"`
	Summary         string                  `json:"summary,omitempty"`
	Recommendations []RecommendationSummary `json:"recommendations,omitempty"`
	BaselineKPIs    kpi.Set                 `json:"baseline_kpis"`
	CurrentKPIs     kpi.Set                 `json:"current_kpis"`
	Deltas          kpi.Delta               `json:"deltas"`
	AtRiskCustomers []string                `json:"at_risk_customers"`
	DisruptedEdges  []DisruptedEdge         `json:"disrupted_edges"`
}

// RecommendationSummary names one recommendation without its mutations.
type RecommendationSummary struct {
	ID         string `json:"id"`
	ActionType string `json:"action_type"`
	Rationale  string `json:"rationale,omitempty"`
}

// DisruptedEdge is an edge whose status is DISRUPTED.
type DisruptedEdge struct {
	ID     string        `json:"id"`
	From   string        `json:"from"`
	To     string        `json:"to"`
	Mode   topology.Mode `json:"mode"`
	Reason string        `json:"reason,omitempty"`
}

// BuildReport summarizes s as of now.
func BuildReport(s *session.Session, now time.Time) Report {
	snap := s.Snapshot()
	r := Report{
		SessionID:       s.ID(),
		GeneratedAt:     now.UTC(),
		State:           s.State(),
		Event:           s.LatestEvent(),
		BaselineKPIs:    s.BaselineKPIs(),
		CurrentKPIs:     s.KPIs(),
		Deltas:          s.Deltas(),
		AtRiskCustomers: kpi.AtRiskCustomers(snap),
		DisruptedEdges:  []DisruptedEdge{},
	}
	if r.AtRiskCustomers == nil {
		r.AtRiskCustomers = []string{}
	}
	if a := s.LatestAnalysis(); a != nil {
		r.Summary = a.Summary
		for _, rec := range a.Recommendations {
			r.Recommendations = append(r.Recommendations, RecommendationSummary{
				ID:         rec.ID,
				ActionType: rec.ActionType,
				Rationale:  rec.Rationale,
			})
		}
	}
	for _, e := range snap.Disrupted() {
		r.DisruptedEdges = append(r.DisruptedEdges, DisruptedEdge{
			ID:     e.ID,
			From:   e.From,
			To:     e.To,
			Mode:   e.Mode,
			Reason: e.DisruptionReason,
		})
	}
	return r
}

// Key is the object key a report is stored under:
// <session id>/<UTC timestamp>.json.
func (r Report) Key() string {
	return fmt.Sprintf("%s/%s.json", r.SessionID, r.GeneratedAt.UTC().Format("20060102T150405Z"))
}

// Sink stores report blobs.
type Sink interface {
	// Put writes data under key and returns where it ended up (a file
	// path or an s3:// URL).
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Write encodes r as indented JSON and puts it in sink.
func Write(ctx context.Context, sink Sink, r Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	loc, err := sink.Put(ctx, r.Key(), data)
	if err != nil {
		return "", fmt.Errorf("writing report %s: %w", r.Key(), err)
	}
	return loc, nil
}
