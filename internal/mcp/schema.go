// Package mcp serves the simulation engine and one shared session as MCP
// tools over stdio.
package mcp

import (
	"time"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// GenerateEventInput defines the input for the generate_event tool.
type GenerateEventInput struct {
	Seed int64 `json:"seed" jsonschema:"integer seed; equal seeds give equal events"`
}

// GenerateEventOutput defines the output for the generate_event tool.
type GenerateEventOutput struct {
	Event events.WorldEvent `json:"event"`
}

// ApplyMutationsInput defines the input for the apply_mutations tool.
// Mutations are kept loosely typed here; their "changes" object depends on
// entity_type and is decoded by the mutation package.
type ApplyMutationsInput struct {
	Mutations []map[string]any   `json:"mutations" jsonschema:"mutation instructions: entity_type, entity_id, changes, reason"`
	Snapshot  *topology.Snapshot `json:"snapshot,omitempty" jsonschema:"snapshot to mutate (default: the built-in baseline)"`
}

// ApplyMutationsOutput defines the output for the apply_mutations tool.
type ApplyMutationsOutput struct {
	Snapshot topology.Snapshot `json:"snapshot"`
	KPIs     kpi.Set           `json:"kpis"`
	Outcomes []string          `json:"outcomes" jsonschema:"one outcome per instruction: applied, unknown_entity, unknown_type or no_changes"`
	Applied  int               `json:"applied"`
}

// ProjectKPIsInput defines the input for the project_kpis tool.
type ProjectKPIsInput struct {
	Snapshot *topology.Snapshot `json:"snapshot,omitempty" jsonschema:"snapshot to project (default: the built-in baseline)"`
}

// ProjectKPIsOutput defines the output for the project_kpis tool.
type ProjectKPIsOutput struct {
	KPIs            kpi.Set  `json:"kpis"`
	AtRiskCustomers []string `json:"at_risk_customers"`
}

// SessionStateInput defines the input for the session_state tool.
type SessionStateInput struct {
	IncludeSnapshot bool `json:"include_snapshot,omitempty" jsonschema:"include the full current topology (default: false)"`
}

// NextEventInput defines the input for the session_next_event tool.
type NextEventInput struct {
	Seed *int64 `json:"seed,omitempty" jsonschema:"seed to use instead of the session's next seed"`
}

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

// SessionState is the output of every session_* tool.
type SessionState struct {
	SessionID       string             `json:"session_id"`
	State           session.State      `json:"state"`
	NextSeed        int64              `json:"next_seed"`
	BaselineKPIs    kpi.Set            `json:"baseline_kpis"`
	KPIs            kpi.Set            `json:"kpis"`
	Deltas          kpi.Delta          `json:"deltas"`
	AtRiskCustomers []string           `json:"at_risk_customers"`
	Event           *events.WorldEvent `json:"event,omitempty"`
	Analysis        *AnalysisSummary   `json:"analysis,omitempty"`
	Snapshot        *topology.Snapshot `json:"snapshot,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// AnalysisSummary is the part of an analysis a caller reads to decide
// whether to accept its recommendations.
type AnalysisSummary struct {
	Summary         string                  `json:"summary"`
	ImpactMutations int                     `json:"impact_mutations"`
	Recommendations []RecommendationSummary `json:"recommendations"`
}

// RecommendationSummary describes one recommendation without its mutations.
type RecommendationSummary struct {
	ID         string `json:"id"`
	ActionType string `json:"action_type"`
	Mutations  int    `json:"mutations"`
	Rationale  string `json:"rationale"`
}

// AcceptOutput defines the output for the session_accept_recommendations tool.
type AcceptOutput struct {
	Applied bool         `json:"applied" jsonschema:"false when the recommendations carried no mutations"`
	Session SessionState `json:"session"`
}
