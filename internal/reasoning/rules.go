package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/mutation"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// RulesClient is an offline stand-in for the reasoning service. It derives
// an analysis from the structured event instead of the prompt and answers
// with JSON text, so its output goes through the same parsing and
// validation as a real model's.
//
// A lane is affected when its mode is one of the event's logistics modes
// and its origin node lies in one of the event's regions. Each affected
// lane gets the midpoints of the event's impact ranges, and HIGH severity
// marks it DISRUPTED. The single recommendation expedites affected lanes,
// taking back half of the added lead time.
type RulesClient struct{}

// NewRulesClient creates a RulesClient.
func NewRulesClient() *RulesClient {
	return &RulesClient{}
}

// Available always returns true.
func (c *RulesClient) Available() bool { return true }

// Complete returns the rule-based analysis of req.Event against req.Snapshot.
func (c *RulesClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := json.Marshal(RuleAnalysis(req.Event, req.Snapshot))
	if err != nil {
		return "", fmt.Errorf("encoding rule analysis: %w", err)
	}
	return string(data), nil
}

// RuleAnalysis computes the rule-based analysis directly.
func RuleAnalysis(ev events.WorldEvent, s topology.Snapshot) *Analysis {
	affected := affectedEdges(ev, s)

	leadDelta := int(math.Round(ev.ImpactRanges.LeadTimeDeltaDays.Mid()))
	costMul := 1 + ev.ImpactRanges.CostDeltaPct.Mid()/100
	capMul := 1 + ev.ImpactRanges.CapacityDeltaPct.Mid()/100

	impact := make([]mutation.Instruction, 0, len(affected))
	edgeIDs := make([]string, 0, len(affected))
	nodeSet := make(map[string]bool)
	for _, e := range affected {
		changes := mutation.EdgeChanges{}
		if leadDelta != 0 {
			d := leadDelta
			changes.LeadTimeDaysDelta = &d
		}
		if costMul != 1 {
			changes.CostIndexMultiplier = topology.Float(costMul)
		}
		if capMul != 1 {
			changes.CapacityMultiplier = topology.Float(capMul)
		}
		if ev.Severity == events.SeverityHigh {
			st := topology.StatusDisrupted
			changes.Status = &st
		}
		impact = append(impact, mutation.ForEdge(e.ID, changes, ev.Headline))
		edgeIDs = append(edgeIDs, e.ID)
		nodeSet[e.From] = true
		nodeSet[e.To] = true
	}

	nodeIDs := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		nodeIDs = append(nodeIDs, id)
	}
	slices.Sort(nodeIDs)

	before := kpi.Project(s)
	afterImpact := mutation.Apply(s, impact)
	after := kpi.Project(afterImpact)

	rec := expediteRecommendation(affected, leadDelta, afterImpact, after)

	return &Analysis{
		EventID: ev.ID,
		Summary: fmt.Sprintf("%s. %d lanes using %s out of %s are affected at %s severity.",
			strings.TrimSuffix(ev.Headline, "."), len(affected), joinModes(ev.Logistics.Modes),
			strings.Join(ev.Regions, ", "), ev.Severity),
		AffectedEntities: AffectedEntities{Nodes: nodeIDs, Edges: edgeIDs},
		ImpactMutations:  impact,
		KPIImplications:  implications(before, after),
		Recommendations:  []Recommendation{rec},
	}
}

func affectedEdges(ev events.WorldEvent, s topology.Snapshot) []topology.Edge {
	var out []topology.Edge
	for _, e := range s.Edges {
		if !slices.Contains(ev.Logistics.Modes, e.Mode) {
			continue
		}
		from, ok := s.Node(e.From)
		if !ok || !slices.Contains(ev.Regions, from.Region) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func expediteRecommendation(affected []topology.Edge, leadDelta int, s topology.Snapshot, current kpi.Set) Recommendation {
	var muts []mutation.Instruction
	if back := leadDelta / 2; back > 0 {
		for _, e := range affected {
			d := -back
			muts = append(muts, mutation.ForEdge(e.ID, mutation.EdgeChanges{LeadTimeDaysDelta: &d}, "Expedited handling"))
		}
	}

	expected := kpi.Project(mutation.Apply(s, muts))
	costPct := 0.0
	if current.CostIndex != 0 {
		costPct = math.Round(float64(expected.CostIndex-current.CostIndex)/float64(current.CostIndex)*1000) / 10
	}

	return Recommendation{
		ID:         "REC_0001",
		ActionType: "EXPEDITE",
		Mutations:  muts,
		ExpectedImpact: map[string]any{
			"service_level_delta_pct":  expected.ServiceLevel - current.ServiceLevel,
			"cost_index_delta_pct":     costPct,
			"stockout_customers_delta": expected.StockoutRiskCustomers - current.StockoutRiskCustomers,
		},
		Rationale: fmt.Sprintf("Expedite %d affected lanes to recover %d days of lead time", len(affected), leadDelta/2),
	}
}

func implications(before, after kpi.Set) []KPIImplication {
	return []KPIImplication{
		{Metric: "SERVICE_LEVEL", Direction: direction(before.ServiceLevel, after.ServiceLevel), Why: "Customers served by delayed or disrupted lanes fall at risk"},
		{Metric: "STOCKOUT_RISK", Direction: direction(before.StockoutRiskCustomers, after.StockoutRiskCustomers), Why: "Lane disruption and long lead times threaten coverage"},
		{Metric: "AVG_LEAD_TIME", Direction: direction(before.AvgLeadTime, after.AvgLeadTime), Why: "Lead time deltas on operating lanes"},
		{Metric: "COST_INDEX", Direction: direction(before.CostIndex, after.CostIndex), Why: "Cost multipliers on affected lanes"},
	}
}

func direction(before, after int) string {
	switch {
	case after > before:
		return "UP"
	case after < before:
		return "DOWN"
	default:
		return "FLAT"
	}
}

func joinModes(modes []topology.Mode) string {
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = string(m)
	}
	return strings.Join(parts, "/")
}
