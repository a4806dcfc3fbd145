package mutation

import (
	"github.com/nvandessel/supplyshock/internal/topology"
)

// Outcome records what happened to a single instruction.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeUnknownEntity Outcome = "unknown_entity"
	OutcomeUnknownType   Outcome = "unknown_type"
	OutcomeNoChanges     Outcome = "no_changes"
)

// Report lists one Outcome per instruction, in input order.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Count returns how many instructions ended with outcome o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, got := range r.Outcomes {
		if got == o {
			n++
		}
	}
	return n
}

// Apply returns a new snapshot with the instructions applied in order.
// The input snapshot is left untouched.
func Apply(s topology.Snapshot, instructions []Instruction) topology.Snapshot {
	out, _ := ApplyWithReport(s, instructions)
	return out
}

// ApplyWithReport is Apply that also reports the outcome of each
// instruction. Skipped instructions are not errors.
func ApplyWithReport(s topology.Snapshot, instructions []Instruction) (topology.Snapshot, Report) {
	out := s.Clone()
	report := Report{Outcomes: make([]Outcome, len(instructions))}

	nodeIdx := make(map[string]int, len(out.Nodes))
	for i := len(out.Nodes) - 1; i >= 0; i-- {
		nodeIdx[out.Nodes[i].ID] = i // first occurrence wins
	}
	edgeIdx := make(map[string]int, len(out.Edges))
	for i := len(out.Edges) - 1; i >= 0; i-- {
		edgeIdx[out.Edges[i].ID] = i
	}

	for i, in := range instructions {
		switch in.EntityType {
		case EntityNode:
			idx, ok := nodeIdx[in.EntityID]
			if !ok {
				report.Outcomes[i] = OutcomeUnknownEntity
				continue
			}
			if in.Node == nil {
				report.Outcomes[i] = OutcomeNoChanges
				continue
			}
			applyNode(&out.Nodes[idx], *in.Node)
			report.Outcomes[i] = OutcomeApplied

		case EntityEdge:
			idx, ok := edgeIdx[in.EntityID]
			if !ok {
				report.Outcomes[i] = OutcomeUnknownEntity
				continue
			}
			if in.Edge == nil {
				report.Outcomes[i] = OutcomeNoChanges
				continue
			}
			applyEdge(&out.Edges[idx], *in.Edge, in.Reason)
			report.Outcomes[i] = OutcomeApplied

		default:
			report.Outcomes[i] = OutcomeUnknownType
		}
	}

	return out, report
}

func applyNode(n *topology.Node, c NodeChanges) {
	if c.RiskScoreDelta != nil {
		n.RiskScore = topology.Float(topology.Value(n.RiskScore) + *c.RiskScoreDelta)
	}
	if c.CapacityMultiplier != nil {
		n.Capacity = topology.Float(topology.Value(n.Capacity) * *c.CapacityMultiplier)
	}
	if c.InventoryDelta != nil {
		n.Inventory = topology.Float(topology.Value(n.Inventory) + *c.InventoryDelta)
	}
	if c.Status != nil && *c.Status != "" {
		n.Status = *c.Status
	}
}

// applyEdge changes e in place. The reason is recorded whenever a changes
// object is present, even an empty one.
func applyEdge(e *topology.Edge, c EdgeChanges, reason string) {
	// Lead time is deliberately not clamped at zero.
	if c.LeadTimeDaysDelta != nil {
		e.LeadTimeDays += *c.LeadTimeDaysDelta
	}
	if c.CostIndexMultiplier != nil {
		e.CostIndex *= *c.CostIndexMultiplier
	}
	if c.CapacityMultiplier != nil {
		base := 1.0
		if e.CapacityPct != nil {
			base = *e.CapacityPct
		}
		e.CapacityPct = topology.Float(base * *c.CapacityMultiplier)
	}
	if c.Status != nil && *c.Status != "" {
		e.Status = *c.Status
	}
	if reason != "" {
		e.DisruptionReason = reason
	}
}
