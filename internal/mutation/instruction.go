// Package mutation applies typed parameter changes to a topology snapshot.
//
// Instructions come from an external, not fully trusted producer (the
// reasoning service). Apply is therefore forgiving: instructions naming an
// unknown entity are skipped, and unrecognised fields inside "changes" are
// dropped at decode time. Apply never modifies its input snapshot.
package mutation

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/nvandessel/supplyshock/internal/topology"
)

// EntityType selects what an instruction targets.
type EntityType string

const (
	EntityNode EntityType = "NODE"
	EntityEdge EntityType = "EDGE"
)

// NodeChanges is the sparse set of node fields an instruction may change.
// A nil field means "not present".
type NodeChanges struct {
	RiskScoreDelta     *float64 `json:"risk_score_delta,omitempty"`
	CapacityMultiplier *float64 `json:"capacity_multiplier,omitempty"`
	InventoryDelta     *float64 `json:"inventory_delta,omitempty"`
	Status             *string  `json:"status,omitempty"`
}

// EdgeChanges is the sparse set of edge fields an instruction may change.
// A nil field means "not present". Lead times are whole days: a fractional
// lead_time_days_delta is rounded half away from zero when decoded.
type EdgeChanges struct {
	LeadTimeDaysDelta   *int                 `json:"lead_time_days_delta,omitempty"`
	CostIndexMultiplier *float64             `json:"cost_index_multiplier,omitempty"`
	CapacityMultiplier  *float64             `json:"capacity_multiplier,omitempty"`
	Status              *topology.EdgeStatus `json:"status,omitempty"`
}

// UnmarshalJSON accepts any JSON number for lead_time_days_delta.
func (c *EdgeChanges) UnmarshalJSON(data []byte) error {
	type plain EdgeChanges
	var w struct {
		plain
		LeadTimeDaysDelta *float64 `json:"lead_time_days_delta"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*c = EdgeChanges(w.plain)
	if w.LeadTimeDaysDelta != nil {
		d := int(math.Round(*w.LeadTimeDaysDelta))
		c.LeadTimeDaysDelta = &d
	}
	return nil
}

// Instruction targets one node or edge by id. Exactly one of Node and Edge
// is set, matching EntityType; instructions decoded with an unrecognised
// entity type carry neither and are skipped by Apply. An empty or unknown
// EntityID is not a decode error: Apply reports it as an unknown entity.
type Instruction struct {
	EntityType EntityType   `json:"entity_type" validate:"required,oneof=NODE EDGE"`
	EntityID   string       `json:"entity_id"`
	Node       *NodeChanges `json:"-"`
	Edge       *EdgeChanges `json:"-"`
	Reason     string       `json:"reason,omitempty"`
}

// ForNode builds a node instruction.
func ForNode(id string, c NodeChanges, reason string) Instruction {
	return Instruction{EntityType: EntityNode, EntityID: id, Node: &c, Reason: reason}
}

// ForEdge builds an edge instruction.
func ForEdge(id string, c EdgeChanges, reason string) Instruction {
	return Instruction{EntityType: EntityEdge, EntityID: id, Edge: &c, Reason: reason}
}

type wireInstruction struct {
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// UnmarshalJSON decodes the wire form, interpreting "changes" according to
// entity_type.
func (in *Instruction) UnmarshalJSON(data []byte) error {
	var w wireInstruction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*in = Instruction{EntityType: w.EntityType, EntityID: w.EntityID, Reason: w.Reason}
	if len(w.Changes) == 0 || string(w.Changes) == "null" {
		return nil
	}

	switch w.EntityType {
	case EntityNode:
		var c NodeChanges
		if err := json.Unmarshal(w.Changes, &c); err != nil {
			return fmt.Errorf("decoding node changes for %s: %w", w.EntityID, err)
		}
		in.Node = &c
	case EntityEdge:
		var c EdgeChanges
		if err := json.Unmarshal(w.Changes, &c); err != nil {
			return fmt.Errorf("decoding edge changes for %s: %w", w.EntityID, err)
		}
		in.Edge = &c
	}
	return nil
}

// MarshalJSON encodes the wire form with a single "changes" object.
func (in Instruction) MarshalJSON() ([]byte, error) {
	w := wireInstruction{EntityType: in.EntityType, EntityID: in.EntityID, Reason: in.Reason}

	var changes any
	switch {
	case in.Node != nil:
		changes = in.Node
	case in.Edge != nil:
		changes = in.Edge
	}
	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return nil, err
		}
		w.Changes = raw
	}
	return json.Marshal(w)
}
