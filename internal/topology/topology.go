// Package topology defines the logistics network model: nodes (suppliers,
// factories, warehouses, customers), directed transport edges, and the
// Snapshot value that captures the network state at one instant.
//
// Snapshots are treated as immutable values. Callers that need to change a
// snapshot work on a Clone; the mutation engine does exactly that.
package topology

import (
	"fmt"
	"sort"
	"strings"
)

// NodeType classifies a node in the network.
type NodeType string

const (
	NodeSupplier  NodeType = "supplier"
	NodeFactory   NodeType = "factory"
	NodeWarehouse NodeType = "warehouse"
	NodeCustomer  NodeType = "customer"
)

// Mode is the transport mode of an edge.
type Mode string

const (
	ModeOcean Mode = "OCEAN"
	ModeRail  Mode = "RAIL"
	ModeTruck Mode = "TRUCK"
	ModeAir   Mode = "AIR"
)

// EdgeStatus is the operational status of a lane. An empty status is
// treated the same as StatusOK.
type EdgeStatus string

const (
	StatusOK        EdgeStatus = "OK"
	StatusDisrupted EdgeStatus = "DISRUPTED"
)

// Node is a facility or customer in the network.
//
// The numeric attributes are pointers so that an attribute which was never
// set can be told apart from one set to zero. Arithmetic treats nil as 0.
type Node struct {
	ID      string   `json:"id" yaml:"id" validate:"required"`
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type    NodeType `json:"type" yaml:"type" validate:"required,oneof=supplier factory warehouse customer"`
	Region  string   `json:"region" yaml:"region"`
	Country string   `json:"country,omitempty" yaml:"country,omitempty"`
	City    string   `json:"city,omitempty" yaml:"city,omitempty"`

	RiskScore   *float64 `json:"risk_score,omitempty" yaml:"risk_score,omitempty"`
	Capacity    *float64 `json:"capacity,omitempty" yaml:"capacity,omitempty" validate:"omitempty,nonneg"`
	Inventory   *float64 `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	DailyDemand *float64 `json:"daily_demand,omitempty" yaml:"daily_demand,omitempty" validate:"omitempty,nonneg"`

	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Edge is a directed transport lane between two nodes.
type Edge struct {
	ID           string     `json:"id" yaml:"id" validate:"required"`
	From         string     `json:"from" yaml:"from" validate:"required"`
	To           string     `json:"to" yaml:"to" validate:"required"`
	Mode         Mode       `json:"mode" yaml:"mode" validate:"required,oneof=OCEAN RAIL TRUCK AIR"`
	LeadTimeDays int        `json:"lead_time_days" yaml:"lead_time_days" validate:"nonneg"`
	CostIndex    float64    `json:"cost_index" yaml:"cost_index" validate:"nonneg"`
	Status       EdgeStatus `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=OK DISRUPTED"`

	// CapacityPct is a throughput multiplier; nil means 1.0.
	CapacityPct      *float64 `json:"capacity_pct,omitempty" yaml:"capacity_pct,omitempty"`
	DisruptionReason string   `json:"disruption_reason,omitempty" yaml:"disruption_reason,omitempty"`
}

// Active reports whether the edge counts as operating (status OK or unset).
func (e Edge) Active() bool {
	return e.Status == "" || e.Status == StatusOK
}

// Snapshot is the full node and edge state of the network at one instant.
type Snapshot struct {
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" yaml:"edges" validate:"dive"`
}

// Float returns a pointer to v. Handy for building nodes and edges in code.
func Float(v float64) *float64 {
	return &v
}

// Value dereferences p, returning 0 for nil.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a copy of the node that shares no memory with n.
func (n Node) Clone() Node {
	c := n
	c.RiskScore = cloneFloat(n.RiskScore)
	c.Capacity = cloneFloat(n.Capacity)
	c.Inventory = cloneFloat(n.Inventory)
	c.DailyDemand = cloneFloat(n.DailyDemand)
	return c
}

// Clone returns a copy of the edge that shares no memory with e.
func (e Edge) Clone() Edge {
	c := e
	c.CapacityPct = cloneFloat(e.CapacityPct)
	return c
}

// Clone returns a deep copy of the snapshot. Mutating the copy never
// affects s. Nil slices stay nil.
func (s Snapshot) Clone() Snapshot {
	var out Snapshot
	if s.Nodes != nil {
		out.Nodes = make([]Node, len(s.Nodes))
	}
	if s.Edges != nil {
		out.Edges = make([]Edge, len(s.Edges))
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range s.Edges {
		out.Edges[i] = e.Clone()
	}
	return out
}

// Node looks up a node by id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge looks up an edge by id.
func (s Snapshot) Edge(id string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// NodesOfType returns the nodes of the given type in snapshot order.
func (s Snapshot) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range s.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// FirstInbound returns the first edge (in snapshot order) that ends at the
// given node.
func (s Snapshot) FirstInbound(nodeID string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.To == nodeID {
			return e, true
		}
	}
	return Edge{}, false
}

// Disrupted returns the edges whose status is DISRUPTED.
func (s Snapshot) Disrupted() []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Status == StatusDisrupted {
			out = append(out, e)
		}
	}
	return out
}

// Describe renders the snapshot as plain text for the reasoning service.
// Nodes are grouped by type; edges are listed with mode, lead time, cost and
// status.
func Describe(s Snapshot) string {
	var b strings.Builder

	groups := []struct {
		t     NodeType
		title string
	}{
		{NodeSupplier, "Suppliers"},
		{NodeFactory, "Factories"},
		{NodeWarehouse, "Warehouses"},
		{NodeCustomer, "Customers"},
	}

	for _, g := range groups {
		nodes := s.NodesOfType(g.t)
		if len(nodes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", g.title)
		for _, n := range nodes {
			fmt.Fprintf(&b, "- %s %s (%s, %s) [%s]%s\n", n.ID, n.Name, n.City, n.Country, n.Region, nodeAttr(n))
		}
	}

	if len(s.Edges) > 0 {
		b.WriteString("Lanes:\n")
		for _, e := range s.Edges {
			status := e.Status
			if status == "" {
				status = StatusOK
			}
			fmt.Fprintf(&b, "- %s %s->%s %s lead=%dd cost=%g status=%s\n",
				e.ID, e.From, e.To, e.Mode, e.LeadTimeDays, e.CostIndex, status)
		}
	}

	return b.String()
}

func nodeAttr(n Node) string {
	switch n.Type {
	case NodeSupplier:
		return fmt.Sprintf(" risk=%g", Value(n.RiskScore))
	case NodeFactory:
		return fmt.Sprintf(" capacity=%g", Value(n.Capacity))
	case NodeWarehouse:
		return fmt.Sprintf(" inventory=%g", Value(n.Inventory))
	case NodeCustomer:
		return fmt.Sprintf(" daily_demand=%g", Value(n.DailyDemand))
	}
	return ""
}

// Regions returns the distinct regions present in the snapshot, sorted.
func Regions(s Snapshot) []string {
	seen := make(map[string]bool)
	for _, n := range s.Nodes {
		if n.Region != "" {
			seen[n.Region] = true
		}
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
