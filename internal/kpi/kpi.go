// Package kpi derives aggregate service metrics from a topology snapshot.
//
// Project is a pure function: it reads the snapshot, never modifies it and
// holds no state between calls.
package kpi

import (
	"math"

	"github.com/nvandessel/supplyshock/internal/topology"
)

// CoverageDays is how many days of customer demand a supplying warehouse
// must hold for the customer to be considered safe.
const CoverageDays = 14

// MaxHealthyLeadTime is the longest inbound lead time, in days, that does
// not put a customer at risk.
const MaxHealthyLeadTime = 10

// DefaultServiceLevel is reported when the snapshot has no customers.
const DefaultServiceLevel = 95

// Set is the four KPIs derived from a snapshot.
type Set struct {
	ServiceLevel          int `json:"service_level" yaml:"service_level"`
	StockoutRiskCustomers int `json:"stockout_risk_customers" yaml:"stockout_risk_customers"`
	AvgLeadTime           int `json:"avg_lead_time" yaml:"avg_lead_time"`
	CostIndex             int `json:"cost_index" yaml:"cost_index"`
}

// Delta is the per-metric difference between two KPI sets (b - a).
type Delta struct {
	ServiceLevel          int `json:"service_level"`
	StockoutRiskCustomers int `json:"stockout_risk_customers"`
	AvgLeadTime           int `json:"avg_lead_time"`
	CostIndex             int `json:"cost_index"`
}

// Project computes the KPI set for s.
func Project(s topology.Snapshot) Set {
	var leadSum, active int
	var cost float64
	for _, e := range s.Edges {
		cost += e.CostIndex
		if e.Active() {
			leadSum += e.LeadTimeDays
			active++
		}
	}

	avgLead := 0
	if active > 0 {
		avgLead = round(float64(leadSum) / float64(active))
	}

	customers, atRisk := 0, 0
	for _, n := range s.Nodes {
		if n.Type != topology.NodeCustomer {
			continue
		}
		customers++
		if AtRisk(s, n) {
			atRisk++
		}
	}

	service := DefaultServiceLevel
	if customers > 0 {
		service = clamp(round(float64(customers-atRisk)/float64(customers)*100), 0, 100)
	}

	return Set{
		ServiceLevel:          service,
		StockoutRiskCustomers: atRisk,
		AvgLeadTime:           avgLead,
		CostIndex:             round(cost),
	}
}

// AtRisk reports whether customer c is at risk of a stockout in s.
//
// Only the first inbound edge in snapshot order is considered. The shipped
// network has exactly one per customer; with several, the others are
// ignored.
func AtRisk(s topology.Snapshot, c topology.Node) bool {
	edge, ok := s.FirstInbound(c.ID)
	if !ok {
		return true
	}
	if edge.Status == topology.StatusDisrupted || edge.LeadTimeDays > MaxHealthyLeadTime {
		return true
	}
	supplier, ok := s.Node(edge.From)
	if !ok {
		return true
	}
	return topology.Value(supplier.Inventory) < topology.Value(c.DailyDemand)*CoverageDays
}

// AtRiskCustomers returns the ids of the at-risk customers in snapshot order.
func AtRiskCustomers(s topology.Snapshot) []string {
	var out []string
	for _, n := range s.Nodes {
		if n.Type == topology.NodeCustomer && AtRisk(s, n) {
			out = append(out, n.ID)
		}
	}
	return out
}

// Diff returns b - a for each metric.
func Diff(a, b Set) Delta {
	return Delta{
		ServiceLevel:          b.ServiceLevel - a.ServiceLevel,
		StockoutRiskCustomers: b.StockoutRiskCustomers - a.StockoutRiskCustomers,
		AvgLeadTime:           b.AvgLeadTime - a.AvgLeadTime,
		CostIndex:             b.CostIndex - a.CostIndex,
	}
}

// round is round-half-up: 2.5 -> 3, -2.5 -> -2.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
