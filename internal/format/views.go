package format

import (
	"fmt"
	"strings"

	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// KPIs renders baseline, current and delta for each metric.
func KPIs(m Mode, baseline, current kpi.Set) string {
	d := kpi.Diff(baseline, current)
	t := NewTable(m)
	t.Header("Metric", "Baseline", "Current", "Delta")
	t.Columns(
		Column{Number: 2, Align: AlignRight},
		Column{Number: 3, Align: AlignRight},
		Column{Number: 4, Align: AlignRight},
	)
	t.Row("Service level (%)", baseline.ServiceLevel, current.ServiceLevel, Signed(d.ServiceLevel))
	t.Row("Stockout-risk customers", baseline.StockoutRiskCustomers, current.StockoutRiskCustomers, Signed(d.StockoutRiskCustomers))
	t.Row("Avg lead time (days)", baseline.AvgLeadTime, current.AvgLeadTime, Signed(d.AvgLeadTime))
	t.Row("Cost index", baseline.CostIndex, current.CostIndex, Signed(d.CostIndex))
	return t.String()
}

// Edges renders every edge of s. Only disrupted edges show a reason.
func Edges(m Mode, s topology.Snapshot) string {
	t := NewTable(m)
	t.Header("ID", "From", "To", "Mode", "Lead", "Cost", "Status", "Reason")
	t.Columns(
		Column{Number: 5, Align: AlignRight},
		Column{Number: 6, Align: AlignRight},
		Column{Number: 8, MaxWidth: 40},
	)
	for _, e := range s.Edges {
		status := string(e.Status)
		if status == "" {
			status = "-"
		}
		t.Row(e.ID, e.From, e.To, e.Mode, e.LeadTimeDays, trimFloat(e.CostIndex), status, e.DisruptionReason)
	}
	return t.String()
}

// Nodes renders every node of s with its type-specific attribute.
func Nodes(m Mode, s topology.Snapshot) string {
	t := NewTable(m)
	t.Header("ID", "Name", "Type", "Region", "City", "Attribute")
	for _, n := range s.Nodes {
		t.Row(n.ID, n.Name, n.Type, n.Region, n.City, attribute(n))
	}
	return t.String()
}

// Signed formats v with an explicit sign, e.g. +3, -2, 0.
func Signed(v int) string {
	if v > 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}

func attribute(n topology.Node) string {
	var parts []string
	if n.RiskScore != nil {
		parts = append(parts, "risk="+trimFloat(*n.RiskScore))
	}
	if n.Capacity != nil {
		parts = append(parts, "capacity="+trimFloat(*n.Capacity))
	}
	if n.Inventory != nil {
		parts = append(parts, "inventory="+trimFloat(*n.Inventory))
	}
	if n.DailyDemand != nil {
		parts = append(parts, "demand="+trimFloat(*n.DailyDemand)+"/day")
	}
	if n.Status != "" {
		parts = append(parts, "status="+n.Status)
	}
	return strings.Join(parts, " ")
}

func trimFloat(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
