package events

import "github.com/nvandessel/supplyshock/internal/topology"

// template is the fixed description of one event type. Generate copies it
// verbatim into every event of that type.
type template struct {
	headline string
	regions  []string
	modes    []topology.Mode
	lanes    []string
	ranges   ImpactRanges
	facts    []string
}

var templates = map[Type]template{
	PortStrike: {
		headline: "Major port strike disrupts shipping operations",
		regions:  []string{"APAC", "NA-WEST"},
		modes:    []topology.Mode{topology.ModeOcean},
		lanes:    []string{"APAC->NA-WEST", "APAC->NA-EAST"},
		ranges: ImpactRanges{
			LeadTimeDeltaDays: Range{5, 10},
			CapacityDeltaPct:  Range{-30, -15},
			CostDeltaPct:      Range{20, 40},
		},
		facts: []string{
			"Port workers demanding better wages and conditions",
			"Estimated 300+ ships waiting at anchor",
			"Alternative ports operating at capacity",
		},
	},
	ExtremeWeather: {
		headline: "Severe typhoon forces port closures across Asia-Pacific",
		regions:  []string{"APAC"},
		modes:    []topology.Mode{topology.ModeOcean, topology.ModeAir},
		lanes:    []string{"APAC->NA-WEST", "APAC->EU"},
		ranges: ImpactRanges{
			LeadTimeDeltaDays: Range{7, 14},
			CapacityDeltaPct:  Range{-40, -20},
			CostDeltaPct:      Range{30, 60},
		},
		facts: []string{
			"Category 4 typhoon approaching major shipping lanes",
			"Airport closures expected for 3-5 days",
			"Infrastructure damage assessment ongoing",
		},
	},
	BorderDelay: {
		headline: "New customs regulations cause massive border delays",
		regions:  []string{"EU", "NA-WEST"},
		modes:    []topology.Mode{topology.ModeTruck, topology.ModeRail},
		lanes:    []string{"EU->NA-WEST"},
		ranges: ImpactRanges{
			LeadTimeDeltaDays: Range{3, 7},
			CapacityDeltaPct:  Range{-20, -10},
			CostDeltaPct:      Range{10, 25},
		},
		facts: []string{
			"New digital customs documentation required",
			"Processing times increased by 200%",
			"Truck queues stretching 15+ miles",
		},
	},
	EnergyPriceSpike: {
		headline: "Oil prices surge amid geopolitical tensions",
		regions:  []string{"APAC", "EU", "NA-WEST"},
		modes:    []topology.Mode{topology.ModeOcean, topology.ModeTruck, topology.ModeAir},
		lanes:    []string{"APAC->NA-WEST", "EU->NA-EAST"},
		ranges: ImpactRanges{
			LeadTimeDeltaDays: Range{0, 2},
			CapacityDeltaPct:  Range{-10, 0},
			CostDeltaPct:      Range{40, 80},
		},
		facts: []string{
			"Brent crude up 35% in two weeks",
			"Carriers imposing emergency fuel surcharges",
			"Some routes becoming economically unviable",
		},
	},
	Sanctions: {
		headline: "New trade sanctions restrict key shipping routes",
		regions:  []string{"APAC", "EU"},
		modes:    []topology.Mode{topology.ModeOcean},
		lanes:    []string{"APAC->EU", "EU->APAC"},
		ranges: ImpactRanges{
			LeadTimeDeltaDays: Range{10, 20},
			CapacityDeltaPct:  Range{-50, -30},
			CostDeltaPct:      Range{50, 100},
		},
		facts: []string{
			"Major carriers suspending certain routes",
			"Rerouting through alternative corridors required",
			"Compliance verification adding delays",
		},
	},
	CanalBlockage: {
		headline: "Container ship runs aground, blocking major canal",
		regions:  []string{"APAC", "EU"},
		modes:    []topology.Mode{topology.ModeOcean},
		lanes:    []string{"APAC->EU", "EU->APAC"},
		ranges: ImpactRanges{
			LeadTimeDeltaDays: Range{14, 28},
			CapacityDeltaPct:  Range{-60, -40},
			CostDeltaPct:      Range{80, 150},
		},
		facts: []string{
			"Ultra-large container vessel stuck sideways",
			"Salvage operations expected to take weeks",
			"Hundreds of ships rerouting around Africa",
		},
	},
}
