package topology

// Baseline returns a fresh copy of the shipped network: 4 suppliers,
// 4 factories, 4 warehouses and 16 customers connected by 28 lanes
// (supplier->factory x8, factory->warehouse x4, warehouse->customer x16).
//
// Each call builds new values, so callers may modify the result freely.
func Baseline() Snapshot {
	return Snapshot{
		Nodes: baselineNodes(),
		Edges: baselineEdges(),
	}
}

func supplier(id, name, region, country, city string, risk float64) Node {
	return Node{ID: id, Name: name, Type: NodeSupplier, Region: region, Country: country, City: city, RiskScore: Float(risk)}
}

func factory(id, name, region, country, city string, capacity, risk float64) Node {
	return Node{ID: id, Name: name, Type: NodeFactory, Region: region, Country: country, City: city, Capacity: Float(capacity), RiskScore: Float(risk)}
}

func warehouse(id, name, region, country, city string, inventory, risk float64) Node {
	return Node{ID: id, Name: name, Type: NodeWarehouse, Region: region, Country: country, City: city, Inventory: Float(inventory), RiskScore: Float(risk)}
}

func customer(id, name, region, country, city string, demand float64) Node {
	return Node{ID: id, Name: name, Type: NodeCustomer, Region: region, Country: country, City: city, DailyDemand: Float(demand)}
}

func lane(from, to string, mode Mode, lead int, cost float64) Edge {
	return Edge{ID: "E_" + from + "_" + to, From: from, To: to, Mode: mode, LeadTimeDays: lead, CostIndex: cost, Status: StatusOK}
}

func baselineNodes() []Node {
	return []Node{
		supplier("S1", "Shanghai Components", "APAC", "China", "Shanghai", 0.2),
		supplier("S2", "HK Electronics", "APAC", "China", "Hong Kong", 0.3),
		supplier("S3", "Rotterdam Materials", "EU", "Netherlands", "Rotterdam", 0.1),
		supplier("S4", "Pacific Supply Co", "NA-WEST", "USA", "Seattle", 0.15),

		factory("F1", "Shenzhen Mfg Plant", "APAC", "China", "Shenzhen", 1000, 0.3),
		factory("F2", "Taipei Assembly", "APAC", "Taiwan", "Taipei", 1200, 0.25),
		factory("F3", "Hamburg Production", "EU", "Germany", "Hamburg", 900, 0.2),
		factory("F4", "LA Manufacturing", "NA-WEST", "USA", "Los Angeles", 1100, 0.15),

		warehouse("W1", "SF Distribution", "NA-WEST", "USA", "San Francisco", 500, 0.1),
		warehouse("W2", "NJ Logistics Hub", "NA-EAST", "USA", "New Jersey", 600, 0.1),
		warehouse("W3", "London Depot", "EU", "UK", "London", 450, 0.15),
		warehouse("W4", "Singapore Center", "APAC", "Singapore", "Singapore", 550, 0.2),

		customer("C1", "TechCorp SF", "NA-WEST", "USA", "San Francisco", 10),
		customer("C2", "LA Retail Group", "NA-WEST", "USA", "Los Angeles", 12),
		customer("C3", "Seattle Systems", "NA-WEST", "USA", "Seattle", 8),
		customer("C4", "Portland Trading", "NA-WEST", "USA", "Portland", 15),
		customer("C5", "NYC Enterprises", "NA-EAST", "USA", "New York", 11),
		customer("C6", "Boston Industries", "NA-EAST", "USA", "Boston", 9),
		customer("C7", "Miami Commerce", "NA-EAST", "USA", "Miami", 13),
		customer("C8", "DC Solutions", "NA-EAST", "USA", "Washington DC", 10),
		customer("C9", "London Merchants", "EU", "UK", "London", 14),
		customer("C10", "Berlin Tech", "EU", "Germany", "Berlin", 10),
		customer("C11", "Paris Distributors", "EU", "France", "Paris", 12),
		customer("C12", "Madrid Wholesale", "EU", "Spain", "Madrid", 11),
		customer("C13", "Singapore Trade", "APAC", "Singapore", "Singapore", 9),
		customer("C14", "Tokyo Partners", "APAC", "Japan", "Tokyo", 13),
		customer("C15", "Seoul Markets", "APAC", "South Korea", "Seoul", 10),
		customer("C16", "Sydney Imports", "APAC", "Australia", "Sydney", 12),
	}
}

func baselineEdges() []Edge {
	return []Edge{
		lane("S1", "F1", ModeOcean, 14, 10),
		lane("S2", "F1", ModeOcean, 12, 9),
		lane("S1", "F2", ModeOcean, 15, 11),
		lane("S2", "F2", ModeOcean, 13, 10),
		lane("S3", "F3", ModeRail, 7, 6),
		lane("S4", "F3", ModeOcean, 18, 12),
		lane("S3", "F4", ModeOcean, 16, 11),
		lane("S4", "F4", ModeTruck, 3, 5),

		lane("F1", "W1", ModeOcean, 21, 20),
		lane("F2", "W2", ModeOcean, 23, 22),
		lane("F3", "W3", ModeRail, 5, 8),
		lane("F4", "W4", ModeOcean, 19, 18),

		lane("W1", "C1", ModeTruck, 2, 5),
		lane("W1", "C2", ModeTruck, 1, 4),
		lane("W1", "C3", ModeTruck, 2, 5),
		lane("W1", "C4", ModeTruck, 3, 6),
		lane("W2", "C5", ModeTruck, 2, 5),
		lane("W2", "C6", ModeTruck, 1, 4),
		lane("W2", "C7", ModeTruck, 2, 5),
		lane("W2", "C8", ModeTruck, 2, 5),
		lane("W3", "C9", ModeTruck, 1, 4),
		lane("W3", "C10", ModeTruck, 2, 5),
		lane("W3", "C11", ModeTruck, 3, 6),
		lane("W3", "C12", ModeTruck, 2, 5),
		lane("W4", "C13", ModeTruck, 2, 5),
		lane("W4", "C14", ModeTruck, 1, 4),
		lane("W4", "C15", ModeTruck, 3, 6),
		lane("W4", "C16", ModeTruck, 2, 5),
	}
}
