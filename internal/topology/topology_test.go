package topology

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBaseline_Shape(t *testing.T) {
	s := Baseline()

	counts := map[NodeType]int{}
	for _, n := range s.Nodes {
		counts[n.Type]++
	}
	want := map[NodeType]int{NodeSupplier: 4, NodeFactory: 4, NodeWarehouse: 4, NodeCustomer: 16}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("node counts mismatch (-want +got):\n%s", diff)
	}

	if len(s.Edges) != 28 {
		t.Errorf("expected 28 edges, got %d", len(s.Edges))
	}
	for _, e := range s.Edges {
		if e.Status != StatusOK {
			t.Errorf("edge %s: expected status OK, got %q", e.ID, e.Status)
		}
	}

	if err := Validate(s); err != nil {
		t.Errorf("baseline should validate: %v", err)
	}
}

func TestBaseline_ReturnsFreshCopies(t *testing.T) {
	a := Baseline()
	a.Nodes[0].Name = "changed"
	*a.Nodes[0].RiskScore = 9
	a.Edges[0].LeadTimeDays = 99

	b := Baseline()
	if b.Nodes[0].Name == "changed" || *b.Nodes[0].RiskScore == 9 || b.Edges[0].LeadTimeDays == 99 {
		t.Error("Baseline() returned shared memory across calls")
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	s := Baseline()
	s.Edges[0].CapacityPct = Float(0.5)

	c := s.Clone()
	if diff := cmp.Diff(s, c); diff != "" {
		t.Fatalf("clone differs from source (-src +clone):\n%s", diff)
	}

	*c.Nodes[8].Inventory = 1
	*c.Edges[0].CapacityPct = 0.1
	c.Edges[1].Status = StatusDisrupted

	if *s.Nodes[8].Inventory != 500 {
		t.Errorf("source inventory changed through clone: %v", *s.Nodes[8].Inventory)
	}
	if *s.Edges[0].CapacityPct != 0.5 {
		t.Errorf("source capacity_pct changed through clone: %v", *s.Edges[0].CapacityPct)
	}
	if s.Edges[1].Status != StatusOK {
		t.Errorf("source status changed through clone: %v", s.Edges[1].Status)
	}
}

func TestSnapshot_Lookups(t *testing.T) {
	s := Baseline()

	if n, ok := s.Node("W3"); !ok || n.City != "London" {
		t.Errorf("Node(W3) = %+v, %v", n, ok)
	}
	if _, ok := s.Node("NOPE"); ok {
		t.Error("Node(NOPE) should not be found")
	}
	if e, ok := s.Edge("E_F1_W1"); !ok || e.LeadTimeDays != 21 {
		t.Errorf("Edge(E_F1_W1) = %+v, %v", e, ok)
	}
	if e, ok := s.FirstInbound("C9"); !ok || e.From != "W3" {
		t.Errorf("FirstInbound(C9) = %+v, %v", e, ok)
	}
	if _, ok := s.FirstInbound("S1"); ok {
		t.Error("suppliers have no inbound edges")
	}
}

func TestEdge_Active(t *testing.T) {
	tests := []struct {
		status EdgeStatus
		want   bool
	}{
		{"", true},
		{StatusOK, true},
		{StatusDisrupted, false},
		{"CLOSED", false},
	}
	for _, tt := range tests {
		if got := (Edge{Status: tt.status}).Active(); got != tt.want {
			t.Errorf("Active(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	out := Describe(Baseline())
	for _, want := range []string{"Suppliers:", "Customers:", "Lanes:", "E_F1_W1 F1->W1 OCEAN lead=21d", "W1 SF Distribution"} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe() missing %q", want)
		}
	}
}

func TestRegions(t *testing.T) {
	got := Regions(Baseline())
	want := []string{"APAC", "EU", "NA-EAST", "NA-WEST"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Regions mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr string
	}{
		{
			name:    "duplicate node",
			mutate:  func(s *Snapshot) { s.Nodes[1].ID = s.Nodes[0].ID },
			wantErr: "duplicate node id",
		},
		{
			name:    "duplicate edge",
			mutate:  func(s *Snapshot) { s.Edges[1].ID = s.Edges[0].ID },
			wantErr: "duplicate edge id",
		},
		{
			name:    "dangling edge",
			mutate:  func(s *Snapshot) { s.Edges[0].To = "X9" },
			wantErr: "unknown node",
		},
		{
			name:    "bad mode",
			mutate:  func(s *Snapshot) { s.Edges[0].Mode = "BARGE" },
			wantErr: "oneof",
		},
		{
			name:    "bad node type",
			mutate:  func(s *Snapshot) { s.Nodes[0].Type = "depot" },
			wantErr: "oneof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Baseline()
			tt.mutate(&s)
			err := Validate(s)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	content := `
nodes:
  - {id: W1, type: warehouse, region: EU, inventory: 100}
  - {id: C1, type: customer, region: EU, daily_demand: 5}
edges:
  - {id: E_W1_C1, from: W1, to: C1, mode: TRUCK, lead_time_days: 2, cost_index: 3, status: OK}
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(s.Nodes) != 2 || len(s.Edges) != 1 {
		t.Fatalf("unexpected shape: %d nodes, %d edges", len(s.Nodes), len(s.Edges))
	}
	if s.Nodes[0].Inventory == nil || *s.Nodes[0].Inventory != 100 {
		t.Errorf("inventory not decoded: %+v", s.Nodes[0])
	}
	if s.Nodes[0].RiskScore != nil {
		t.Errorf("absent risk_score should stay nil, got %v", *s.Nodes[0].RiskScore)
	}
}

func TestLoadFile_JSONInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	content := `{"nodes":[{"id":"A","type":"customer"}],"edges":[{"id":"E","from":"A","to":"B","mode":"AIR"}]}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected validation error for dangling edge")
	}
}

func TestValidateStructure_AcceptsNegativeValues(t *testing.T) {
	s := Baseline()
	s.Edges[0].LeadTimeDays = -12
	s.Edges[1].CostIndex = -0.5
	s.Nodes[4].Capacity = Float(-10)

	if err := ValidateStructure(s); err != nil {
		t.Errorf("ValidateStructure() error = %v", err)
	}
	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "nonneg") {
		t.Errorf("Validate() error = %v, want a nonneg failure", err)
	}
}

func TestValidateStructure_StillChecksShape(t *testing.T) {
	s := Baseline()
	s.Edges[0].LeadTimeDays = -3
	s.Edges[2].To = "X9"

	err := ValidateStructure(s)
	if err == nil || !strings.Contains(err.Error(), "unknown node") {
		t.Errorf("ValidateStructure() error = %v, want unknown node", err)
	}
}

func TestLoadSnapshotFile_NegativeLeadTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mutated.json")
	content := `{"nodes":[{"id":"W1","type":"warehouse","region":"EU"},{"id":"C1","type":"customer","region":"EU"}],` +
		`"edges":[{"id":"E_W1_C1","from":"W1","to":"C1","mode":"TRUCK","lead_time_days":-4,"cost_index":3}]}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSnapshotFile(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFile() error = %v", err)
	}
	if s.Edges[0].LeadTimeDays != -4 {
		t.Errorf("lead time = %d, want -4", s.Edges[0].LeadTimeDays)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should reject a negative lead time")
	}
}

func TestSnapshot_ClonePreservesNil(t *testing.T) {
	c := Snapshot{}.Clone()
	if c.Nodes != nil || c.Edges != nil {
		t.Errorf("Clone of empty snapshot = %#v, want nil slices", c)
	}

	s := Snapshot{Nodes: []Node{}}
	c = s.Clone()
	if c.Nodes == nil || c.Edges != nil {
		t.Errorf("Clone = %#v, want empty Nodes and nil Edges", c)
	}
}
