package mutation

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nvandessel/supplyshock/internal/topology"
)

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }

func statusp(v topology.EdgeStatus) *topology.EdgeStatus { return &v }

func TestApply_EmptyListIsIdentity(t *testing.T) {
	base := topology.Baseline()

	for _, in := range [][]Instruction{nil, {}} {
		got := Apply(base, in)
		if diff := cmp.Diff(base, got); diff != "" {
			t.Errorf("Apply(s, %v) changed snapshot (-want +got):\n%s", in, diff)
		}
	}
}

func TestApply_EmptySnapshotIsIdentity(t *testing.T) {
	got := Apply(topology.Snapshot{}, nil)
	if !reflect.DeepEqual(topology.Snapshot{}, got) {
		t.Errorf("Apply(Snapshot{}, nil) = %#v, want the zero snapshot", got)
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	base := topology.Baseline()
	pristine := topology.Baseline()

	Apply(base, []Instruction{
		ForEdge("E_F1_W1", EdgeChanges{
			LeadTimeDaysDelta:   intp(10),
			CostIndexMultiplier: topology.Float(2),
			CapacityMultiplier:  topology.Float(0.5),
			Status:              statusp(topology.StatusDisrupted),
		}, "strike"),
		ForNode("W1", NodeChanges{InventoryDelta: topology.Float(-400), Status: strp("DOWN")}, ""),
		ForNode("S1", NodeChanges{RiskScoreDelta: topology.Float(0.5)}, ""),
		ForNode("F1", NodeChanges{CapacityMultiplier: topology.Float(0.5)}, ""),
	})

	if diff := cmp.Diff(pristine, base); diff != "" {
		t.Errorf("input snapshot was modified (-want +got):\n%s", diff)
	}
}

func TestApply_UnknownIDIsNoOp(t *testing.T) {
	base := topology.Baseline()

	got, report := ApplyWithReport(base, []Instruction{
		ForEdge("NOPE", EdgeChanges{Status: statusp(topology.StatusDisrupted)}, ""),
		// A node id used as an edge target does not match.
		ForEdge("W1", EdgeChanges{Status: statusp(topology.StatusDisrupted)}, ""),
		{EntityType: "ROUTE", EntityID: "E_F1_W1"},
	})

	if diff := cmp.Diff(base, got); diff != "" {
		t.Errorf("snapshot changed (-want +got):\n%s", diff)
	}
	want := []Outcome{OutcomeUnknownEntity, OutcomeUnknownEntity, OutcomeUnknownType}
	if diff := cmp.Diff(want, report.Outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_EdgeFields(t *testing.T) {
	base := topology.Baseline()

	got := Apply(base, []Instruction{
		ForEdge("E_F1_W1", EdgeChanges{
			LeadTimeDaysDelta:   intp(5),
			CostIndexMultiplier: topology.Float(1.5),
			CapacityMultiplier:  topology.Float(0.8),
			Status:              statusp(topology.StatusDisrupted),
		}, "Ocean shipping delays"),
	})

	e, _ := got.Edge("E_F1_W1")
	if e.LeadTimeDays != 26 {
		t.Errorf("lead time = %d, want 26", e.LeadTimeDays)
	}
	if e.CostIndex != 30 {
		t.Errorf("cost = %v, want 30", e.CostIndex)
	}
	if e.CapacityPct == nil || *e.CapacityPct != 0.8 {
		t.Errorf("capacity_pct = %v, want 0.8 (base 1.0)", e.CapacityPct)
	}
	if e.Status != topology.StatusDisrupted {
		t.Errorf("status = %s, want DISRUPTED", e.Status)
	}
	if e.DisruptionReason != "Ocean shipping delays" {
		t.Errorf("reason = %q", e.DisruptionReason)
	}
}

func TestApply_NodeFields(t *testing.T) {
	base := topology.Baseline()

	got := Apply(base, []Instruction{
		ForNode("S1", NodeChanges{RiskScoreDelta: topology.Float(0.3)}, ""),
		ForNode("F2", NodeChanges{CapacityMultiplier: topology.Float(0.5)}, ""),
		ForNode("W3", NodeChanges{InventoryDelta: topology.Float(-50), Status: strp("DEGRADED")}, ""),
		// Customers carry no capacity; the multiplier starts from zero.
		ForNode("C1", NodeChanges{CapacityMultiplier: topology.Float(3)}, ""),
	})

	s1, _ := got.Node("S1")
	if v := topology.Value(s1.RiskScore); v < 0.4999 || v > 0.5001 {
		t.Errorf("S1 risk = %v, want 0.5", v)
	}
	f2, _ := got.Node("F2")
	if topology.Value(f2.Capacity) != 600 {
		t.Errorf("F2 capacity = %v, want 600", topology.Value(f2.Capacity))
	}
	w3, _ := got.Node("W3")
	if topology.Value(w3.Inventory) != 400 || w3.Status != "DEGRADED" {
		t.Errorf("W3 = inventory %v status %q", topology.Value(w3.Inventory), w3.Status)
	}
	c1, _ := got.Node("C1")
	if c1.Capacity == nil || *c1.Capacity != 0 {
		t.Errorf("C1 capacity = %v, want 0", c1.Capacity)
	}
}

func TestApply_LastWriterWinsPerField(t *testing.T) {
	base := topology.Baseline()

	got := Apply(base, []Instruction{
		ForEdge("E_F2_W2", EdgeChanges{Status: statusp(topology.StatusDisrupted), CostIndexMultiplier: topology.Float(2)}, "first"),
		ForEdge("E_F2_W2", EdgeChanges{Status: statusp(topology.StatusOK)}, "second"),
	})

	e, _ := got.Edge("E_F2_W2")
	if e.Status != topology.StatusOK {
		t.Errorf("status = %s, want OK", e.Status)
	}
	// The unrelated field from the first instruction survives.
	if e.CostIndex != 44 {
		t.Errorf("cost = %v, want 44", e.CostIndex)
	}
	if e.DisruptionReason != "second" {
		t.Errorf("reason = %q, want second", e.DisruptionReason)
	}
}

func TestApply_DeltasAccumulate(t *testing.T) {
	base := topology.Baseline()

	got := Apply(base, []Instruction{
		ForEdge("E_W1_C2", EdgeChanges{LeadTimeDaysDelta: intp(-1)}, ""),
		ForEdge("E_W1_C2", EdgeChanges{LeadTimeDaysDelta: intp(-1)}, ""),
		ForEdge("E_W1_C2", EdgeChanges{CapacityMultiplier: topology.Float(0.5)}, ""),
		ForEdge("E_W1_C2", EdgeChanges{CapacityMultiplier: topology.Float(0.5)}, ""),
	})

	e, _ := got.Edge("E_W1_C2")
	// Lead time may go negative; no floor is applied.
	if e.LeadTimeDays != -1 {
		t.Errorf("lead time = %d, want -1", e.LeadTimeDays)
	}
	if topology.Value(e.CapacityPct) != 0.25 {
		t.Errorf("capacity_pct = %v, want 0.25", topology.Value(e.CapacityPct))
	}
}

func TestApply_EmptyStatusIgnored(t *testing.T) {
	base := topology.Baseline()
	got := Apply(base, []Instruction{
		ForEdge("E_S1_F1", EdgeChanges{Status: statusp("")}, ""),
		ForNode("S1", NodeChanges{Status: strp("")}, ""),
	})
	if diff := cmp.Diff(base, got); diff != "" {
		t.Errorf("empty status should not overwrite (-want +got):\n%s", diff)
	}
}

func TestInstruction_UnmarshalJSON(t *testing.T) {
	raw := `[
		{"entity_type":"EDGE","entity_id":"E_F1_W1","changes":{"lead_time_days_delta":5,"cost_index_multiplier":1.3,"status":"DISRUPTED","note":"ignored"},"reason":"Ocean shipping delays"},
		{"entity_type":"NODE","entity_id":"W1","changes":{"inventory_delta":-100}},
		{"entity_type":"NODE","entity_id":"S1"},
		{"entity_type":"ROUTE","entity_id":"X","changes":{"status":"OK"}}
	]`

	var got []Instruction
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []Instruction{
		ForEdge("E_F1_W1", EdgeChanges{
			LeadTimeDaysDelta:   intp(5),
			CostIndexMultiplier: topology.Float(1.3),
			Status:              statusp(topology.StatusDisrupted),
		}, "Ocean shipping delays"),
		ForNode("W1", NodeChanges{InventoryDelta: topology.Float(-100)}, ""),
		{EntityType: EntityNode, EntityID: "S1"},
		{EntityType: "ROUTE", EntityID: "X"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded instructions mismatch (-want +got):\n%s", diff)
	}
}

func TestInstruction_UnmarshalJSON_WrongFieldType(t *testing.T) {
	raw := `{"entity_type":"EDGE","entity_id":"E1","changes":{"lead_time_days_delta":"five"}}`
	var in Instruction
	if err := json.Unmarshal([]byte(raw), &in); err == nil {
		t.Error("expected error for non-numeric delta")
	}
}

func TestEdgeChanges_FractionalLeadTimeDelta(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{`{"lead_time_days_delta":7.5}`, intp(8)},
		{`{"lead_time_days_delta":-2.5}`, intp(-3)},
		{`{"lead_time_days_delta":4.2}`, intp(4)},
		{`{"lead_time_days_delta":6}`, intp(6)},
		{`{"status":"OK"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var got EdgeChanges
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff(tt.want, got.LeadTimeDaysDelta); diff != "" {
				t.Errorf("LeadTimeDaysDelta mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInstruction_FractionalDeltaApplies(t *testing.T) {
	raw := `{"entity_type":"EDGE","entity_id":"E_F1_W1","changes":{"lead_time_days_delta":7.5,"cost_index_multiplier":1.2}}`
	var in Instruction
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	base := topology.Baseline()
	before, _ := base.Edge("E_F1_W1")
	got := Apply(base, []Instruction{in})
	after, _ := got.Edge("E_F1_W1")
	if after.LeadTimeDays != before.LeadTimeDays+8 {
		t.Errorf("LeadTimeDays = %d, want %d", after.LeadTimeDays, before.LeadTimeDays+8)
	}
	if after.CostIndex != before.CostIndex*1.2 {
		t.Errorf("CostIndex = %v, want %v", after.CostIndex, before.CostIndex*1.2)
	}
}

func TestApply_EmptyEntityIDIsUnknown(t *testing.T) {
	raw := `{"entity_type":"NODE","entity_id":"","changes":{"inventory_delta":-100}}`
	var in Instruction
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	base := topology.Baseline()
	got, report := ApplyWithReport(base, []Instruction{in})
	if diff := cmp.Diff(base, got); diff != "" {
		t.Errorf("snapshot changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Outcome{OutcomeUnknownEntity}, report.Outcomes); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestInstruction_MarshalRoundTrip(t *testing.T) {
	in := ForEdge("E_F1_W1", EdgeChanges{LeadTimeDaysDelta: intp(3)}, "r")
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"entity_type":"EDGE","entity_id":"E_F1_W1","changes":{"lead_time_days_delta":3},"reason":"r"}`
	if string(data) != want {
		t.Errorf("Marshal = %s\nwant      %s", data, want)
	}
}

func TestReport_Count(t *testing.T) {
	_, report := ApplyWithReport(topology.Baseline(), []Instruction{
		ForNode("S1", NodeChanges{RiskScoreDelta: topology.Float(0.1)}, ""),
		ForNode("S9", NodeChanges{RiskScoreDelta: topology.Float(0.1)}, ""),
		{EntityType: EntityEdge, EntityID: "E_S1_F1"},
	})
	if report.Count(OutcomeApplied) != 1 || report.Count(OutcomeUnknownEntity) != 1 || report.Count(OutcomeNoChanges) != 1 {
		t.Errorf("unexpected outcomes %v", report.Outcomes)
	}
}

func TestApply_IsolationProperty(t *testing.T) {
	base := topology.Baseline()
	edgeIDs := make([]any, len(base.Edges))
	for i, e := range base.Edges {
		edgeIDs[i] = e.ID
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("apply never changes its input", prop.ForAll(
		func(id string, delta int, mult float64) bool {
			s := topology.Baseline()
			Apply(s, []Instruction{
				ForEdge(id, EdgeChanges{LeadTimeDaysDelta: &delta, CostIndexMultiplier: &mult, CapacityMultiplier: &mult}, "p"),
			})
			return cmp.Equal(s, topology.Baseline())
		},
		gen.OneConstOf(edgeIDs...),
		gen.IntRange(-30, 30),
		gen.Float64Range(0, 3),
	))

	properties.Property("unknown ids leave the snapshot unchanged", prop.ForAll(
		func(id string) bool {
			if _, ok := base.Edge(id); ok {
				return true
			}
			got := Apply(base, []Instruction{ForEdge(id, EdgeChanges{Status: statusp(topology.StatusDisrupted)}, "")})
			return cmp.Equal(base, got)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
