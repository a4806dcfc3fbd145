package reasoning

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/supplyshock/internal/mutation"
)

const validResponse = `{
  "event_id": "EVT_0001",
  "summary": "Typhoon closes APAC ports.",
  "affected_entities": {"nodes": ["F1"], "edges": ["E_F1_W1"]},
  "impact_mutations": [
    {"entity_type": "EDGE", "entity_id": "E_F1_W1", "changes": {"lead_time_days_delta": 5, "status": "DISRUPTED"}, "reason": "Port closure"}
  ],
  "kpi_implications": [{"metric": "SERVICE_LEVEL", "direction": "DOWN", "why": "delays"}],
  "recommendations": [
    {"id": "REC_0001", "action_type": "REROUTE", "mutations": [
      {"entity_type": "EDGE", "entity_id": "E_F2_W2", "changes": {"lead_time_days_delta": -2}}
    ], "expected_impact": {"service_level_delta_pct": 3}, "rationale": "reroute"},
    {"id": "REC_0002", "action_type": "BUFFER", "mutations": [
      {"entity_type": "NODE", "entity_id": "W1", "changes": {"inventory_delta": 100}}
    ], "rationale": "stock up"}
  ]
}`

func TestParseAnalysis_Valid(t *testing.T) {
	a, err := ParseAnalysis(validResponse)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if a.EventID != "EVT_0001" || len(a.ImpactMutations) != 1 || len(a.Recommendations) != 2 {
		t.Errorf("unexpected analysis %+v", a)
	}
	if a.ImpactMutations[0].Edge == nil || *a.ImpactMutations[0].Edge.LeadTimeDaysDelta != 5 {
		t.Errorf("impact mutation not decoded: %+v", a.ImpactMutations[0])
	}
}

func TestParseAnalysis_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantMsg  string
	}{
		{"no json", "I cannot help with that.", "no JSON object"},
		{"broken json", "{\"event_id\": ", "unexpected end"},
		{"missing keys", `{"event_id":"EVT_0001","summary":"x"}`, "affected_entities, impact_mutations, kpi_implications, recommendations"},
		{"wrong entity type", strings.Replace(validResponse, `"entity_type": "EDGE", "entity_id": "E_F1_W1"`, `"entity_type": "ROUTE", "entity_id": "E_F1_W1"`, 1), "oneof"},
		{"non-numeric delta", strings.Replace(validResponse, `"lead_time_days_delta": 5`, `"lead_time_days_delta": "five"`, 1), "schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysis(tt.response)
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("err = %v, want ErrSchema", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseAnalysis_EmptyEntityID(t *testing.T) {
	resp := strings.Replace(validResponse, `"entity_id": "W1"`, `"entity_id": ""`, 1)
	a, err := ParseAnalysis(resp)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}

	got := a.Recommendations[1].Mutations[0]
	if got.EntityID != "" || got.Node == nil {
		t.Errorf("mutation = %+v, want node changes with an empty id", got)
	}
}

func TestParseAnalysis_FractionalLeadTimeDelta(t *testing.T) {
	resp := strings.Replace(validResponse, `"lead_time_days_delta": 5`, `"lead_time_days_delta": 7.5`, 1)
	a, err := ParseAnalysis(resp)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if d := a.ImpactMutations[0].Edge.LeadTimeDaysDelta; d == nil || *d != 8 {
		t.Errorf("lead_time_days_delta = %v, want 8", d)
	}
}

func TestParseAnalysis_InformationalFieldsAcceptAnyJSON(t *testing.T) {
	resp := strings.Replace(validResponse,
		`"kpi_implications": [{"metric": "SERVICE_LEVEL", "direction": "DOWN", "why": "delays"}]`,
		`"kpi_implications": {"SERVICE_LEVEL": "down", "score": 0.4}`, 1)
	resp = strings.Replace(resp,
		`"expected_impact": {"service_level_delta_pct": 3}`,
		`"expected_impact": "service level recovers within a week"`, 1)

	a, err := ParseAnalysis(resp)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	want := map[string]any{"SERVICE_LEVEL": "down", "score": 0.4}
	if diff := cmp.Diff(any(want), a.KPIImplications); diff != "" {
		t.Errorf("kpi_implications (-want +got):\n%s", diff)
	}
	if a.Recommendations[0].ExpectedImpact != "service level recovers within a week" {
		t.Errorf("expected_impact = %v", a.Recommendations[0].ExpectedImpact)
	}
}

func TestParseAnalysis_NullKeyCountsAsPresent(t *testing.T) {
	resp := `{"event_id":"E","summary":"s","affected_entities":null,"impact_mutations":null,"kpi_implications":null,"recommendations":null}`
	a, err := ParseAnalysis(resp)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if len(a.ImpactMutations) != 0 || len(a.RecommendationMutations()) != 0 {
		t.Errorf("expected empty mutation lists, got %+v", a)
	}
}

func TestAnalysis_RecommendationMutations(t *testing.T) {
	a, err := ParseAnalysis(validResponse)
	if err != nil {
		t.Fatal(err)
	}

	got := a.RecommendationMutations()
	ids := make([]string, len(got))
	for i, in := range got {
		ids[i] = in.EntityID
	}
	if diff := cmp.Diff([]string{"E_F2_W2", "W1"}, ids); diff != "" {
		t.Errorf("mutation order (-want +got):\n%s", diff)
	}
	if got[1].EntityType != mutation.EntityNode {
		t.Errorf("second mutation type = %s, want NODE", got[1].EntityType)
	}

	var nilAnalysis *Analysis
	if nilAnalysis.RecommendationMutations() != nil {
		t.Error("nil analysis should yield no mutations")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"raw object", `{"a":1}`, `{"a":1}`},
		{"json fence", "Here you go:\n```json\n{\"a\":1}\n```\nThanks", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", `Sure! {"a":{"b":2}} Hope this helps.`, `{"a":{"b":2}}`},
		{"whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
		{"nothing", "no json here", ""},
		{"reversed braces", "} oops {", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
