package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nvandessel/supplyshock/internal/mutation"
)

var validate = validator.New()

// RequiredKeys must all be present at the top level of a response. A key
// set to null still counts as present.
var RequiredKeys = []string{
	"event_id",
	"summary",
	"affected_entities",
	"impact_mutations",
	"kpi_implications",
	"recommendations",
}

// AffectedEntities lists the node and edge ids an event touches.
type AffectedEntities struct {
	Nodes []string `json:"nodes"`
	Edges []string `json:"edges"`
}

// KPIImplication is the shape the rules client emits for kpi_implications.
// Other producers may send any JSON there; the engine never reads it.
type KPIImplication struct {
	Metric    string `json:"metric"`
	Direction string `json:"direction"`
	Why       string `json:"why"`
}

// Recommendation is one proposed mitigation and the mutations that enact it.
type Recommendation struct {
	ID             string                 `json:"id"`
	ActionType     string                 `json:"action_type"`
	Mutations      []mutation.Instruction `json:"mutations" validate:"dive"`
	ExpectedImpact any                    `json:"expected_impact,omitempty"`
	Rationale      string                 `json:"rationale"`
}

// Analysis is a validated response from the reasoning service.
// KPIImplications and ExpectedImpact are informational and accept any JSON
// value.
type Analysis struct {
	EventID          string                 `json:"event_id"`
	Summary          string                 `json:"summary"`
	AffectedEntities AffectedEntities       `json:"affected_entities"`
	ImpactMutations  []mutation.Instruction `json:"impact_mutations" validate:"dive"`
	KPIImplications  any                    `json:"kpi_implications"`
	Recommendations  []Recommendation       `json:"recommendations" validate:"dive"`
}

// RecommendationMutations concatenates the mutations of every
// recommendation, in order.
func (a *Analysis) RecommendationMutations() []mutation.Instruction {
	if a == nil {
		return nil
	}
	var out []mutation.Instruction
	for _, r := range a.Recommendations {
		out = append(out, r.Mutations...)
	}
	return out
}

// ParseAnalysis extracts, decodes and validates an Analysis from raw
// response text. Every failure wraps ErrSchema.
func ParseAnalysis(response string) (*Analysis, error) {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrSchema)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if missing := missingKeys(top); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing keys %s", ErrSchema, strings.Join(missing, ", "))
	}

	var a Analysis
	if err := json.Unmarshal([]byte(jsonStr), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := validate.Struct(&a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("%w: %s failed %q", ErrSchema, fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return &a, nil
}

func missingKeys(top map[string]json.RawMessage) []string {
	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := top[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
