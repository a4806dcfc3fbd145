package reasoning

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/topology"
)

// StrictPrefix is prepended to the prompt on the retry attempt.
const StrictPrefix = "CRITICAL: Return ONLY valid JSON. No markdown code blocks, no backticks, no explanation text. ONLY the JSON object.\n\n"

var (
	jsonBlockRe    = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)\\s*```")
	genericBlockRe = regexp.MustCompile("(?s)```\\s*\\n?(.*?)\\s*```")
)

// AnalysisPrompt builds the prompt for one attempt. Attempts after the
// first carry StrictPrefix.
func AnalysisPrompt(ev events.WorldEvent, s topology.Snapshot, attempt int) string {
	prefix := ""
	if attempt > 0 {
		prefix = StrictPrefix
	}

	eventJSON, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		// WorldEvent has no types json cannot encode.
		eventJSON = []byte("{}")
	}

	return fmt.Sprintf(`%sYou are a supply chain reasoning assistant.

Here is a world event JSON:
%s

Here is the CURRENT supply chain:
%s
You must:
1. Interpret how this event impacts the CURRENT supply chain
2. Identify affected nodes and edges (use IDs like S1, F1, W1, C1, E_S1_F1)
3. Propose parameter changes (lead time, cost, risk, capacity)
4. Explain KPI direction changes
5. Recommend 1-2 mitigation actions

Return ONLY valid JSON matching this EXACT schema:
{
  "event_id": %q,
  "summary": "2-4 sentence analysis",
  "affected_entities": {
    "nodes": ["S1", "F1"],
    "edges": ["E_S1_F1", "E_F1_W1"]
  },
  "impact_mutations": [
    {
      "entity_type": "EDGE",
      "entity_id": "E_F1_W1",
      "changes": {
        "lead_time_days_delta": 5,
        "cost_index_multiplier": 1.3,
        "status": "DISRUPTED"
      },
      "reason": "Ocean shipping delays"
    }
  ],
  "kpi_implications": [
    {
      "metric": "SERVICE_LEVEL",
      "direction": "DOWN",
      "why": "Longer lead times increase risk"
    }
  ],
  "recommendations": [
    {
      "id": "REC_0001",
      "action_type": "REROUTE",
      "mutations": [
        {
          "entity_type": "EDGE",
          "entity_id": "E_F2_W1",
          "changes": { "lead_time_days_delta": -2 }
        }
      ],
      "expected_impact": {
        "service_level_delta_pct": 3,
        "cost_index_delta_pct": 8,
        "stockout_customers_delta": -1
      },
      "rationale": "Reroute to reduce delays"
    }
  ]
}

Do not include extra text. Return ONLY the JSON object.`,
		prefix, eventJSON, topology.Describe(s), ev.ID)
}

// ExtractJSON pulls a JSON object out of a model response. It tries, in
// order: a ```json fenced block, any fenced block, the whole string when it
// starts with '{', and finally the span from the first '{' to the last '}'.
// It returns "" when nothing looks like an object.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	if m := jsonBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := genericBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "{") {
		return s
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
