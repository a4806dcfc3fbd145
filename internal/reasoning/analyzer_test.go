package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/topology"
)

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveAnalysisAttempt(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestAnalyzer_FirstAttemptSucceeds(t *testing.T) {
	mock := NewMockClient().WithResponses(validResponse)
	obs := &recordingObserver{}
	a := NewAnalyzer(mock, WithObserver(obs))

	ev := events.Generate(1)
	got, err := a.Analyze(context.Background(), ev, topology.Baseline())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.EventID != "EVT_0001" {
		t.Errorf("event id = %q", got.EventID)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}

	req := mock.Calls[0]
	if strings.HasPrefix(req.Prompt, "CRITICAL") {
		t.Error("first attempt should not carry the strict prefix")
	}
	if !strings.Contains(req.Prompt, `"id": "EVT_0001"`) || !strings.Contains(req.Prompt, "E_F1_W1 F1->W1") {
		t.Error("prompt should embed the event JSON and the topology description")
	}
	if req.Event.ID != ev.ID || len(req.Snapshot.Edges) != 28 {
		t.Error("structured request context not passed through")
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != OutcomeOK {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestAnalyzer_RetriesOnceWithStrictPrompt(t *testing.T) {
	mock := NewMockClient().WithResponses("```json\n{\"summary\": \"incomplete\"}\n```", validResponse)
	obs := &recordingObserver{}
	a := NewAnalyzer(mock, WithObserver(obs))

	if _, err := a.Analyze(context.Background(), events.Generate(1), topology.Baseline()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("calls = %d, want 2", mock.CallCount())
	}
	if !strings.HasPrefix(mock.Calls[1].Prompt, StrictPrefix) {
		t.Error("retry should start with the strict prefix")
	}
	if mock.Calls[1].Attempt != 1 {
		t.Errorf("retry attempt = %d, want 1", mock.Calls[1].Attempt)
	}
	if strings.Join(obs.outcomes, ",") != "schema_error,ok" {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestAnalyzer_FailsAfterSecondBadResponse(t *testing.T) {
	mock := NewMockClient().WithResponses("not json", `{"event_id": "x"}`)
	a := NewAnalyzer(mock)

	_, err := a.Analyze(context.Background(), events.Generate(2), topology.Baseline())
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}
	if !errors.Is(err, ErrSchema) {
		t.Errorf("err = %v, should wrap ErrSchema", err)
	}
	if mock.CallCount() != MaxAttempts {
		t.Errorf("calls = %d, want %d", mock.CallCount(), MaxAttempts)
	}
}

func TestAnalyzer_RetriesTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	mock := NewMockClient().WithErrors(boom).WithResponses("", validResponse)
	obs := &recordingObserver{}
	a := NewAnalyzer(mock, WithObserver(obs))

	if _, err := a.Analyze(context.Background(), events.Generate(1), topology.Baseline()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if strings.Join(obs.outcomes, ",") != "client_error,ok" {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestAnalyzer_Unavailable(t *testing.T) {
	mock := NewMockClient().WithAvailable(false)
	a := NewAnalyzer(mock)

	_, err := a.Analyze(context.Background(), events.Generate(1), topology.Baseline())
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed wrapping ErrUnavailable", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("unavailable client should not be called, got %d calls", mock.CallCount())
	}
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockClient().WithResponses(validResponse)
	_, err := NewAnalyzer(mock).Analyze(ctx, events.Generate(1), topology.Baseline())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", mock.CallCount())
	}
}

func TestAnalysisPrompt(t *testing.T) {
	ev := events.Generate(3)
	first := AnalysisPrompt(ev, topology.Baseline(), 0)
	retry := AnalysisPrompt(ev, topology.Baseline(), 1)

	if strings.HasPrefix(first, StrictPrefix) {
		t.Error("first prompt has strict prefix")
	}
	if retry != StrictPrefix+first {
		t.Error("retry prompt should be the first prompt with the strict prefix")
	}
	if !strings.Contains(first, `"event_id": "EVT_0003"`) {
		t.Error("schema example should carry the event id")
	}
	for _, key := range RequiredKeys {
		if !strings.Contains(first, `"`+key+`"`) {
			t.Errorf("prompt schema missing key %q", key)
		}
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{"", "*reasoning.RulesClient", false},
		{"rules", "*reasoning.RulesClient", false},
		{"Backboard", "*reasoning.BackboardClient", false},
		{"anthropic", "*reasoning.AnthropicClient", false},
		{"openai", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := NewClient(ClientConfig{Provider: tt.provider})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := typeName(c); got != tt.want {
				t.Errorf("NewClient(%q) = %s, want %s", tt.provider, got, tt.want)
			}
		})
	}
}

func typeName(c Client) string {
	switch c.(type) {
	case *RulesClient:
		return "*reasoning.RulesClient"
	case *BackboardClient:
		return "*reasoning.BackboardClient"
	case *AnthropicClient:
		return "*reasoning.AnthropicClient"
	}
	return "unknown"
}
