// Package reasoning talks to the external service that turns a world event
// and the current network into proposed mutations and recommendations.
//
// A Client only moves text: it receives a Request and returns the raw
// response. The Analyzer owns prompting, JSON extraction, schema checks and
// the single retry. Backends are Backboard, the Anthropic Messages API and
// an offline rule-based client.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/topology"
)

var (
	// ErrSchema marks a response that could not be turned into an Analysis.
	ErrSchema = errors.New("reasoning: response does not match analysis schema")

	// ErrAnalysisFailed is returned once the retry budget is spent.
	ErrAnalysisFailed = errors.New("reasoning: analysis failed")

	// ErrUnavailable is returned by clients that lack credentials.
	ErrUnavailable = errors.New("reasoning: client not available")
)

// Request is one call to the reasoning service. Prompt is what text-based
// backends send; Event and Snapshot are the same context in structured form.
type Request struct {
	Prompt   string
	Attempt  int
	Event    events.WorldEvent
	Snapshot topology.Snapshot
}

// Client sends a Request and returns the raw response text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Available reports whether the client is configured well enough to be
	// called, e.g. whether an API key is present.
	Available() bool
}

// Provider names accepted by NewClient.
const (
	ProviderBackboard = "backboard"
	ProviderAnthropic = "anthropic"
	ProviderRules     = "rules"
)

// ClientConfig configures a reasoning backend.
type ClientConfig struct {
	// Provider is one of backboard, anthropic or rules.
	Provider string `json:"provider" yaml:"provider"`

	APIKey  string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// AssistantName names the Backboard assistant created on first use.
	AssistantName string `json:"assistant_name,omitempty" yaml:"assistant_name,omitempty"`
}

// DefaultConfig returns the offline rules backend with a 60s timeout.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider: ProviderRules,
		Timeout:  60 * time.Second,
	}
}

// NewClient builds the client named by cfg.Provider. An empty provider
// selects the rules backend.
func NewClient(cfg ClientConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderBackboard:
		return NewBackboardClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case ProviderRules, "":
		return NewRulesClient(), nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}
}
