package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/mutation"
	"github.com/nvandessel/supplyshock/internal/ratelimit"
	"github.com/nvandessel/supplyshock/internal/topology"
)

const (
	topologyURI       = "supplyshock://topology/current"
	eventURIPrefix    = "supplyshock://events/"
	eventsURITemplate = eventURIPrefix + "{seed}"
)

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "generate_event",
		Description: "Generate the deterministic world event for a seed without touching the session",
	}, s.handleGenerateEvent)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "apply_mutations",
		Description: "Apply mutation instructions to the baseline or a supplied snapshot and return the result with its KPIs",
	}, s.handleApplyMutations)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "project_kpis",
		Description: "Compute service level, stockout-risk customers, average lead time and cost index for a snapshot",
	}, s.handleProjectKPIs)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "session_state",
		Description: "Show the shared session: state, next seed, KPIs against baseline and the latest event",
	}, s.handleSessionState)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "session_next_event",
		Description: "Generate the next event, analyze it and apply its impact to the shared session",
	}, s.handleNextEvent)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "session_accept_recommendations",
		Description: "Apply the latest analysis's recommended mutations to the shared session",
	}, s.handleAccept)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "session_reset",
		Description: "Return the shared session to the baseline topology and the first seed",
	}, s.handleReset)
}

func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         topologyURI,
		Name:        "supplyshock-topology",
		Description: "The session's current supply network and KPIs as plain text.",
		MIMEType:    "text/plain",
	}, s.handleTopologyResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: eventsURITemplate,
		Name:        "supplyshock-event",
		Description: "The world event generated by a seed, as JSON.",
		MIMEType:    "application/json",
	}, s.handleEventResource)
}

func (s *Server) handleTopologyResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	s.mu.Lock()
	snap := s.sess.Snapshot()
	current := s.sess.KPIs()
	state := s.sess.State()
	s.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s is %s.\n", s.sess.ID(), state)
	fmt.Fprintf(&sb, "KPIs: service_level=%d%% stockout_risk_customers=%d avg_lead_time=%dd cost_index=%d\n\n",
		current.ServiceLevel, current.StockoutRiskCustomers, current.AvgLeadTime, current.CostIndex)
	sb.WriteString(topology.Describe(snap))

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: req.Params.URI, MIMEType: "text/plain", Text: sb.String()},
		},
	}, nil
}

func (s *Server) handleEventResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	raw, ok := strings.CutPrefix(uri, eventURIPrefix)
	if !ok {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q in %s", raw, uri)
	}

	data, err := json.MarshalIndent(events.Generate(seed), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

func (s *Server) handleGenerateEvent(ctx context.Context, req *sdk.CallToolRequest, args GenerateEventInput) (_ *sdk.CallToolResult, _ GenerateEventOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("generate_event", start, retErr, auditParams(map[string]any{"seed": args.Seed}))
	}()

	if err := ratelimit.CheckLimit(s.limiters, "generate_event"); err != nil {
		return nil, GenerateEventOutput{}, err
	}

	return nil, GenerateEventOutput{Event: events.Generate(args.Seed)}, nil
}

func (s *Server) handleApplyMutations(ctx context.Context, req *sdk.CallToolRequest, args ApplyMutationsInput) (_ *sdk.CallToolResult, _ ApplyMutationsOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{"mutations": len(args.Mutations)}
		if args.Snapshot != nil {
			params["snapshot"] = true
		}
		s.auditTool("apply_mutations", start, retErr, auditParams(params))
	}()

	if err := ratelimit.CheckLimit(s.limiters, "apply_mutations"); err != nil {
		return nil, ApplyMutationsOutput{}, err
	}

	base, err := snapshotOrBaseline(args.Snapshot)
	if err != nil {
		return nil, ApplyMutationsOutput{}, err
	}
	ins, err := decodeInstructions(args.Mutations)
	if err != nil {
		return nil, ApplyMutationsOutput{}, err
	}

	out, report := mutation.ApplyWithReport(base, ins)
	outcomes := make([]string, len(report.Outcomes))
	for i, o := range report.Outcomes {
		outcomes[i] = string(o)
	}

	return nil, ApplyMutationsOutput{
		Snapshot: out,
		KPIs:     kpi.Project(out),
		Outcomes: outcomes,
		Applied:  report.Count(mutation.OutcomeApplied),
	}, nil
}

func (s *Server) handleProjectKPIs(ctx context.Context, req *sdk.CallToolRequest, args ProjectKPIsInput) (_ *sdk.CallToolResult, _ ProjectKPIsOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{}
		if args.Snapshot != nil {
			params["snapshot"] = true
		}
		s.auditTool("project_kpis", start, retErr, auditParams(params))
	}()

	if err := ratelimit.CheckLimit(s.limiters, "project_kpis"); err != nil {
		return nil, ProjectKPIsOutput{}, err
	}

	snap, err := snapshotOrBaseline(args.Snapshot)
	if err != nil {
		return nil, ProjectKPIsOutput{}, err
	}

	return nil, ProjectKPIsOutput{
		KPIs:            kpi.Project(snap),
		AtRiskCustomers: nonNil(kpi.AtRiskCustomers(snap)),
	}, nil
}

func (s *Server) handleSessionState(ctx context.Context, req *sdk.CallToolRequest, args SessionStateInput) (_ *sdk.CallToolResult, _ SessionState, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("session_state", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.limiters, "session_state"); err != nil {
		return nil, SessionState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return nil, s.stateLocked(args.IncludeSnapshot), nil
}

func (s *Server) handleNextEvent(ctx context.Context, req *sdk.CallToolRequest, args NextEventInput) (_ *sdk.CallToolResult, _ SessionState, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{}
		if args.Seed != nil {
			params["seed"] = *args.Seed
		}
		s.auditTool("session_next_event", start, retErr, auditParams(params))
	}()

	if err := ratelimit.CheckLimit(s.limiters, "session_next_event"); err != nil {
		return nil, SessionState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seed := s.sess.NextSeed()
	if args.Seed != nil {
		seed = *args.Seed
	}
	if _, err := s.sess.ProcessEvent(ctx, seed); err != nil {
		return nil, SessionState{}, err
	}
	if err := s.persistLocked(ctx); err != nil {
		return nil, SessionState{}, err
	}
	return nil, s.stateLocked(false), nil
}

func (s *Server) handleAccept(ctx context.Context, req *sdk.CallToolRequest, args EmptyInput) (_ *sdk.CallToolResult, _ AcceptOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("session_accept_recommendations", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.limiters, "session_accept_recommendations"); err != nil {
		return nil, AcceptOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.sess.AcceptRecommendations()
	if err != nil {
		return nil, AcceptOutput{}, err
	}
	if applied {
		if err := s.persistLocked(ctx); err != nil {
			return nil, AcceptOutput{}, err
		}
	}
	return nil, AcceptOutput{Applied: applied, Session: s.stateLocked(false)}, nil
}

func (s *Server) handleReset(ctx context.Context, req *sdk.CallToolRequest, args EmptyInput) (_ *sdk.CallToolResult, _ SessionState, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("session_reset", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.limiters, "session_reset"); err != nil {
		return nil, SessionState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.Reset()
	if err := s.persistLocked(ctx); err != nil {
		return nil, SessionState{}, err
	}
	return nil, s.stateLocked(false), nil
}

func (s *Server) stateLocked(includeSnapshot bool) SessionState {
	snap := s.sess.Snapshot()
	st := SessionState{
		SessionID:       s.sess.ID(),
		State:           s.sess.State(),
		NextSeed:        s.sess.NextSeed(),
		BaselineKPIs:    s.sess.BaselineKPIs(),
		KPIs:            s.sess.KPIs(),
		Deltas:          s.sess.Deltas(),
		AtRiskCustomers: nonNil(kpi.AtRiskCustomers(snap)),
		Event:           s.sess.LatestEvent(),
		UpdatedAt:       s.sess.UpdatedAt(),
	}
	if includeSnapshot {
		st.Snapshot = &snap
	}

	if a := s.sess.LatestAnalysis(); a != nil {
		sum := &AnalysisSummary{
			Summary:         a.Summary,
			ImpactMutations: len(a.ImpactMutations),
			Recommendations: make([]RecommendationSummary, 0, len(a.Recommendations)),
		}
		for _, r := range a.Recommendations {
			sum.Recommendations = append(sum.Recommendations, RecommendationSummary{
				ID:         r.ID,
				ActionType: r.ActionType,
				Mutations:  len(r.Mutations),
				Rationale:  r.Rationale,
			})
		}
		st.Analysis = sum
	}
	return st
}

func (s *Server) persistLocked(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.sess.Record()); err != nil {
		s.logger.Error("saving session failed", "session_id", s.sess.ID(), "error", err)
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func snapshotOrBaseline(s *topology.Snapshot) (topology.Snapshot, error) {
	if s == nil {
		return topology.Baseline(), nil
	}
	if err := topology.ValidateStructure(*s); err != nil {
		return topology.Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return *s, nil
}

// decodeInstructions round-trips the loosely typed tool arguments through
// JSON so each instruction's "changes" is interpreted by its entity type.
func decodeInstructions(raw []map[string]any) ([]mutation.Instruction, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding mutations: %w", err)
	}
	var ins []mutation.Instruction
	if err := json.Unmarshal(data, &ins); err != nil {
		return nil, fmt.Errorf("invalid mutations: %w", err)
	}
	return ins, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
