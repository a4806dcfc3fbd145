package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/supplyshock/internal/events"
	"github.com/nvandessel/supplyshock/internal/reasoning"
	"github.com/nvandessel/supplyshock/internal/topology"
)

func fixedNow() time.Time { return time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC) }

func TestRun_CoversAllEventTypes(t *testing.T) {
	results, err := Run(context.Background(), Options{From: 0, To: 6, Parallel: 3, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("got %d results, want 6", len(results))
	}

	var types []events.Type
	for i, r := range results {
		if r.Seed != int64(i) || r.EventID != events.FormatID(int64(i)) {
			t.Errorf("result %d has seed %d id %s", i, r.Seed, r.EventID)
		}
		types = append(types, r.EventType)
	}
	if diff := cmp.Diff(events.Types(), types); diff != "" {
		t.Errorf("event types (-want +got):\n%s", diff)
	}
}

func TestRun_DeterministicAcrossParallelism(t *testing.T) {
	ctx := context.Background()
	serial, err := Run(ctx, Options{From: -3, To: 12, Parallel: 1, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := Run(ctx, Options{From: -3, To: 12, Parallel: 8, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("parallel sweep differs from serial (-serial +parallel):\n%s", diff)
	}
}

func TestRun_MitigationNeverWorsensLeadTime(t *testing.T) {
	results, err := Run(context.Background(), Options{From: 0, To: 30, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Applied && r.Mitigated.AvgLeadTime > r.Impact.AvgLeadTime {
			t.Errorf("seed %d: mitigated lead time %d > impact %d", r.Seed, r.Mitigated.AvgLeadTime, r.Impact.AvgLeadTime)
		}
		if r.Mitigated.ServiceLevel < 0 || r.Mitigated.ServiceLevel > 100 {
			t.Errorf("seed %d: service level %d out of range", r.Seed, r.Mitigated.ServiceLevel)
		}
	}
}

func TestRun_CustomBaseline(t *testing.T) {
	custom := topology.Baseline()
	for i := range custom.Nodes {
		custom.Nodes[i].Region = "ANTARCTICA"
	}
	// No event names this region, so no lane is affected.
	results, err := Run(context.Background(), Options{From: 0, To: 2, Baseline: custom, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Deltas.AvgLeadTime != 0 || r.Deltas.CostIndex != 0 {
			t.Errorf("seed %d: unexpected deltas %+v", r.Seed, r.Deltas)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := Run(ctx, Options{From: 5, To: 1}); err == nil {
		t.Error("expected error for inverted range")
	}

	results, err := Run(ctx, Options{From: 3, To: 3})
	if err != nil || len(results) != 0 {
		t.Errorf("empty range = %v, %v", results, err)
	}

	client := reasoning.NewMockClient().WithAvailable(false)
	if _, err := Run(ctx, Options{From: 0, To: 4, Client: client}); !errors.Is(err, reasoning.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
