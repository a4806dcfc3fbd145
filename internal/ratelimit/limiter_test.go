package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock only moves when advance is called.
func fakeClock(rate float64, burst int) (*Limiter, func(time.Duration)) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(rate, burst)
	l.nowFunc = func() time.Time { return now }
	return l, func(d time.Duration) { now = now.Add(d) }
}

func TestAllow_Burst(t *testing.T) {
	l, _ := fakeClock(1.0, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d rejected inside the burst", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request after the burst was allowed")
	}
}

func TestAllow_Refill(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		burst   int
		use     int
		wait    time.Duration
		allowed int
	}{
		{"full refill", 10, 2, 2, 200 * time.Millisecond, 2},
		{"partial refill", 2, 5, 3, 250 * time.Millisecond, 2},
		{"capped at burst", 100, 3, 3, 10 * time.Second, 3},
		{"zero rate never refills", 0, 2, 2, time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, advance := fakeClock(tt.rate, tt.burst)
			for i := 0; i < tt.use; i++ {
				l.Allow("k")
			}
			advance(tt.wait)

			got := 0
			for l.Allow("k") {
				got++
				if got > tt.burst {
					break
				}
			}
			if got != tt.allowed {
				t.Errorf("allowed %d after waiting %v, want %d", got, tt.wait, tt.allowed)
			}
		})
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l, _ := fakeClock(1.0, 1)

	l.Allow("a")
	if l.Allow("a") {
		t.Error("key a should be exhausted")
	}
	if !l.Allow("b") {
		t.Error("key b has its own bucket")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := fakeClock(1000, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The clock is frozen, so exactly the burst gets through.
	if allowed != 100 {
		t.Errorf("allowed %d, want 100", allowed)
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()

	tests := []struct {
		tool  string
		burst int
	}{
		{"generate_event", 20},
		{"apply_mutations", 20},
		{"project_kpis", 20},
		{"session_state", 20},
		{"session_next_event", 3},
		{"session_accept_recommendations", 5},
		{"session_reset", 5},
	}
	for _, tt := range tests {
		l, ok := limiters[tt.tool]
		if !ok {
			t.Errorf("no limiter for %s", tt.tool)
			continue
		}
		if l.burst != tt.burst {
			t.Errorf("%s burst = %d, want %d", tt.tool, l.burst, tt.burst)
		}
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := ToolLimiters{"slow": NewLimiter(0, 1)}

	if err := CheckLimit(limiters, "unlisted"); err != nil {
		t.Errorf("unlisted tool: %v", err)
	}
	if err := CheckLimit(limiters, "slow"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := CheckLimit(limiters, "slow")
	if !errors.Is(err, ErrLimited) {
		t.Errorf("second call = %v, want ErrLimited", err)
	}
	if err := CheckLimit(nil, "slow"); err != nil {
		t.Errorf("nil limiters: %v", err)
	}
}
