// Package events generates reproducible world disruption events from an
// integer seed.
//
// Everything except the timestamp is a pure function of the seed: the event
// type cycles through a fixed enumeration by seed modulo six, and severity
// and time horizon come from a sine-based hash of a seed transform.
package events

import (
	"fmt"
	"math"
	"time"

	"github.com/nvandessel/supplyshock/internal/topology"
)

// Type is the kind of world event.
type Type string

const (
	PortStrike       Type = "PORT_STRIKE"
	ExtremeWeather   Type = "EXTREME_WEATHER"
	BorderDelay      Type = "BORDER_DELAY"
	EnergyPriceSpike Type = "ENERGY_PRICE_SPIKE"
	Sanctions        Type = "SANCTIONS"
	CanalBlockage    Type = "CANAL_BLOCKAGE"
)

// Severity grades how hard an event hits.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Horizon is how soon an event takes effect.
type Horizon string

const (
	HorizonImmediate Horizon = "IMMEDIATE"
	HorizonOneToTwo  Horizon = "1_2_WEEKS"
)

// The order of these slices is part of the determinism contract.
var (
	eventTypes = []Type{PortStrike, ExtremeWeather, BorderDelay, EnergyPriceSpike, Sanctions, CanalBlockage}
	severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}
	horizons   = []Horizon{HorizonImmediate, HorizonOneToTwo}
)

// Types returns the event types in selection order.
func Types() []Type {
	out := make([]Type, len(eventTypes))
	copy(out, eventTypes)
	return out
}

// Range is an inclusive [min, max] integer range, encoded as a two-element
// JSON array.
type Range [2]int

// Min returns the lower bound.
func (r Range) Min() int { return r[0] }

// Max returns the upper bound.
func (r Range) Max() int { return r[1] }

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 { return float64(r[0]+r[1]) / 2 }

// ImpactRanges bounds the expected effect of an event.
type ImpactRanges struct {
	LeadTimeDeltaDays Range `json:"lead_time_delta_days" yaml:"lead_time_delta_days"`
	CapacityDeltaPct  Range `json:"capacity_delta_pct" yaml:"capacity_delta_pct"`
	CostDeltaPct      Range `json:"cost_delta_pct" yaml:"cost_delta_pct"`
}

// Logistics lists the transport modes and regional lanes an event touches.
type Logistics struct {
	Modes []topology.Mode `json:"modes" yaml:"modes"`
	Lanes []string        `json:"lanes" yaml:"lanes"`
}

// WorldEvent is a fully specified disruption scenario.
type WorldEvent struct {
	ID           string       `json:"id" yaml:"id"`
	Seed         int64        `json:"seed" yaml:"seed"`
	Timestamp    time.Time    `json:"timestamp" yaml:"timestamp"`
	Headline     string       `json:"headline" yaml:"headline"`
	EventType    Type         `json:"event_type" yaml:"event_type"`
	Regions      []string     `json:"regions" yaml:"regions"`
	Severity     Severity     `json:"severity" yaml:"severity"`
	TimeHorizon  Horizon      `json:"time_horizon" yaml:"time_horizon"`
	Logistics    Logistics    `json:"logistics" yaml:"logistics"`
	ImpactRanges ImpactRanges `json:"impact_ranges" yaml:"impact_ranges"`
	Facts        []string     `json:"facts" yaml:"facts"`
}

// Generate returns the event for seed, stamped with the current UTC time.
// It never fails; any int64 seed, including negative ones, is accepted.
func Generate(seed int64) WorldEvent {
	return GenerateAt(seed, time.Now().UTC())
}

// GenerateAt is Generate with an explicit timestamp.
func GenerateAt(seed int64, now time.Time) WorldEvent {
	eventType := eventTypes[mod(seed, len(eventTypes))]
	tpl := templates[eventType]

	return WorldEvent{
		ID:          FormatID(seed),
		Seed:        seed,
		Timestamp:   now,
		Headline:    tpl.headline,
		EventType:   eventType,
		Regions:     cloneStrings(tpl.regions),
		Severity:    severities[choice(float64(seed)*2, len(severities))],
		TimeHorizon: horizons[choice(float64(seed)*3, len(horizons))],
		Logistics: Logistics{
			Modes: append([]topology.Mode(nil), tpl.modes...),
			Lanes: cloneStrings(tpl.lanes),
		},
		ImpactRanges: tpl.ranges,
		Facts:        cloneStrings(tpl.facts),
	}
}

// FormatID returns the event id for a seed: EVT_ followed by the seed
// zero-padded to four digits.
func FormatID(seed int64) string {
	return fmt.Sprintf("EVT_%04d", seed)
}

// hash maps x to [0,1) via frac(sin(x) * 10000). The constant and the use of
// math.Sin must not change: generated severities depend on them bit for bit.
func hash(x float64) float64 {
	v := math.Sin(x) * 10000
	return v - math.Floor(v)
}

// choice picks an index in [0, n) from the hash of x.
func choice(x float64, n int) int {
	i := int(math.Floor(hash(x) * float64(n)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// mod is the Euclidean modulus, so negative seeds still land in [0, n).
func mod(seed int64, n int) int {
	m := seed % int64(n)
	if m < 0 {
		m += int64(n)
	}
	return int(m)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
