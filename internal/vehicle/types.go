package vehicle

import "strings"

// State is the reachability of the vehicle as reported by the wake_up endpoint.
type State int

const (
	StateUnknown State = iota
	StateAsleep
	StateWaking
	StateOnline
)

// String returns the lower-case name used by the owner API and in logs.
func (s State) String() string {
	switch s {
	case StateAsleep:
		return "asleep"
	case StateWaking:
		return "waking"
	case StateOnline:
		return "online"
	default:
		return "unknown"
	}
}

// ParseState maps the raw response.state string to a State. "offline" is
// treated as asleep: the car is not reachable yet and another wake request
// is the only way forward.
func ParseState(raw string) State {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "online":
		return StateOnline
	case "asleep", "offline":
		return StateAsleep
	case "waking":
		return StateWaking
	default:
		return StateUnknown
	}
}

// ChargeTelemetry is the subset of the charge_state response used for display.
// Values are immutable once fetched and scoped to a single run.
type ChargeTelemetry struct {
	BatteryLevel          float64 `json:"battery_level"`            // 0-100 %
	BatteryRange          float64 `json:"battery_range"`            // miles
	ChargeRate            float64 `json:"charge_rate"`              // mph, -1 when not charging
	ChargeMilesAddedIdeal float64 `json:"charge_miles_added_ideal"` // miles
	TimeToFullCharge      float64 `json:"time_to_full_charge"`      // hours
}

type wakeResponse struct {
	Response *struct {
		State string `json:"state"`
	} `json:"response"`
}

type chargeStateResponse struct {
	Response *ChargeTelemetry `json:"response"`
}
