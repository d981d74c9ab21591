package display

import (
	"fmt"
	"math"

	"github.com/jkaberg/tesla-lametric/internal/vehicle"
)

// Frame is one text+icon screen of a LaMetric indicator app.
type Frame struct {
	Text  string `json:"text"`
	Icon  string `json:"icon"`
	Index int    `json:"index"`
}

// Payload is the body pushed to the LaMetric widget endpoint. It always
// holds at least one frame and frame order is significant.
type Payload struct {
	Frames []Frame `json:"frames"`
}

// Policy selects the frame layout and the charging detection rule.
type Policy string

const (
	// PolicyFixed always renders label, battery and range. The vehicle is
	// charging when charge_rate > 0, and charging only changes the battery icon.
	PolicyFixed Policy = "fixed"
	// PolicyExtended adds miles added, charge rate and time to full while
	// charging. The vehicle is charging whenever charge_rate != -1, so a
	// rate of exactly 0 counts as charging.
	PolicyExtended Policy = "extended"
)

// notChargingRate is the charge_rate sentinel reported by an idle vehicle.
const notChargingRate = -1.0

// ParsePolicy converts a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyFixed, PolicyExtended:
		return p, nil
	default:
		return "", fmt.Errorf("unknown display policy %q", s)
	}
}

// IsCharging applies the policy's charging rule to t.
func (p Policy) IsCharging(t vehicle.ChargeTelemetry) bool {
	if p == PolicyFixed {
		return t.ChargeRate > 0
	}
	return t.ChargeRate != notChargingRate
}

// Formatter turns charge telemetry into display frames. Format has no side
// effects and returns identical output for identical input.
type Formatter struct {
	Policy Policy
	Label  string
}

// NewFormatter creates a formatter; an empty label falls back to "Tesla".
func NewFormatter(policy Policy, label string) *Formatter {
	if label == "" {
		label = "Tesla"
	}
	return &Formatter{Policy: policy, Label: label}
}

// Format renders t as 3 frames, or 6 with PolicyExtended while charging.
func (f *Formatter) Format(t vehicle.ChargeTelemetry) Payload {
	charging := f.Policy.IsCharging(t)

	frames := []Frame{
		{Text: f.Label, Icon: IconVehicle},
		{Text: fmt.Sprintf("%d%%", round(t.BatteryLevel)), Icon: ResolveIcon(t.BatteryLevel, charging)},
		{Text: fmt.Sprintf("%d mi", round(t.BatteryRange)), Icon: IconRange},
	}

	if f.Policy == PolicyExtended && charging {
		frames = append(frames,
			Frame{Text: fmt.Sprintf("+%d mi", round(t.ChargeMilesAddedIdeal)), Icon: IconMilesAdded},
			Frame{Text: fmt.Sprintf("%d mph", round(t.ChargeRate)), Icon: IconChargeRate},
			Frame{Text: fmt.Sprintf("%d hours remaining.", round(t.TimeToFullCharge)), Icon: IconTimeToFull},
		)
	}

	for i := range frames {
		frames[i].Index = i
	}
	return Payload{Frames: frames}
}

// round rounds half away from zero.
func round(v float64) int64 {
	return int64(math.Round(v))
}
