package display

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveIcon_Boundaries(t *testing.T) {
	cases := []struct {
		level float64
		want  string
	}{
		{0, IconCharging0to25},
		{24, IconCharging0to25},
		{24.99, IconCharging0to25},
		{25, IconCharging25to50},
		{49, IconCharging25to50},
		{50, IconCharging50to75},
		{74, IconCharging50to75},
		{75, IconCharging75to95},
		{94, IconCharging75to95},
		{95, IconCharging95to100},
		{100, IconCharging95to100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveIcon(tc.level, true), "level %v", tc.level)
	}
}

func TestResolveIcon_Idle(t *testing.T) {
	for _, level := range []float64{0, 24, 25, 49, 50, 74, 75, 94, 95, 100} {
		assert.Equal(t, IconBatteryIdle, ResolveIcon(level, false), "level %v", level)
	}
}

func TestResolveIcon_Total(t *testing.T) {
	known := map[string]bool{IconBatteryIdle: true}
	for _, tier := range chargingTiers {
		known[tier.icon] = true
	}

	for level := 0; level <= 100; level++ {
		for _, charging := range []bool{true, false} {
			assert.True(t, known[ResolveIcon(float64(level), charging)], "level %d charging %v", level, charging)
		}
	}

	// clamped
	assert.Equal(t, IconCharging0to25, ResolveIcon(-3, true))
	assert.Equal(t, IconCharging0to25, ResolveIcon(math.NaN(), true))
	assert.Equal(t, IconCharging95to100, ResolveIcon(130, true))
}
