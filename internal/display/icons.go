package display

// LaMetric icon identifiers ("i" = static, "a" = animated).
const (
	IconVehicle     = "i7087"
	IconRange       = "i5470"
	IconMilesAdded  = "i120"
	IconChargeRate  = "i5768"
	IconTimeToFull  = "i1820"
	IconBatteryIdle = "i389"

	IconCharging0to25   = "a7120"
	IconCharging25to50  = "a7121"
	IconCharging50to75  = "a7122"
	IconCharging75to95  = "a7123"
	IconCharging95to100 = "a7124"
)

// chargingTiers lists the lower bound of each band in ascending order.
var chargingTiers = []struct {
	from float64
	icon string
}{
	{0, IconCharging0to25},
	{25, IconCharging25to50},
	{50, IconCharging50to75},
	{75, IconCharging75to95},
	{95, IconCharging95to100},
}

// ResolveIcon picks the battery icon for a level in percent. When not
// charging the idle icon is returned regardless of level. Bands include
// their lower bound and exclude their upper bound, except [95,100].
// Out-of-range levels are clamped so every input maps to an icon.
func ResolveIcon(level float64, charging bool) string {
	if !charging {
		return IconBatteryIdle
	}
	icon := chargingTiers[0].icon
	for _, tier := range chargingTiers {
		if level >= tier.from {
			icon = tier.icon
		}
	}
	return icon
}
