package embed

import (
	"fmt"
	"math"

	"github.com/aviationwx/aviationwx/internal/weather"
)

const (
	mphPerKnot = 1.15078
	kmhPerKnot = 1.852
)

// ConvertSpeed converts a speed in knots to the requested display
// units, rounded to the nearest whole unit
func ConvertSpeed(kt int, units string) int {
	switch units {
	case UnitsMPH:
		return int(math.Round(float64(kt) * mphPerKnot))
	case UnitsKMH:
		return int(math.Round(float64(kt) * kmhPerKnot))
	default:
		return kt
	}
}

// SpeedLabel returns the display label for a speed unit
func SpeedLabel(units string) string {
	switch units {
	case UnitsMPH:
		return "mph"
	case UnitsKMH:
		return "km/h"
	default:
		return "kt"
	}
}

// ConvertTemp converts a Celsius temperature to the requested display
// units, rounded to one decimal place
func ConvertTemp(c float64, unit string) float64 {
	if unit == TempFahrenheit {
		return math.Round((c*9/5+32)*10) / 10
	}
	return math.Round(c*10) / 10
}

// TempLabel returns the display label for a temperature unit
func TempLabel(unit string) string {
	if unit == TempFahrenheit {
		return "°F"
	}
	return "°C"
}

// FormatWind renders a decoded wind group in the requested units, e.g.
// "270° 8 kt", "VRB 4 kt", "150° 15G25 kt" or "Calm"
func FormatWind(d *weather.Decoded, units string) string {
	if d == nil || d.WindSpeedKt == nil {
		return ""
	}
	if *d.WindSpeedKt == 0 {
		return "Calm"
	}

	speed := fmt.Sprintf("%d", ConvertSpeed(*d.WindSpeedKt, units))
	if d.WindGustKt != nil {
		speed = fmt.Sprintf("%sG%d", speed, ConvertSpeed(*d.WindGustKt, units))
	}

	dir := "VRB"
	if !d.WindVariable && d.WindDirDeg != nil {
		dir = fmt.Sprintf("%03d°", *d.WindDirDeg)
	}
	return fmt.Sprintf("%s %s %s", dir, speed, SpeedLabel(units))
}

// FormatTemp renders a decoded temperature in the requested units,
// e.g. "22°C" or "71.6°F"
func FormatTemp(d *weather.Decoded, unit string) string {
	if d == nil || d.TempC == nil {
		return ""
	}
	v := ConvertTemp(*d.TempC, unit)
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f%s", v, TempLabel(unit))
	}
	return fmt.Sprintf("%.1f%s", v, TempLabel(unit))
}
