package wind

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/weather"
)

// calmThresholdKt is the speed below which no runway preference is
// derived
const calmThresholdKt = 3

// Component is the wind breakdown for one runway end
type Component struct {
	RunwayEnd     string  `json:"runway_end"`
	HeadingDegMag float64 `json:"heading_deg_mag"`
	HeadwindKt    float64 `json:"headwind_kt"` // negative means tailwind
	CrosswindKt   float64 `json:"crosswind_kt"`
	CrosswindFrom string  `json:"crosswind_from,omitempty"` // "left" or "right"
}

// Report is the full runway wind picture for one airport
type Report struct {
	Calm            bool        `json:"calm"`
	Variable        bool        `json:"variable"`
	SpeedKt         int         `json:"speed_kt"`
	GustKt          *int        `json:"gust_kt,omitempty"`
	DirectionDegMag *float64    `json:"direction_deg_mag,omitempty"`
	Favored         string      `json:"favored,omitempty"`
	Components      []Component `json:"components,omitempty"`
}

// Compute derives runway wind components from a decoded METAR. METAR
// winds are true; runway headings are magnetic, so the wind direction
// is rotated by the local WMM declination before decomposition.
// Returns nil when the airport has no runways or the METAR carries no
// wind group.
func Compute(apt *airports.Airport, decoded *weather.Decoded, now time.Time) *Report {
	if apt == nil || decoded == nil || len(apt.Runways) == 0 {
		return nil
	}
	if decoded.WindSpeedKt == nil && !decoded.WindVariable {
		return nil
	}

	report := &Report{}
	if decoded.WindSpeedKt != nil {
		report.SpeedKt = *decoded.WindSpeedKt
	}
	report.GustKt = decoded.WindGustKt

	if report.SpeedKt < calmThresholdKt {
		report.Calm = true
		return report
	}
	if decoded.WindVariable || decoded.WindDirDeg == nil {
		report.Variable = true
		return report
	}

	variation := MagneticVariation(apt.Latitude, apt.Longitude, float64(apt.ElevationFt), now)
	dirMag := normalizeHeading(float64(*decoded.WindDirDeg) - variation)
	report.DirectionDegMag = &dirMag

	report.Components = Components(dirMag, float64(report.SpeedKt), apt.Runways)
	report.Favored = favoredEnd(report.Components)
	return report
}

// Components decomposes a magnetic wind into headwind and crosswind
// for every runway end
func Components(dirMagDeg, speedKt float64, runways []airports.Runway) []Component {
	var out []Component
	for _, rwy := range runways {
		for _, end := range runwayEnds(rwy) {
			delta := angleDiff(dirMagDeg, end.heading)
			rad := delta * math.Pi / 180

			comp := Component{
				RunwayEnd:     end.ident,
				HeadingDegMag: end.heading,
				HeadwindKt:    speedKt * math.Cos(rad),
				CrosswindKt:   math.Abs(speedKt * math.Sin(rad)),
			}
			if comp.CrosswindKt > 0.01 {
				if delta > 0 {
					comp.CrosswindFrom = "right"
				} else {
					comp.CrosswindFrom = "left"
				}
			}
			out = append(out, comp)
		}
	}
	return out
}

type runwayEnd struct {
	ident   string
	heading float64
}

// runwayEnds expands a runway pair like "15/33" into its two ends. The
// configured heading belongs to the first ident; the reciprocal end is
// offset 180 degrees.
func runwayEnds(rwy airports.Runway) []runwayEnd {
	idents := strings.Split(rwy.Ident, "/")
	ends := []runwayEnd{{ident: idents[0], heading: normalizeHeading(rwy.HeadingDegMag)}}
	if len(idents) > 1 {
		ends = append(ends, runwayEnd{
			ident:   idents[1],
			heading: normalizeHeading(rwy.HeadingDegMag + 180),
		})
	}
	return ends
}

// favoredEnd picks the end with the strongest headwind, ties going to
// the lower ident
func favoredEnd(components []Component) string {
	if len(components) == 0 {
		return ""
	}
	sorted := make([]Component, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].HeadwindKt != sorted[j].HeadwindKt {
			return sorted[i].HeadwindKt > sorted[j].HeadwindKt
		}
		return sorted[i].RunwayEnd < sorted[j].RunwayEnd
	})
	return sorted[0].RunwayEnd
}

// angleDiff returns the signed difference a-b normalized to (-180, 180]
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}

func normalizeHeading(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// MagneticVariation calculates the magnetic declination for a given
// position and time. Returns declination in degrees (+East, -West).
func MagneticVariation(lat, lon, elevFt float64, date time.Time) float64 {
	// Convert elevation to meters for WMM
	elevM := elevFt * 0.3048

	loc := egm96.NewLocationGeodetic(lat, lon, elevM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D()
}
