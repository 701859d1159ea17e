package weather

import "time"

// Flight categories in decreasing order of conditions
const (
	CategoryVFR     = "VFR"
	CategoryMVFR    = "MVFR"
	CategoryIFR     = "IFR"
	CategoryLIFR    = "LIFR"
	CategoryUnknown = "UNKN"
)

// Ceiling returns the lowest broken or overcast base (or vertical
// visibility), in feet AGL. Scattered and few layers do not constitute
// a ceiling.
func Ceiling(clouds []CloudLayer) *int {
	var ceiling *int
	for _, layer := range clouds {
		switch layer.Cover {
		case "BKN", "OVC", "VV":
			if layer.Base == nil {
				continue
			}
			if ceiling == nil || *layer.Base < *ceiling {
				base := *layer.Base
				ceiling = &base
			}
		}
	}
	return ceiling
}

// DeriveCategory computes the flight category from visibility and
// ceiling using the standard NWS thresholds. A missing value is treated
// as unlimited; when both are missing the category is unknown.
//
//	LIFR: ceiling below 500 ft or visibility below 1 SM
//	IFR:  ceiling 500 to below 1000 ft or visibility 1 to below 3 SM
//	MVFR: ceiling 1000 to 3000 ft or visibility 3 to 5 SM
//	VFR:  ceiling above 3000 ft and visibility above 5 SM
func DeriveCategory(visibilitySM *float64, ceilingFt *int) string {
	if visibilitySM == nil && ceilingFt == nil {
		return CategoryUnknown
	}

	vis := 99.0
	if visibilitySM != nil {
		vis = *visibilitySM
	}
	ceil := 99999
	if ceilingFt != nil {
		ceil = *ceilingFt
	}

	switch {
	case vis < 1 || ceil < 500:
		return CategoryLIFR
	case vis < 3 || ceil < 1000:
		return CategoryIFR
	case vis <= 5 || ceil <= 3000:
		return CategoryMVFR
	default:
		return CategoryVFR
	}
}

// hPaPerInHg converts between the API's hectopascal altimeter and the
// inches-of-mercury value US pilots expect
const hPaPerInHg = 33.8639

// Decode normalizes a METAR response into display-ready values, filling
// gaps from the raw observation text when the JSON feed omits fields.
func Decode(m *METARResponse) *Decoded {
	if m == nil {
		return nil
	}

	d := &Decoded{
		WindDirDeg:     m.Wdir.Degrees,
		WindVariable:   m.Wdir.Variable,
		WindSpeedKt:    m.Wspd,
		WindGustKt:     m.Wgst,
		VisibilitySM:   m.Visib.SM,
		VisibilityPlus: m.Visib.Unbounded,
		TempC:          m.Temp,
		DewpointC:      m.Dewp,
		Clouds:         m.Clouds,
		WxString:       m.WxString,
	}
	if m.ObsTime > 0 {
		d.ObsTime = time.Unix(m.ObsTime, 0).UTC()
	}

	if m.Altim != nil {
		inHg := *m.Altim
		// The feed reports hectopascals; accept inHg from custom sources
		if inHg > 400 {
			inHg = inHg / hPaPerInHg
		}
		rounded := float64(int(inHg*100+0.5)) / 100
		d.AltimeterInHg = &rounded
	}

	// Fall back to the raw text for anything the feed left out
	if raw := ParseRawMETAR(m.RawOb); raw != nil {
		if d.ObsTime.IsZero() {
			d.ObsTime = raw.ObsTime
		}
		if d.WindDirDeg == nil && !d.WindVariable {
			d.WindDirDeg = raw.WindDirDeg
			d.WindVariable = raw.WindVariable
		}
		if d.WindSpeedKt == nil {
			d.WindSpeedKt = raw.WindSpeedKt
		}
		if d.WindGustKt == nil {
			d.WindGustKt = raw.WindGustKt
		}
		if d.VisibilitySM == nil {
			d.VisibilitySM = raw.VisibilitySM
			d.VisibilityPlus = raw.VisibilityPlus
		}
		if d.TempC == nil {
			d.TempC = raw.TempC
		}
		if d.DewpointC == nil {
			d.DewpointC = raw.DewpointC
		}
		if d.AltimeterInHg == nil {
			d.AltimeterInHg = raw.AltimeterInHg
		}
		if len(d.Clouds) == 0 {
			d.Clouds = raw.Clouds
		}
	}

	d.CeilingFt = Ceiling(d.Clouds)
	d.FlightCategory = DeriveCategory(d.VisibilitySM, d.CeilingFt)
	return d
}
