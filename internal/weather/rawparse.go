package weather

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reWind    = regexp.MustCompile(`\b(VRB|\d{3})(\d{2,3})(?:G(\d{2,3}))?KT\b`)
	reVis     = regexp.MustCompile(`\b(P)?(\d{1,2})?(?: )?(M)?(\d/\d{1,2})?SM\b`)
	reTempDew = regexp.MustCompile(`\s(M)?(\d{2})/(M)?(\d{2})\b`)
	reAltimA  = regexp.MustCompile(`\bA(\d{4})\b`)
	reAltimQ  = regexp.MustCompile(`\bQ(\d{4})\b`)
	reCloud   = regexp.MustCompile(`\b(FEW|SCT|BKN|OVC|VV)(\d{3})\b`)
	reObsTime = regexp.MustCompile(`\b(\d{2})(\d{2})(\d{2})Z\b`)
	reTGroup  = regexp.MustCompile(`T([01])(\d{3})([01])(\d{3})`)
)

// ParseRawMETAR extracts wind, visibility, temperature, altimeter and
// cloud groups from a raw METAR string. Used for custom weather sources
// that serve plain text, and as a fallback when the JSON feed omits
// fields. Returns nil for an empty string.
func ParseRawMETAR(raw string) *Decoded {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// Ignore the remarks section for everything except the T-group
	body := raw
	if i := strings.Index(raw, " RMK"); i > 0 {
		body = raw[:i]
	}

	d := &Decoded{}

	if m := reObsTime.FindStringSubmatch(body); len(m) == 4 {
		day, _ := strconv.Atoi(m[1])
		hour, _ := strconv.Atoi(m[2])
		min, _ := strconv.Atoi(m[3])
		d.ObsTime = observationTime(day, hour, min, time.Now().UTC())
	}

	if m := reWind.FindStringSubmatch(body); len(m) > 0 {
		if m[1] == "VRB" {
			d.WindVariable = true
		} else {
			dir, _ := strconv.Atoi(m[1])
			d.WindDirDeg = &dir
		}
		spd, _ := strconv.Atoi(m[2])
		d.WindSpeedKt = &spd
		if m[3] != "" {
			gust, _ := strconv.Atoi(m[3])
			d.WindGustKt = &gust
		}
	}

	if m := reVis.FindStringSubmatch(body); len(m) > 0 && (m[2] != "" || m[4] != "") {
		vis := 0.0
		if m[2] != "" {
			whole, _ := strconv.ParseFloat(m[2], 64)
			vis = whole
		}
		if m[4] != "" {
			// "M1/4SM" means less than a quarter; report the bound itself
			if f, ok := parseVisibilityValue(m[4]); ok {
				vis += f
			}
		}
		d.VisibilitySM = &vis
		if m[1] == "P" {
			d.VisibilityPlus = true
		}
	}

	// Prefer the high precision RMK T-group when present
	if m := reTGroup.FindStringSubmatch(raw); len(m) == 5 {
		temp := tGroupValue(m[1], m[2])
		dew := tGroupValue(m[3], m[4])
		d.TempC = &temp
		d.DewpointC = &dew
	} else if m := reTempDew.FindStringSubmatch(body); len(m) == 5 {
		temp, _ := strconv.ParseFloat(m[2], 64)
		if m[1] == "M" {
			temp = -temp
		}
		dew, _ := strconv.ParseFloat(m[4], 64)
		if m[3] == "M" {
			dew = -dew
		}
		d.TempC = &temp
		d.DewpointC = &dew
	}

	if m := reAltimA.FindStringSubmatch(body); len(m) == 2 {
		hundredths, _ := strconv.ParseFloat(m[1], 64)
		inHg := hundredths / 100
		d.AltimeterInHg = &inHg
	} else if m := reAltimQ.FindStringSubmatch(body); len(m) == 2 {
		hPa, _ := strconv.ParseFloat(m[1], 64)
		inHg := float64(int(hPa/hPaPerInHg*100+0.5)) / 100
		d.AltimeterInHg = &inHg
	}

	for _, m := range reCloud.FindAllStringSubmatch(body, -1) {
		hundreds, _ := strconv.Atoi(m[2])
		base := hundreds * 100
		d.Clouds = append(d.Clouds, CloudLayer{Cover: m[1], Base: &base})
	}

	d.CeilingFt = Ceiling(d.Clouds)
	d.FlightCategory = DeriveCategory(d.VisibilitySM, d.CeilingFt)
	return d
}

// tGroupValue decodes one half of a RMK T-group: sign digit then
// temperature in tenths of a degree
func tGroupValue(sign, tenths string) float64 {
	val, _ := strconv.ParseFloat(tenths, 64)
	val = val / 10
	if sign == "1" {
		val = -val
	}
	return val
}

// observationTime resolves a METAR day/hour/minute group against a
// reference time, handling observations from the end of the previous
// month.
func observationTime(day, hour, min int, ref time.Time) time.Time {
	t := time.Date(ref.Year(), ref.Month(), day, hour, min, 0, 0, time.UTC)
	// A day-of-month ahead of the reference means last month's report
	if t.After(ref.Add(24 * time.Hour)) {
		t = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, -1, 0)
		t = time.Date(t.Year(), t.Month(), day, hour, min, 0, 0, time.UTC)
	}
	return t
}
