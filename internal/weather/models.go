package weather

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// METARResponse matches one element of the aviationweather.gov
// /api/data/metar?format=json response array
type METARResponse struct {
	MetarID     int64        `json:"metar_id,omitempty"`
	ICAOId      string       `json:"icaoId"`
	ReceiptTime string       `json:"receiptTime,omitempty"`
	ObsTime     int64        `json:"obsTime"` // unix seconds
	ReportTime  string       `json:"reportTime,omitempty"`
	Temp        *float64     `json:"temp"`
	Dewp        *float64     `json:"dewp"`
	Wdir        WindDir      `json:"wdir"`
	Wspd        *int         `json:"wspd"`
	Wgst        *int         `json:"wgst"`
	Visib       Visibility   `json:"visib"`
	Altim       *float64     `json:"altim"` // hectopascals
	Slp         *float64     `json:"slp"`
	WxString    string       `json:"wxString,omitempty"`
	Clouds      []CloudLayer `json:"clouds,omitempty"`
	RawOb       string       `json:"rawOb"`
	Name        string       `json:"name,omitempty"`
	Lat         float64      `json:"lat,omitempty"`
	Lon         float64      `json:"lon,omitempty"`
	Elev        float64      `json:"elev,omitempty"`
}

// TAFResponse matches one element of the aviationweather.gov
// /api/data/taf?format=json response array. Forecast groups are kept
// as raw JSON since pages only render the raw TAF text.
type TAFResponse struct {
	TafID     int64           `json:"tafId,omitempty"`
	ICAOId    string          `json:"icaoId"`
	IssueTime string          `json:"issueTime,omitempty"`
	ValidFrom int64           `json:"validTimeFrom,omitempty"`
	ValidTo   int64           `json:"validTimeTo,omitempty"`
	RawTAF    string          `json:"rawTAF"`
	Fcsts     json.RawMessage `json:"fcsts,omitempty"`
}

// CloudLayer is one cloud group in a METAR
type CloudLayer struct {
	Cover string `json:"cover"`          // SKC, CLR, FEW, SCT, BKN, OVC, VV
	Base  *int   `json:"base,omitempty"` // feet AGL, nil for SKC/CLR
}

// WindDir is a METAR wind direction, which the API reports either as a
// number of degrees or the string "VRB"
type WindDir struct {
	Degrees  *int
	Variable bool
}

func (d *WindDir) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.EqualFold(s, "VRB") {
			d.Variable = true
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil // unknown direction token, leave unset
		}
		d.Degrees = &n
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	d.Degrees = &n
	return nil
}

func (d WindDir) MarshalJSON() ([]byte, error) {
	if d.Variable {
		return []byte(`"VRB"`), nil
	}
	if d.Degrees == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*d.Degrees)
}

// Visibility is a METAR visibility, reported either as statute miles or
// a string like "10+" or "1 1/2"
type Visibility struct {
	SM        *float64
	Unbounded bool // reported as "N+", at least N statute miles
}

func (v *Visibility) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if strings.HasSuffix(s, "+") {
			v.Unbounded = true
			s = strings.TrimSuffix(s, "+")
		}
		if f, ok := parseVisibilityValue(s); ok {
			v.SM = &f
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	v.SM = &f
	return nil
}

func (v Visibility) MarshalJSON() ([]byte, error) {
	if v.SM == nil {
		return []byte("null"), nil
	}
	if v.Unbounded {
		return json.Marshal(strconv.FormatFloat(*v.SM, 'f', -1, 64) + "+")
	}
	return json.Marshal(*v.SM)
}

// parseVisibilityValue handles "10", "1.5" and fraction forms like
// "1/2" and "1 1/2"
func parseVisibilityValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	whole := 0.0
	if i := strings.IndexByte(s, ' '); i > 0 {
		w, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, false
		}
		whole = w
		s = strings.TrimSpace(s[i+1:])
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return whole + n/d, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return whole + f, true
}

// Decoded holds display-ready values derived from a METAR, with raw-text
// fallbacks applied for fields the JSON feed omits
type Decoded struct {
	ObsTime        time.Time    `json:"obs_time"`
	FlightCategory string       `json:"flight_category"`
	WindDirDeg     *int         `json:"wind_dir_deg,omitempty"`
	WindVariable   bool         `json:"wind_variable,omitempty"`
	WindSpeedKt    *int         `json:"wind_speed_kt,omitempty"`
	WindGustKt     *int         `json:"wind_gust_kt,omitempty"`
	VisibilitySM   *float64     `json:"visibility_sm,omitempty"`
	VisibilityPlus bool         `json:"visibility_plus,omitempty"`
	TempC          *float64     `json:"temp_c,omitempty"`
	DewpointC      *float64     `json:"dewpoint_c,omitempty"`
	AltimeterInHg  *float64     `json:"altimeter_inhg,omitempty"`
	CeilingFt      *int         `json:"ceiling_ft,omitempty"`
	Clouds         []CloudLayer `json:"clouds,omitempty"`
	WxString       string       `json:"wx_string,omitempty"`
}

// Snapshot is the complete weather picture for one airport
type Snapshot struct {
	Ident       string         `json:"ident"`
	Station     string         `json:"station"`
	METAR       *METARResponse `json:"metar,omitempty"`
	TAF         *TAFResponse   `json:"taf,omitempty"`
	Decoded     *Decoded       `json:"decoded,omitempty"`
	LastUpdated time.Time      `json:"last_updated"`
	FetchErrors []string       `json:"fetch_errors,omitempty"`
}

// Stale reports whether the snapshot is older than the given age
func (s *Snapshot) Stale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdated) > maxAge
}

// Observation is one decoded METAR kept for trend history
type Observation struct {
	ID             int64     `json:"id"`
	Ident          string    `json:"ident"`
	ObsTime        time.Time `json:"obs_time"`
	RawText        string    `json:"raw_text"`
	FlightCategory string    `json:"flight_category"`
	WindDirDeg     *int      `json:"wind_dir_deg,omitempty"`
	WindSpeedKt    *int      `json:"wind_speed_kt,omitempty"`
	WindGustKt     *int      `json:"wind_gust_kt,omitempty"`
	VisibilitySM   *float64  `json:"visibility_sm,omitempty"`
	TempC          *float64  `json:"temp_c,omitempty"`
	DewpointC      *float64  `json:"dewpoint_c,omitempty"`
	AltimeterInHg  *float64  `json:"altimeter_inhg,omitempty"`
	CeilingFt      *int      `json:"ceiling_ft,omitempty"`
}

// WeatherType represents the type of weather data
type WeatherType string

const (
	WeatherTypeMETAR WeatherType = "metar"
	WeatherTypeTAF   WeatherType = "taf"
)

// FetchResult represents the result of fetching weather data
type FetchResult struct {
	Type WeatherType
	Data any
	Err  error
}

// ObservationFromSnapshot builds the history record for a snapshot, or
// nil when the snapshot has no decoded METAR
func ObservationFromSnapshot(snap *Snapshot) *Observation {
	if snap == nil || snap.Decoded == nil || snap.METAR == nil {
		return nil
	}
	return &Observation{
		Ident:          snap.Ident,
		ObsTime:        snap.Decoded.ObsTime,
		RawText:        snap.METAR.RawOb,
		FlightCategory: snap.Decoded.FlightCategory,
		WindDirDeg:     snap.Decoded.WindDirDeg,
		WindSpeedKt:    snap.Decoded.WindSpeedKt,
		WindGustKt:     snap.Decoded.WindGustKt,
		VisibilitySM:   snap.Decoded.VisibilitySM,
		TempC:          snap.Decoded.TempC,
		DewpointC:      snap.Decoded.DewpointC,
		AltimeterInHg:  snap.Decoded.AltimeterInHg,
		CeilingFt:      snap.Decoded.CeilingFt,
	}
}
