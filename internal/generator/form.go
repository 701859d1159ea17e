package generator

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aviationwx/aviationwx/internal/airports"
)

// Form holds the raw submitted values of the config generator. Fields
// stay strings so invalid input can be echoed back on the form.
type Form struct {
	Ident       string
	Name        string
	City        string
	State       string
	ICAO        string
	IATA        string
	FAA         string
	Latitude    string
	Longitude   string
	ElevationFt string
	Timezone    string

	WxType    string
	WxStation string
	WxURL     string

	Webcams     []WebcamRow
	Runways     []RunwayRow
	Frequencies []FrequencyRow
	Partners    []PartnerRow
	Links       []LinkRow

	Fuel100LL    bool
	FuelJetA     bool
	FuelMogas    bool
	Repairs      bool
	FlightSchool bool
	CourtesyCar  bool
	Food         string

	Published bool
}

// WebcamRow is one camera row of the form
type WebcamRow struct {
	ID       string
	Name     string
	Mode     string
	URL      string
	MAC      string
	Interval string
}

// RunwayRow is one runway row of the form
type RunwayRow struct {
	Ident   string
	Heading string
	Length  string
	Width   string
	Surface string
	Lighted bool
}

// FrequencyRow is one frequency row of the form
type FrequencyRow struct {
	Type string
	Name string
	MHz  string
}

// PartnerRow is one partner row of the form
type PartnerRow struct {
	Name string
	URL  string
	Logo string
}

// LinkRow is one link row of the form
type LinkRow struct {
	Label string
	URL   string
}

// NewForm returns the blank form rendered on GET, with one empty row
// per repeatable section
func NewForm() *Form {
	return &Form{
		WxType:      airports.SourceMETAR,
		Published:   true,
		Webcams:     []WebcamRow{{Mode: airports.ModePull}},
		Runways:     []RunwayRow{{}},
		Frequencies: []FrequencyRow{{Type: "ctaf"}},
		Partners:    []PartnerRow{{}},
		Links:       []LinkRow{{}},
	}
}

// ParseForm reads a submitted generator form. Repeated sections use
// array-style field names (cam_id[], rwy_ident[], ...) with the rows
// aligned by index; fully empty rows are dropped.
func ParseForm(v url.Values) *Form {
	f := &Form{
		Ident:       strings.TrimSpace(v.Get("ident")),
		Name:        strings.TrimSpace(v.Get("name")),
		City:        strings.TrimSpace(v.Get("city")),
		State:       strings.TrimSpace(v.Get("state")),
		ICAO:        strings.TrimSpace(v.Get("icao")),
		IATA:        strings.TrimSpace(v.Get("iata")),
		FAA:         strings.TrimSpace(v.Get("faa")),
		Latitude:    strings.TrimSpace(v.Get("lat")),
		Longitude:   strings.TrimSpace(v.Get("lon")),
		ElevationFt: strings.TrimSpace(v.Get("elevation_ft")),
		Timezone:    strings.TrimSpace(v.Get("timezone")),

		WxType:    v.Get("wx_type"),
		WxStation: strings.TrimSpace(v.Get("wx_station")),
		WxURL:     strings.TrimSpace(v.Get("wx_url")),

		Food: strings.TrimSpace(v.Get("food")),

		Fuel100LL:    checked(v, "fuel_100ll"),
		FuelJetA:     checked(v, "fuel_jeta"),
		FuelMogas:    checked(v, "fuel_mogas"),
		Repairs:      checked(v, "repairs"),
		FlightSchool: checked(v, "flight_school"),
		CourtesyCar:  checked(v, "courtesy_car"),
		Published:    checked(v, "published"),
	}
	if f.WxType == "" {
		f.WxType = airports.SourceMETAR
	}

	f.Webcams = parseWebcamRows(v)
	f.Runways = parseRunwayRows(v)
	f.Frequencies = parseFrequencyRows(v)
	f.Partners = parsePartnerRows(v)
	f.Links = parseLinkRows(v)
	return f
}

func parseWebcamRows(v url.Values) []WebcamRow {
	n := maxLen(v, "cam_id[]", "cam_name[]", "cam_url[]", "cam_mac[]", "cam_interval[]")
	var rows []WebcamRow
	for i := 0; i < n; i++ {
		row := WebcamRow{
			ID:       rowValue(v, "cam_id[]", i),
			Name:     rowValue(v, "cam_name[]", i),
			Mode:     rowValue(v, "cam_mode[]", i),
			URL:      rowValue(v, "cam_url[]", i),
			MAC:      rowValue(v, "cam_mac[]", i),
			Interval: rowValue(v, "cam_interval[]", i),
		}
		if row.ID == "" && row.Name == "" && row.URL == "" && row.MAC == "" && row.Interval == "" {
			continue
		}
		if row.Mode == "" {
			row.Mode = airports.ModePull
		}
		rows = append(rows, row)
	}
	return rows
}

func parseRunwayRows(v url.Values) []RunwayRow {
	n := maxLen(v, "rwy_ident[]", "rwy_heading[]", "rwy_length[]", "rwy_width[]", "rwy_surface[]")
	var rows []RunwayRow
	for i := 0; i < n; i++ {
		row := RunwayRow{
			Ident:   rowValue(v, "rwy_ident[]", i),
			Heading: rowValue(v, "rwy_heading[]", i),
			Length:  rowValue(v, "rwy_length[]", i),
			Width:   rowValue(v, "rwy_width[]", i),
			Surface: rowValue(v, "rwy_surface[]", i),
			Lighted: rowValue(v, "rwy_lighted[]", i) != "",
		}
		if row.Ident == "" && row.Heading == "" && row.Length == "" && row.Width == "" && row.Surface == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func parseFrequencyRows(v url.Values) []FrequencyRow {
	n := maxLen(v, "freq_name[]", "freq_mhz[]")
	var rows []FrequencyRow
	for i := 0; i < n; i++ {
		row := FrequencyRow{
			Type: rowValue(v, "freq_type[]", i),
			Name: rowValue(v, "freq_name[]", i),
			MHz:  rowValue(v, "freq_mhz[]", i),
		}
		if row.Name == "" && row.MHz == "" {
			continue
		}
		if row.Type == "" {
			row.Type = "other"
		}
		rows = append(rows, row)
	}
	return rows
}

func parsePartnerRows(v url.Values) []PartnerRow {
	n := maxLen(v, "partner_name[]", "partner_url[]", "partner_logo[]")
	var rows []PartnerRow
	for i := 0; i < n; i++ {
		row := PartnerRow{
			Name: rowValue(v, "partner_name[]", i),
			URL:  rowValue(v, "partner_url[]", i),
			Logo: rowValue(v, "partner_logo[]", i),
		}
		if row.Name == "" && row.URL == "" && row.Logo == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func parseLinkRows(v url.Values) []LinkRow {
	n := maxLen(v, "link_label[]", "link_url[]")
	var rows []LinkRow
	for i := 0; i < n; i++ {
		row := LinkRow{
			Label: rowValue(v, "link_label[]", i),
			URL:   rowValue(v, "link_url[]", i),
		}
		if row.Label == "" && row.URL == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func maxLen(v url.Values, keys ...string) int {
	n := 0
	for _, key := range keys {
		if len(v[key]) > n {
			n = len(v[key])
		}
	}
	return n
}

func rowValue(v url.Values, key string, i int) string {
	vals := v[key]
	if i >= len(vals) {
		return ""
	}
	return strings.TrimSpace(vals[i])
}

func checked(v url.Values, key string) bool {
	switch strings.ToLower(v.Get(key)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// builder collects numeric conversion errors while assembling a record
type builder struct {
	msgs []string
}

func (b *builder) requiredFloat(s, label string) float64 {
	if s == "" {
		b.msgs = append(b.msgs, fmt.Sprintf("%s is required", label))
		return 0
	}
	return b.float(s, label)
}

func (b *builder) float(s, label string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		b.msgs = append(b.msgs, fmt.Sprintf("%s must be a number", label))
		return 0
	}
	return f
}

func (b *builder) int(s, label string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		b.msgs = append(b.msgs, fmt.Sprintf("%s must be a whole number", label))
		return 0
	}
	return n
}

// Build converts the form into a registry record, collecting every
// problem found. The returned messages are user-facing; an empty slice
// means the record is valid and ready to serialize.
func (f *Form) Build() (*airports.Airport, []string) {
	b := &builder{}

	apt := &airports.Airport{
		Ident:     strings.ToLower(f.Ident),
		Name:      f.Name,
		City:      f.City,
		State:     f.State,
		ICAO:      strings.ToUpper(f.ICAO),
		IATA:      strings.ToUpper(f.IATA),
		FAA:       strings.ToUpper(f.FAA),
		Timezone:  f.Timezone,
		Published: f.Published,
		WeatherSource: airports.WeatherSource{
			Type:    f.WxType,
			Station: strings.ToUpper(f.WxStation),
			URL:     f.WxURL,
		},
	}

	if !airports.ValidIdent(apt.Ident) {
		b.msgs = append(b.msgs, `URL ident must be 3 or 4 lowercase letters or digits (e.g. "kspb")`)
	}

	apt.Latitude = b.requiredFloat(f.Latitude, "Latitude")
	apt.Longitude = b.requiredFloat(f.Longitude, "Longitude")
	apt.ElevationFt = b.int(f.ElevationFt, "Elevation (ft)")

	for i, row := range f.Webcams {
		apt.Webcams = append(apt.Webcams, airports.Webcam{
			ID:              strings.ToLower(row.ID),
			Name:            row.Name,
			Mode:            row.Mode,
			URL:             row.URL,
			MAC:             strings.ToLower(row.MAC),
			IntervalSeconds: b.int(row.Interval, fmt.Sprintf("Webcam %d capture interval", i+1)),
		})
	}

	for i, row := range f.Runways {
		apt.Runways = append(apt.Runways, airports.Runway{
			Ident:         strings.ToUpper(row.Ident),
			HeadingDegMag: b.requiredFloat(row.Heading, fmt.Sprintf("Runway %d magnetic heading", i+1)),
			LengthFt:      b.int(row.Length, fmt.Sprintf("Runway %d length (ft)", i+1)),
			WidthFt:       b.int(row.Width, fmt.Sprintf("Runway %d width (ft)", i+1)),
			Surface:       row.Surface,
			Lighted:       row.Lighted,
		})
	}

	for i, row := range f.Frequencies {
		apt.Frequencies = append(apt.Frequencies, airports.Frequency{
			Type: row.Type,
			Name: row.Name,
			MHz:  b.requiredFloat(row.MHz, fmt.Sprintf("Frequency %d MHz", i+1)),
		})
	}

	for _, row := range f.Partners {
		apt.Partners = append(apt.Partners, airports.Partner{
			Name: row.Name,
			URL:  row.URL,
			Logo: row.Logo,
		})
	}

	for _, row := range f.Links {
		apt.Links = append(apt.Links, airports.Link{
			Label: row.Label,
			URL:   row.URL,
		})
	}

	apt.Services = airports.Services{
		Repairs:      f.Repairs,
		FlightSchool: f.FlightSchool,
		CourtesyCar:  f.CourtesyCar,
		Food:         f.Food,
	}
	if f.Fuel100LL {
		apt.Services.Fuel = append(apt.Services.Fuel, "100LL")
	}
	if f.FuelJetA {
		apt.Services.Fuel = append(apt.Services.Fuel, "Jet A")
	}
	if f.FuelMogas {
		apt.Services.Fuel = append(apt.Services.Fuel, "MoGas")
	}

	b.msgs = append(b.msgs, airports.ValidateAirport(apt)...)
	return apt, b.msgs
}
