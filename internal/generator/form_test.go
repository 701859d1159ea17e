package generator

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/aviationwx/aviationwx/internal/airports"
)

func validForm() url.Values {
	return url.Values{
		"ident":        {"kspb"},
		"name":         {"Scappoose Industrial Airpark"},
		"city":         {"Scappoose"},
		"state":        {"OR"},
		"icao":         {"kspb"},
		"lat":          {"45.771"},
		"lon":          {"-122.862"},
		"elevation_ft": {"58"},
		"timezone":     {"America/Los_Angeles"},

		"wx_type":    {"metar"},
		"wx_station": {"kspb"},

		"cam_id[]":       {"ramp"},
		"cam_name[]":     {"Ramp"},
		"cam_mode[]":     {"pull"},
		"cam_url[]":      {"https://cams.example.com/ramp.jpg"},
		"cam_mac[]":      {""},
		"cam_interval[]": {"60"},

		"rwy_ident[]":   {"15/33"},
		"rwy_heading[]": {"153"},
		"rwy_length[]":  {"5100"},
		"rwy_width[]":   {"100"},
		"rwy_surface[]": {"asphalt"},
		"rwy_lighted[]": {"1"},

		"freq_type[]": {"ctaf"},
		"freq_name[]": {"CTAF"},
		"freq_mhz[]":  {"122.8"},

		"fuel_100ll": {"on"},
		"food":       {"Barnstormer Cafe"},
		"published":  {"on"},
	}
}

func TestBuildValidForm(t *testing.T) {
	apt, msgs := ParseForm(validForm()).Build()
	if len(msgs) != 0 {
		t.Fatalf("expected no errors, got %v", msgs)
	}

	if apt.Ident != "kspb" || apt.ICAO != "KSPB" {
		t.Errorf("ident/icao = %q/%q", apt.Ident, apt.ICAO)
	}
	if apt.Latitude != 45.771 || apt.Longitude != -122.862 {
		t.Errorf("coords = %v/%v", apt.Latitude, apt.Longitude)
	}
	if len(apt.Webcams) != 1 || apt.Webcams[0].IntervalSeconds != 60 {
		t.Errorf("webcams = %+v", apt.Webcams)
	}
	if len(apt.Runways) != 1 || apt.Runways[0].HeadingDegMag != 153 || !apt.Runways[0].Lighted {
		t.Errorf("runways = %+v", apt.Runways)
	}
	if len(apt.Frequencies) != 1 || apt.Frequencies[0].MHz != 122.8 {
		t.Errorf("frequencies = %+v", apt.Frequencies)
	}
	if !reflect.DeepEqual(apt.Services.Fuel, []string{"100LL"}) || apt.Services.Food != "Barnstormer Cafe" {
		t.Errorf("services = %+v", apt.Services)
	}
	if !apt.Published {
		t.Error("published should be set")
	}
}

func TestSnippetRoundTrips(t *testing.T) {
	apt, msgs := ParseForm(validForm()).Build()
	if len(msgs) != 0 {
		t.Fatalf("expected no errors, got %v", msgs)
	}

	snippet, err := Snippet(apt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(snippet, `  "kspb": {`) {
		t.Fatalf("snippet should open with the ident key: %s", snippet)
	}

	var file struct {
		Airports map[string]*airports.Airport `json:"airports"`
	}
	doc := `{"airports": {` + strings.TrimSpace(snippet) + `}}`
	if err := json.Unmarshal([]byte(doc), &file); err != nil {
		t.Fatalf("snippet is not valid registry JSON: %v\n%s", err, doc)
	}

	got := file.Airports["kspb"]
	if got == nil {
		t.Fatal("snippet lost the ident key")
	}
	got.Ident = apt.Ident
	if !reflect.DeepEqual(got, apt) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", got, apt)
	}
}

func TestBuildCollectsErrors(t *testing.T) {
	v := url.Values{
		"ident":      {"KSPB!"},
		"lat":        {"91"},
		"lon":        {"abc"},
		"wx_type":    {"custom"},
		"cam_id[]":   {"Ramp Cam"},
		"cam_mode[]": {"pull"},
	}

	_, msgs := ParseForm(v).Build()
	wanted := []string{
		`URL ident must be 3 or 4 lowercase letters or digits (e.g. "kspb")`,
		"Latitude must be a decimal degree value between -90 and 90",
		"Longitude must be a number",
		"Airport name is required",
		"A custom weather source needs a URL",
		"At least one airport code (ICAO, FAA or IATA) is required",
		"Webcam 1 URL: pull cameras need a source URL",
		"Webcam 1 ID must be lowercase letters, digits, dashes or underscores",
	}
	for _, want := range wanted {
		found := false
		for _, msg := range msgs {
			if msg == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing error %q in %v", want, msgs)
		}
	}
}

func TestParseFormSkipsEmptyRows(t *testing.T) {
	v := url.Values{
		"cam_id[]":       {"ramp", ""},
		"cam_name[]":     {"Ramp", ""},
		"cam_mode[]":     {"pull", "pull"},
		"cam_url[]":      {"https://cams.example.com/ramp.jpg", ""},
		"cam_mac[]":      {"", ""},
		"cam_interval[]": {"", ""},

		"rwy_ident[]":   {"", ""},
		"rwy_heading[]": {"", ""},
	}

	f := ParseForm(v)
	if len(f.Webcams) != 1 {
		t.Errorf("webcam rows = %d, want 1", len(f.Webcams))
	}
	if len(f.Runways) != 0 {
		t.Errorf("runway rows = %d, want 0", len(f.Runways))
	}
}

func TestParseFormRowDefaults(t *testing.T) {
	v := url.Values{
		"cam_id[]":    {"ramp"},
		"freq_name[]": {"CTAF"},
		"freq_mhz[]":  {"122.8"},
	}

	f := ParseForm(v)
	if len(f.Webcams) != 1 || f.Webcams[0].Mode != airports.ModePull {
		t.Errorf("webcam mode should default to pull: %+v", f.Webcams)
	}
	if len(f.Frequencies) != 1 || f.Frequencies[0].Type != "other" {
		t.Errorf("frequency type should default to other: %+v", f.Frequencies)
	}
	if f.WxType != airports.SourceMETAR {
		t.Errorf("weather type should default to metar: %q", f.WxType)
	}
}
