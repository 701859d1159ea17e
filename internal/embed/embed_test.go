package embed

import (
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/aviationwx/aviationwx/internal/weather"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestParseDefaults(t *testing.T) {
	p := Parse("KSPB", url.Values{})
	want := Params{
		Airport: "kspb",
		Style:   StyleFull,
		Theme:   ThemeAuto,
		Webcam:  true,
		Width:   DefaultWidth,
		Height:  DefaultFullHeight,
		Target:  "_blank",
		Units:   UnitsKnots,
		Temp:    TempCelsius,
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("Parse defaults = %+v, want %+v", p, want)
	}
}

func TestParseClampsAndFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, p Params)
	}{
		{"width below minimum", "width=50", func(t *testing.T, p Params) {
			if p.Width != MinWidth {
				t.Errorf("width = %d, want %d", p.Width, MinWidth)
			}
		}},
		{"width above maximum", "width=5000", func(t *testing.T, p Params) {
			if p.Width != MaxWidth {
				t.Errorf("width = %d, want %d", p.Width, MaxWidth)
			}
		}},
		{"non-numeric width", "width=abc", func(t *testing.T, p Params) {
			if p.Width != DefaultWidth {
				t.Errorf("width = %d, want default", p.Width)
			}
		}},
		{"compact default height", "style=compact", func(t *testing.T, p Params) {
			if p.Height != DefaultCompactHeight {
				t.Errorf("height = %d, want %d", p.Height, DefaultCompactHeight)
			}
		}},
		{"unknown style", "style=banner", func(t *testing.T, p Params) {
			if p.Style != StyleFull {
				t.Errorf("style = %q, want full", p.Style)
			}
		}},
		{"unknown theme", "theme=sepia", func(t *testing.T, p Params) {
			if p.Theme != ThemeAuto {
				t.Errorf("theme = %q, want auto", p.Theme)
			}
		}},
		{"webcam off", "webcam=0", func(t *testing.T, p Params) {
			if p.Webcam {
				t.Error("webcam should be off")
			}
		}},
		{"unknown target", "target=_evil", func(t *testing.T, p Params) {
			if p.Target != "_blank" {
				t.Errorf("target = %q, want _blank", p.Target)
			}
		}},
		{"cams list trimmed", "cams=+c1,+,c2+", func(t *testing.T, p Params) {
			if !reflect.DeepEqual(p.Cams, []string{"c1", "c2"}) {
				t.Errorf("cams = %v", p.Cams)
			}
		}},
		{"units and temp", "units=mph&temp=f", func(t *testing.T, p Params) {
			if p.Units != UnitsMPH || p.Temp != TempFahrenheit {
				t.Errorf("units = %q temp = %q", p.Units, p.Temp)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, Parse("kspb", q))
		})
	}
}

func TestQueryOmitsDefaults(t *testing.T) {
	p := Parse("kspb", url.Values{})
	if got := p.Query().Encode(); got != "" {
		t.Errorf("default params query = %q, want empty", got)
	}

	p.Theme = ThemeDark
	p.Units = UnitsMPH
	p.Webcam = false
	if got := p.Query().Encode(); got != "theme=dark&units=mph&webcam=false" {
		t.Errorf("query = %q", got)
	}
}

func TestIframeSnippet(t *testing.T) {
	p := Parse("KSPB", url.Values{})
	got := IframeSnippet("https://aviationwx.org", p)
	want := `<iframe src="https://aviationwx.org/embed/kspb" width="420" height="520" style="border:0;border-radius:8px" title="KSPB weather" loading="lazy"></iframe>`
	if got != want {
		t.Errorf("IframeSnippet:\n got %s\nwant %s", got, want)
	}

	p.Theme = ThemeDark
	got = IframeSnippet("https://aviationwx.org/", p)
	if !strings.Contains(got, `src="https://aviationwx.org/embed/kspb?theme=dark"`) {
		t.Errorf("themed src missing: %s", got)
	}
}

func TestBadgeSnippet(t *testing.T) {
	p := Parse("kspb", url.Values{})
	got := BadgeSnippet("https://aviationwx.org", p)
	want := `<a href="https://aviationwx.org/kspb" target="_blank" rel="noopener">` +
		`<img src="https://aviationwx.org/embed/kspb/badge.svg" alt="KSPB weather" height="28"></a>`
	if got != want {
		t.Errorf("BadgeSnippet:\n got %s\nwant %s", got, want)
	}
}

func TestComponentSnippet(t *testing.T) {
	q, _ := url.ParseQuery("style=compact&temp=f")
	p := Parse("kspb", q)
	got := ComponentSnippet("https://aviationwx.org", p)
	want := "<script src=\"https://aviationwx.org/embed.js\" async></script>\n" +
		`<aviationwx-widget airport="kspb" mode="compact" temp="f"></aviationwx-widget>`
	if got != want {
		t.Errorf("ComponentSnippet:\n got %s\nwant %s", got, want)
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		kt    int
		units string
		want  int
	}{
		{8, UnitsKnots, 8},
		{8, UnitsMPH, 9},
		{8, UnitsKMH, 15},
		{0, UnitsMPH, 0},
		{25, UnitsKMH, 46},
	}
	for _, tt := range tests {
		if got := ConvertSpeed(tt.kt, tt.units); got != tt.want {
			t.Errorf("ConvertSpeed(%d, %s) = %d, want %d", tt.kt, tt.units, got, tt.want)
		}
	}
}

func TestConvertTemp(t *testing.T) {
	if got := ConvertTemp(22, TempFahrenheit); got != 71.6 {
		t.Errorf("22C = %vF, want 71.6", got)
	}
	if got := ConvertTemp(21.7, TempFahrenheit); got != 71.1 {
		t.Errorf("21.7C = %vF, want 71.1", got)
	}
	if got := ConvertTemp(-40, TempFahrenheit); got != -40 {
		t.Errorf("-40C = %vF, want -40", got)
	}
}

func TestFormatWind(t *testing.T) {
	dir := 270
	speed := 8
	gust := 18
	zero := 0

	tests := []struct {
		name  string
		d     *weather.Decoded
		units string
		want  string
	}{
		{"steady", &weather.Decoded{WindDirDeg: &dir, WindSpeedKt: &speed}, UnitsKnots, "270° 8 kt"},
		{"gusting mph", &weather.Decoded{WindDirDeg: &dir, WindSpeedKt: &speed, WindGustKt: &gust}, UnitsMPH, "270° 9G21 mph"},
		{"variable", &weather.Decoded{WindVariable: true, WindSpeedKt: intPtr(4)}, UnitsKnots, "VRB 4 kt"},
		{"calm", &weather.Decoded{WindSpeedKt: &zero}, UnitsKnots, "Calm"},
		{"no wind group", &weather.Decoded{}, UnitsKnots, ""},
		{"nil", nil, UnitsKnots, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatWind(tt.d, tt.units); got != tt.want {
				t.Errorf("FormatWind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTemp(t *testing.T) {
	if got := FormatTemp(&weather.Decoded{TempC: floatPtr(22)}, TempCelsius); got != "22°C" {
		t.Errorf("FormatTemp = %q", got)
	}
	if got := FormatTemp(&weather.Decoded{TempC: floatPtr(22)}, TempFahrenheit); got != "71.6°F" {
		t.Errorf("FormatTemp = %q", got)
	}
	if got := FormatTemp(&weather.Decoded{TempC: floatPtr(-2.5)}, TempCelsius); got != "-2.5°C" {
		t.Errorf("FormatTemp = %q", got)
	}
	if got := FormatTemp(&weather.Decoded{}, TempCelsius); got != "" {
		t.Errorf("FormatTemp = %q, want empty", got)
	}
}

func TestBadgeSVG(t *testing.T) {
	svg := string(BadgeSVG("kspb", weather.CategoryVFR, "270° 8 kt 22°C"))
	if !strings.HasPrefix(svg, "<svg ") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not an svg document: %s", svg)
	}
	if !strings.Contains(svg, "#1a9850") {
		t.Error("VFR badge should use the VFR color")
	}
	if !strings.Contains(svg, "KSPB 270° 8 kt 22°C") {
		t.Errorf("badge text missing: %s", svg)
	}
	if !strings.Contains(svg, `width="194"`) {
		t.Errorf("unexpected badge width: %s", svg)
	}

	unknown := string(BadgeSVG("kspb", "", ""))
	if !strings.Contains(unknown, weather.CategoryUnknown) || !strings.Contains(unknown, "#6b7280") {
		t.Errorf("empty category should render unknown: %s", unknown)
	}
}

func TestBadgeLine(t *testing.T) {
	if got := BadgeLine(nil, Params{}); got != "no data" {
		t.Errorf("BadgeLine(nil) = %q", got)
	}

	snap := &weather.Snapshot{Decoded: &weather.Decoded{
		WindDirDeg:  intPtr(270),
		WindSpeedKt: intPtr(8),
		TempC:       floatPtr(22),
	}}
	p := Parse("kspb", url.Values{})
	if got := BadgeLine(snap, p); got != "270° 8 kt 22°C" {
		t.Errorf("BadgeLine = %q", got)
	}
}

func TestLoaderJSBindsBaseURL(t *testing.T) {
	js := string(LoaderJS("https://aviationwx.org/"))
	if !strings.Contains(js, `var BASE = "https://aviationwx.org";`) {
		t.Errorf("base url not bound: %s", js)
	}
	if !strings.Contains(js, "aviationwx-widget") {
		t.Error("loader should define the custom element")
	}
}
