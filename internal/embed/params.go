package embed

import (
	"net/url"
	"strconv"
	"strings"
)

// Widget styles
const (
	StyleFull    = "full"
	StyleCompact = "compact"
	StyleBadge   = "badge"
)

// Widget themes
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

// Wind speed units
const (
	UnitsKnots = "kt"
	UnitsMPH   = "mph"
	UnitsKMH   = "kmh"
)

// Temperature units
const (
	TempCelsius    = "c"
	TempFahrenheit = "f"
)

// Iframe dimension bounds. Out-of-range requests are clamped rather
// than rejected so third-party pages never break on a typo.
const (
	MinWidth  = 200
	MaxWidth  = 1000
	MinHeight = 180
	MaxHeight = 1600

	DefaultWidth         = 420
	DefaultFullHeight    = 520
	DefaultCompactHeight = 280
)

// Params is the query-string state of an embedded widget
type Params struct {
	Airport string
	Style   string
	Theme   string
	Webcam  bool
	Cams    []string
	Width   int
	Height  int
	Target  string
	Units   string
	Temp    string
}

// Parse builds widget params for an airport from a query string,
// applying defaults and clamping unknown or out-of-range values
func Parse(ident string, q url.Values) Params {
	p := Params{
		Airport: strings.ToLower(ident),
		Style:   StyleFull,
		Theme:   ThemeAuto,
		Webcam:  true,
		Target:  "_blank",
		Units:   UnitsKnots,
		Temp:    TempCelsius,
	}

	switch q.Get("style") {
	case StyleCompact:
		p.Style = StyleCompact
	case StyleBadge:
		p.Style = StyleBadge
	}

	switch q.Get("theme") {
	case ThemeLight:
		p.Theme = ThemeLight
	case ThemeDark:
		p.Theme = ThemeDark
	}

	switch strings.ToLower(q.Get("webcam")) {
	case "0", "false", "no", "off":
		p.Webcam = false
	}

	if raw := q.Get("cams"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				p.Cams = append(p.Cams, id)
			}
		}
	}

	switch q.Get("target") {
	case "_self", "_parent", "_top":
		p.Target = q.Get("target")
	}

	switch q.Get("units") {
	case UnitsMPH:
		p.Units = UnitsMPH
	case UnitsKMH:
		p.Units = UnitsKMH
	}

	if q.Get("temp") == TempFahrenheit {
		p.Temp = TempFahrenheit
	}

	p.Width = clamp(atoiDefault(q.Get("width"), DefaultWidth), MinWidth, MaxWidth)
	defaultHeight := DefaultFullHeight
	if p.Style == StyleCompact {
		defaultHeight = DefaultCompactHeight
	}
	p.Height = clamp(atoiDefault(q.Get("height"), defaultHeight), MinHeight, MaxHeight)

	return p
}

// Query returns the non-default params as a query string, without the
// airport (the embed URL path carries it). Defaults are omitted so
// generated snippets stay short.
func (p Params) Query() url.Values {
	q := url.Values{}
	if p.Style != StyleFull {
		q.Set("style", p.Style)
	}
	if p.Theme != ThemeAuto {
		q.Set("theme", p.Theme)
	}
	if !p.Webcam {
		q.Set("webcam", "false")
	}
	if len(p.Cams) > 0 {
		q.Set("cams", strings.Join(p.Cams, ","))
	}
	if p.Target != "_blank" {
		q.Set("target", p.Target)
	}
	if p.Units != UnitsKnots {
		q.Set("units", p.Units)
	}
	if p.Temp != TempCelsius {
		q.Set("temp", p.Temp)
	}
	return q
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
