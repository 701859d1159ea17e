package embed

import (
	"fmt"
	"html"
	"strings"
)

// WidgetURL builds the iframe document URL for the given params
func WidgetURL(baseURL string, p Params) string {
	u := fmt.Sprintf("%s/embed/%s", strings.TrimRight(baseURL, "/"), p.Airport)
	if q := p.Query().Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// dashboardURL is the click-through target for badges and widgets
func dashboardURL(baseURL string, p Params) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), p.Airport)
}

// IframeSnippet returns the copy-paste iframe HTML for the widget
func IframeSnippet(baseURL string, p Params) string {
	return fmt.Sprintf(
		`<iframe src="%s" width="%d" height="%d" style="border:0;border-radius:8px" title="%s weather" loading="lazy"></iframe>`,
		html.EscapeString(WidgetURL(baseURL, p)),
		p.Width, p.Height,
		html.EscapeString(strings.ToUpper(p.Airport)))
}

// BadgeSnippet returns a linked badge image for README files and
// sidebars. The image is the live badge.svg for the airport.
func BadgeSnippet(baseURL string, p Params) string {
	img := fmt.Sprintf("%s/embed/%s/badge.svg", strings.TrimRight(baseURL, "/"), p.Airport)
	q := Params{Airport: p.Airport, Style: StyleFull, Theme: ThemeAuto, Webcam: true,
		Target: "_blank", Units: p.Units, Temp: p.Temp}
	if enc := q.Query().Encode(); enc != "" {
		img += "?" + enc
	}
	return fmt.Sprintf(
		`<a href="%s" target="%s" rel="noopener"><img src="%s" alt="%s weather" height="28"></a>`,
		html.EscapeString(dashboardURL(baseURL, p)),
		html.EscapeString(p.Target),
		html.EscapeString(img),
		html.EscapeString(strings.ToUpper(p.Airport)))
}

// ComponentSnippet returns the web-component form of the widget: the
// loader script plus a custom element carrying the non-default params
// as attributes
func ComponentSnippet(baseURL string, p Params) string {
	var attrs strings.Builder
	fmt.Fprintf(&attrs, ` airport="%s"`, html.EscapeString(p.Airport))
	for _, kv := range [][2]string{
		{"mode", p.Style},
		{"theme", p.Theme},
		{"units", p.Units},
		{"temp", p.Temp},
		{"target", p.Target},
	} {
		if isDefaultAttr(kv[0], kv[1]) {
			continue
		}
		fmt.Fprintf(&attrs, ` %s="%s"`, kv[0], html.EscapeString(kv[1]))
	}
	if !p.Webcam {
		attrs.WriteString(` webcam="false"`)
	}
	if len(p.Cams) > 0 {
		fmt.Fprintf(&attrs, ` cams="%s"`, html.EscapeString(strings.Join(p.Cams, ",")))
	}

	return fmt.Sprintf("<script src=\"%s/embed.js\" async></script>\n<aviationwx-widget%s></aviationwx-widget>",
		html.EscapeString(strings.TrimRight(baseURL, "/")), attrs.String())
}

func isDefaultAttr(name, value string) bool {
	switch name {
	case "mode":
		return value == StyleFull
	case "theme":
		return value == ThemeAuto
	case "units":
		return value == UnitsKnots
	case "temp":
		return value == TempCelsius
	case "target":
		return value == "_blank"
	}
	return false
}
