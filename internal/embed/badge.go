package embed

import (
	"fmt"
	"html"
	"strings"

	"github.com/aviationwx/aviationwx/internal/weather"
)

// CategoryColor returns the conventional chart color for a flight
// category, used by badges and map pins
func CategoryColor(category string) string {
	switch category {
	case weather.CategoryVFR:
		return "#1a9850"
	case weather.CategoryMVFR:
		return "#2b6cb0"
	case weather.CategoryIFR:
		return "#d73027"
	case weather.CategoryLIFR:
		return "#9b2da5"
	default:
		return "#6b7280"
	}
}

const (
	badgeHeight   = 28
	badgeCharPx   = 7
	badgePaddingX = 10
)

// BadgeSVG renders a shields-style SVG badge: the flight category on
// its chart color, then the ident and a current-conditions line
func BadgeSVG(ident, category, line string) []byte {
	if category == "" {
		category = weather.CategoryUnknown
	}
	right := strings.ToUpper(ident)
	if line != "" {
		right += " " + line
	}

	leftWidth := badgeCharPx*len(category) + 2*badgePaddingX
	rightWidth := badgeCharPx*len([]rune(right)) + 2*badgePaddingX
	width := leftWidth + rightWidth

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" role="img" aria-label="%s">`,
		width, badgeHeight, html.EscapeString(right+": "+category))
	fmt.Fprintf(&b, `<title>%s: %s</title>`, html.EscapeString(right), html.EscapeString(category))
	fmt.Fprintf(&b, `<rect rx="4" width="%d" height="%d" fill="#24292f"/>`, width, badgeHeight)
	fmt.Fprintf(&b, `<rect rx="4" width="%d" height="%d" fill="%s"/>`, leftWidth, badgeHeight, CategoryColor(category))
	fmt.Fprintf(&b, `<rect x="%d" width="4" height="%d" fill="%s"/>`, leftWidth-4, badgeHeight, CategoryColor(category))
	fmt.Fprintf(&b, `<g fill="#fff" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="12">`)
	fmt.Fprintf(&b, `<text x="%d" y="19" text-anchor="middle" font-weight="bold">%s</text>`,
		leftWidth/2, html.EscapeString(category))
	fmt.Fprintf(&b, `<text x="%d" y="19">%s</text>`, leftWidth+badgePaddingX, html.EscapeString(right))
	b.WriteString(`</g></svg>`)
	return []byte(b.String())
}

// BadgeLine builds the conditions line shown on a badge from the
// latest snapshot, honoring the requested display units
func BadgeLine(snap *weather.Snapshot, p Params) string {
	if snap == nil || snap.Decoded == nil {
		return "no data"
	}
	parts := make([]string, 0, 2)
	if wind := FormatWind(snap.Decoded, p.Units); wind != "" {
		parts = append(parts, wind)
	}
	if temp := FormatTemp(snap.Decoded, p.Temp); temp != "" {
		parts = append(parts, temp)
	}
	if len(parts) == 0 {
		return "no data"
	}
	return strings.Join(parts, " ")
}
