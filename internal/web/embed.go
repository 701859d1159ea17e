package web

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aviationwx/aviationwx/internal/embed"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// embedView is the data for the standalone widget document
type embedView struct {
	SiteName      string
	Code          string
	Name          string
	Ident         string
	Params        embed.Params
	Category      string
	CategoryColor string
	Wind          string
	Temp          string
	Altimeter     string
	Visibility    string
	RawMETAR      string
	Updated       time.Time
	Stale         bool
	HasData       bool
	Cams          []camView
	DashboardURL  string
}

// EmbedWidget serves the self-contained iframe document for an
// airport. Third-party pages frame it, so it carries no site chrome
// and allows any framing origin.
func (h *Handler) EmbedWidget(w http.ResponseWriter, r *http.Request) {
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	apt := h.lookupAirport(ident)
	if apt == nil {
		WriteJSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown airport: "+ident)
		return
	}

	params := embed.Parse(apt.Ident, r.URL.Query())
	v := embedView{
		SiteName:     h.config.Site.Name,
		Code:         apt.DisplayCode(),
		Name:         apt.Name,
		Ident:        apt.Ident,
		Params:       params,
		Category:     weather.CategoryUnknown,
		DashboardURL: h.config.Server.BaseURL + "/" + apt.Ident,
	}

	snap := h.weather.GetSnapshot(apt.Ident)
	if snap != nil {
		v.HasData = true
		v.Updated = snap.LastUpdated
		v.Stale = snap.Stale(h.staleAfter())
		if snap.METAR != nil {
			v.RawMETAR = snap.METAR.RawOb
		}
		if snap.Decoded != nil {
			v.Category = snap.Decoded.FlightCategory
			v.Wind = embed.FormatWind(snap.Decoded, params.Units)
			v.Temp = embed.FormatTemp(snap.Decoded, params.Temp)
			v.Altimeter = formatAltimeter(snap.Decoded)
			v.Visibility = formatVisibility(snap.Decoded)
		}
	}
	v.CategoryColor = embed.CategoryColor(v.Category)

	if params.Webcam && params.Style != embed.StyleBadge {
		for _, cv := range h.camViews(apt) {
			if len(params.Cams) > 0 && !slices.Contains(params.Cams, cv.ID) {
				continue
			}
			if !cv.HasFrame {
				continue
			}
			v.Cams = append(v.Cams, cv)
		}
	}

	w.Header().Set("Content-Security-Policy", "frame-ancestors *")
	w.Header().Set("Cache-Control", "no-cache")
	h.engine.RenderBare(w, http.StatusOK, "embed_widget.html", v)
}

// EmbedBadge serves the live SVG status badge for an airport
func (h *Handler) EmbedBadge(w http.ResponseWriter, r *http.Request) {
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	apt := h.lookupAirport(ident)
	if apt == nil {
		WriteJSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown airport: "+ident)
		return
	}

	params := embed.Parse(apt.Ident, r.URL.Query())
	snap := h.weather.GetSnapshot(apt.Ident)
	category := weather.CategoryUnknown
	if snap != nil && snap.Decoded != nil {
		category = snap.Decoded.FlightCategory
	}

	svg := embed.BadgeSVG(apt.DisplayCode(), category, embed.BadgeLine(snap, params))
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=120")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(svg); err != nil {
		h.logger.Debug("Failed to write badge", logger.Error(err))
	}
}

// EmbedLoader serves the web component loader script
func (h *Handler) EmbedLoader(w http.ResponseWriter, r *http.Request) {
	js := embed.LoaderJS(h.config.Server.BaseURL)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(js); err != nil {
		h.logger.Debug("Failed to write embed loader", logger.Error(err))
	}
}

type embedConfiguratorView struct {
	baseView
	Airports         []airportCard
	Params           embed.Params
	PreviewURL       string
	IframeSnippet    string
	BadgeSnippet     string
	ComponentSnippet string
}

// EmbedConfigurator renders the widget builder: form controls that
// round-trip through the query string, a live preview, and the
// copyable snippets for all three embed forms
func (h *Handler) EmbedConfigurator(w http.ResponseWriter, r *http.Request) {
	if !h.requireRegistry(w) {
		return
	}

	published := h.registry.Published()
	ident := strings.ToLower(r.URL.Query().Get("airport"))
	if h.lookupAirport(ident) == nil {
		ident = strings.ToLower(h.config.Site.DefaultAirport)
		if h.lookupAirport(ident) == nil && len(published) > 0 {
			ident = published[0].Ident
		}
	}

	params := embed.Parse(ident, r.URL.Query())
	base := h.config.Server.BaseURL

	options := make([]airportCard, 0, len(published))
	for _, apt := range published {
		options = append(options, airportCard{
			Ident: apt.Ident,
			Code:  apt.DisplayCode(),
			Name:  apt.Name,
		})
	}

	v := embedConfiguratorView{
		baseView: h.base("Embed Widget - "+h.config.Site.Name,
			"Put live airport weather on your own site with an iframe, badge or web component",
			"tools", "/embed-configurator"),
		Airports:         options,
		Params:           params,
		PreviewURL:       embed.WidgetURL(base, params),
		IframeSnippet:    embed.IframeSnippet(base, params),
		BadgeSnippet:     embed.BadgeSnippet(base, params),
		ComponentSnippet: embed.ComponentSnippet(base, params),
	}
	h.engine.Render(w, http.StatusOK, "embed_configurator.html", v)
}

// formatAltimeter renders the altimeter setting, e.g. "29.92 inHg"
func formatAltimeter(d *weather.Decoded) string {
	if d == nil || d.AltimeterInHg == nil {
		return ""
	}
	return fmt.Sprintf("%.2f inHg", *d.AltimeterInHg)
}

// formatVisibility renders visibility, e.g. "10+ SM" or "2.5 SM"
func formatVisibility(d *weather.Decoded) string {
	if d == nil || d.VisibilitySM == nil {
		return ""
	}
	v := *d.VisibilitySM
	plus := ""
	if d.VisibilityPlus {
		plus = "+"
	}
	if v == float64(int(v)) {
		return fmt.Sprintf("%d%s SM", int(v), plus)
	}
	return fmt.Sprintf("%.1f%s SM", v, plus)
}
