package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/embed"
	"github.com/aviationwx/aviationwx/internal/guides"
	"github.com/aviationwx/aviationwx/internal/status"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/internal/wind"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// airportCard is the summary shown on home and directory pages
type airportCard struct {
	Ident      string
	Code       string
	Name       string
	Location   string
	Category   string
	Wind       string
	Updated    time.Time
	HasWebcams bool
	CamCount   int
}

// airportCard builds the summary view for one airport using whatever
// weather is cached right now
func (h *Handler) airportCard(apt *airports.Airport) airportCard {
	card := airportCard{
		Ident:      apt.Ident,
		Code:       apt.DisplayCode(),
		Name:       apt.Name,
		Location:   apt.Location(),
		Category:   weather.CategoryUnknown,
		HasWebcams: apt.HasWebcams(),
		CamCount:   len(apt.Webcams),
	}
	if snap := h.weather.GetSnapshot(apt.Ident); snap != nil {
		if snap.Decoded != nil {
			card.Category = snap.Decoded.FlightCategory
			card.Wind = embed.FormatWind(snap.Decoded, embed.UnitsKnots)
		}
		card.Updated = snap.LastUpdated
	}
	return card
}

type homeView struct {
	baseView
	Featured     []airportCard
	AirportCount int
	CamCount     int
	GuideCount   int
}

// Home renders the landing page
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if !h.requireRegistry(w) {
		return
	}

	published := h.registry.Published()
	camCount := 0
	for _, apt := range published {
		camCount += len(apt.Webcams)
	}
	guideCount := 0
	if list, err := h.guides.List(); err == nil {
		guideCount = len(list)
	}

	v := homeView{
		baseView:     h.base(h.config.Site.Name+" - Live Airport Weather", h.config.Site.Tagline, "home", "/"),
		Featured:     h.featuredAirports(published, 6),
		AirportCount: len(published),
		CamCount:     camCount,
		GuideCount:   guideCount,
	}
	h.engine.Render(w, http.StatusOK, "home.html", v)
}

// featuredAirports picks the home page cards: the configured default
// airport first, then the rest of the registry in order
func (h *Handler) featuredAirports(published []*airports.Airport, limit int) []airportCard {
	cards := make([]airportCard, 0, limit)
	def := strings.ToLower(h.config.Site.DefaultAirport)
	if def != "" {
		if apt := h.lookupAirport(def); apt != nil {
			cards = append(cards, h.airportCard(apt))
		}
	}
	for _, apt := range published {
		if len(cards) >= limit {
			break
		}
		if apt.Ident == def {
			continue
		}
		cards = append(cards, h.airportCard(apt))
	}
	return cards
}

// mapPin is one airport marker inlined as JSON for the directory map
type mapPin struct {
	Ident    string  `json:"ident"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Category string  `json:"category"`
}

type directoryView struct {
	baseView
	Airports []airportCard
	Pins     template.JS
}

// Directory renders the airport directory: the table plus the inlined
// pin data the client-side map code consumes
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRegistry(w) {
		return
	}

	published := h.registry.Published()
	rows := make([]airportCard, 0, len(published))
	pins := make([]mapPin, 0, len(published))
	for _, apt := range published {
		card := h.airportCard(apt)
		rows = append(rows, card)
		pins = append(pins, mapPin{
			Ident:    apt.Ident,
			Name:     apt.Name,
			Lat:      apt.Latitude,
			Lon:      apt.Longitude,
			Category: card.Category,
		})
	}

	pinJSON, err := json.Marshal(pins)
	if err != nil {
		h.logger.Error("Failed to encode map pins", logger.Error(err))
		pinJSON = []byte("[]")
	}

	v := directoryView{
		baseView: h.base("Airports - "+h.config.Site.Name, "Live weather and webcams for every airport on "+h.config.Site.Name, "airports", "/airports"),
		Airports: rows,
		Pins:     template.JS(pinJSON),
	}
	h.engine.Render(w, http.StatusOK, "airports.html", v)
}

// camView is one webcam tile on the dashboard
type camView struct {
	ID        string
	Name      string
	URL       string
	HasFrame  bool
	Stale     bool
	FetchedAt time.Time
}

type dashboardView struct {
	baseView
	Airport        *airports.Airport
	Code           string
	Snapshot       *weather.Snapshot
	Decoded        *weather.Decoded
	Category       string
	RawMETAR       string
	RawTAF         string
	Stale          bool
	Updated        time.Time
	Wind           *wind.Report
	Cams           []camView
	TrendJSON      template.JS
	PlaceJSON      template.JS
	WindText       string
	TempText       string
	DewpointText   string
	AltimeterText  string
	VisibilityText string
	CeilingText    string
	CloudsText     string
	HasServices    bool
}

// Dashboard renders the airport weather dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if !h.requireRegistry(w) {
		return
	}
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	apt := h.lookupAirport(ident)
	if apt == nil {
		h.NotFound(w, r)
		return
	}

	svc := apt.Services
	v := dashboardView{
		Airport:     apt,
		Code:        apt.DisplayCode(),
		Category:    weather.CategoryUnknown,
		Cams:        h.camViews(apt),
		TrendJSON:   h.trendJSON(apt.Ident),
		PlaceJSON:   placeJSON(apt),
		HasServices: len(svc.Fuel) > 0 || svc.Repairs || svc.FlightSchool || svc.CourtesyCar || svc.Food != "",
	}

	snap := h.weather.GetSnapshot(apt.Ident)
	if snap != nil {
		v.Snapshot = snap
		v.Decoded = snap.Decoded
		v.Stale = snap.Stale(h.staleAfter())
		v.Updated = snap.LastUpdated
		if snap.METAR != nil {
			v.RawMETAR = snap.METAR.RawOb
		}
		if snap.TAF != nil {
			v.RawTAF = snap.TAF.RawTAF
		}
		if snap.Decoded != nil {
			v.Category = snap.Decoded.FlightCategory
			v.WindText = embed.FormatWind(snap.Decoded, embed.UnitsKnots)
			v.TempText = embed.FormatTemp(snap.Decoded, embed.TempCelsius)
			v.DewpointText = formatDewpoint(snap.Decoded)
			v.AltimeterText = formatAltimeter(snap.Decoded)
			v.VisibilityText = formatVisibility(snap.Decoded)
			v.CeilingText = formatCeiling(snap.Decoded)
			v.CloudsText = formatClouds(snap.Decoded)
		}
	}
	v.Wind = wind.Compute(apt, v.Decoded, time.Now())

	title := fmt.Sprintf("%s - %s Weather - %s", v.Code, apt.Name, h.config.Site.Name)
	desc := fmt.Sprintf("Live weather, webcams and runway winds for %s (%s)", apt.Name, v.Code)
	v.baseView = h.base(title, desc, "airports", "/"+apt.Ident)

	h.engine.Render(w, http.StatusOK, "airport.html", v)
}

// LegacyDashboardRedirect sends the old /airports/{ident} URLs to the
// canonical dashboard path
func (h *Handler) LegacyDashboardRedirect(w http.ResponseWriter, r *http.Request) {
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	http.Redirect(w, r, "/"+ident, http.StatusMovedPermanently)
}

// camViews builds the webcam tiles for an airport
func (h *Handler) camViews(apt *airports.Airport) []camView {
	if h.webcams == nil {
		return nil
	}
	statuses := h.webcams.Statuses(apt)
	views := make([]camView, 0, len(statuses))
	for _, cs := range statuses {
		views = append(views, camView{
			ID:        cs.Cam.ID,
			Name:      cs.Cam.Name,
			URL:       fmt.Sprintf("/wx/%s/cam/%s", apt.Ident, cs.Cam.ID),
			HasFrame:  cs.HasFrame,
			Stale:     cs.Stale,
			FetchedAt: cs.FetchedAt,
		})
	}
	return views
}

// trendPoint is one observation in the inlined 24h sparkline series
type trendPoint struct {
	T        int64    `json:"t"`
	Category string   `json:"category"`
	TempC    *float64 `json:"temp_c,omitempty"`
	WindKt   *int     `json:"wind_kt,omitempty"`
	GustKt   *int     `json:"gust_kt,omitempty"`
	VisSM    *float64 `json:"vis_sm,omitempty"`
	AltInHg  *float64 `json:"alt_inhg,omitempty"`
	CeilFt   *int     `json:"ceil_ft,omitempty"`
}

// trendJSON inlines the last 24 hours of observations for the trend
// sparklines. Failures degrade to an empty series, never an error page.
func (h *Handler) trendJSON(ident string) template.JS {
	if h.observations == nil {
		return template.JS("[]")
	}
	obs, err := h.observations.GetSince(ident, time.Now().Add(-24*time.Hour))
	if err != nil {
		h.logger.Warn("Failed to load observation history",
			logger.String("ident", ident),
			logger.Error(err))
		return template.JS("[]")
	}
	points := make([]trendPoint, 0, len(obs))
	for _, o := range obs {
		points = append(points, trendPoint{
			T:        o.ObsTime.Unix(),
			Category: o.FlightCategory,
			TempC:    o.TempC,
			WindKt:   o.WindSpeedKt,
			GustKt:   o.WindGustKt,
			VisSM:    o.VisibilitySM,
			AltInHg:  o.AltimeterInHg,
			CeilFt:   o.CeilingFt,
		})
	}
	b, err := json.Marshal(points)
	if err != nil {
		return template.JS("[]")
	}
	return template.JS(b)
}

// formatDewpoint renders the dewpoint, e.g. "12°C"
func formatDewpoint(d *weather.Decoded) string {
	if d == nil || d.DewpointC == nil {
		return ""
	}
	return fmt.Sprintf("%.0f°C", *d.DewpointC)
}

// formatCeiling renders the ceiling, empty when unlimited
func formatCeiling(d *weather.Decoded) string {
	if d == nil || d.CeilingFt == nil {
		return ""
	}
	return fmt.Sprintf("%d ft", *d.CeilingFt)
}

// formatClouds renders the cloud layers, e.g. "FEW 4000 ft, BKN 10000 ft"
func formatClouds(d *weather.Decoded) string {
	if d == nil || len(d.Clouds) == 0 {
		return ""
	}
	parts := make([]string, 0, len(d.Clouds))
	for _, c := range d.Clouds {
		if c.Base != nil {
			parts = append(parts, fmt.Sprintf("%s %d ft", c.Cover, *c.Base))
		} else {
			parts = append(parts, c.Cover)
		}
	}
	return strings.Join(parts, ", ")
}

// ldPlace is the schema.org markup emitted on dashboard pages
type ldPlace struct {
	Context string `json:"@context"`
	Type    string `json:"@type"`
	Name    string `json:"name"`
	Geo     ldGeo  `json:"geo"`
}

type ldGeo struct {
	Type      string  `json:"@type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

func placeJSON(apt *airports.Airport) template.JS {
	doc := ldPlace{
		Context: "https://schema.org",
		Type:    "Place",
		Name:    apt.Name,
		Geo: ldGeo{
			Type:      "GeoCoordinates",
			Latitude:  apt.Latitude,
			Longitude: apt.Longitude,
			Elevation: math.Round(float64(apt.ElevationFt) * 0.3048),
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return template.JS("{}")
	}
	return template.JS(b)
}

type guidesView struct {
	baseView
	Guides []*guides.Guide
}

// GuideIndex renders the list of guides
func (h *Handler) GuideIndex(w http.ResponseWriter, r *http.Request) {
	list, err := h.guides.List()
	if err != nil {
		h.logger.Error("Failed to list guides", logger.Error(err))
		h.renderError(w, http.StatusInternalServerError, "Something went wrong",
			"The guides are unavailable right now. Try again shortly.")
		return
	}

	v := guidesView{
		baseView: h.base("Guides - "+h.config.Site.Name, "Setup and usage guides for airport operators and pilots", "guides", "/guides"),
		Guides:   list,
	}
	h.engine.Render(w, http.StatusOK, "guides.html", v)
}

type guideView struct {
	baseView
	Guide *guides.Guide
}

// GuidePage renders one guide
func (h *Handler) GuidePage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	guide, err := h.guides.Get(slug)
	if err != nil {
		if errors.Is(err, guides.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		h.logger.Error("Failed to load guide",
			logger.String("slug", slug),
			logger.Error(err))
		h.renderError(w, http.StatusInternalServerError, "Something went wrong",
			"This guide is unavailable right now. Try again shortly.")
		return
	}

	v := guideView{
		baseView: h.base(guide.Title+" - "+h.config.Site.Name, guide.Summary, "guides", "/guides/"+guide.Slug),
		Guide:    guide,
	}
	h.engine.Render(w, http.StatusOK, "guide.html", v)
}

// stripCell is one sample on the status page availability strip
type stripCell struct {
	State string
	Time  time.Time
}

type statusView struct {
	baseView
	Report  *status.Report
	Strip   []stripCell
	Uptime  string
	Sampled int
}

// StatusPage renders component health plus the 24h availability strip
func (h *Handler) StatusPage(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.Report()

	v := statusView{
		baseView: h.base("Status - "+h.config.Site.Name, "Operational status of "+h.config.Site.Name, "status", "/status"),
		Report:   report,
	}

	samples, err := h.monitor.History(time.Now().Add(-24 * time.Hour))
	if err != nil {
		h.logger.Warn("Failed to load status history", logger.Error(err))
	}
	ok := 0
	for _, s := range samples {
		v.Strip = append(v.Strip, stripCell{State: s.State, Time: s.SampledAt})
		if s.State == status.StateOK {
			ok++
		}
	}
	v.Sampled = len(samples)
	if len(samples) > 0 {
		v.Uptime = fmt.Sprintf("%.1f%%", 100*float64(ok)/float64(len(samples)))
	}

	h.engine.Render(w, http.StatusOK, "status.html", v)
}

// StatusJSON returns the aggregated component health
func (h *Handler) StatusJSON(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.Report())
}
