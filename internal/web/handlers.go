package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/guides"
	"github.com/aviationwx/aviationwx/internal/status"
	"github.com/aviationwx/aviationwx/internal/storage/sqlite"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/internal/webcam"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// Handler handles page and API requests
type Handler struct {
	config       *config.Config
	registry     *airports.Registry
	weather      *weather.Service
	webcams      *webcam.Service
	guides       *guides.Library
	monitor      *status.Monitor
	observations *sqlite.ObservationStorage
	engine       *Engine
	logger       *logger.Logger
}

// NewHandler creates a new web handler
func NewHandler(
	cfg *config.Config,
	registry *airports.Registry,
	weatherSvc *weather.Service,
	webcamSvc *webcam.Service,
	guideLib *guides.Library,
	monitor *status.Monitor,
	observations *sqlite.ObservationStorage,
	engine *Engine,
	log *logger.Logger,
) *Handler {
	return &Handler{
		config:       cfg,
		registry:     registry,
		weather:      weatherSvc,
		webcams:      webcamSvc,
		guides:       guideLib,
		monitor:      monitor,
		observations: observations,
		engine:       engine,
		logger:       log.Named("web-handler"),
	}
}

// baseView carries the fields the shared page layout needs
type baseView struct {
	Title        string
	Description  string
	SiteName     string
	Tagline      string
	ContactEmail string
	BaseURL      string
	Canonical    string
	Active       string
	Year         int
}

// base builds the layout fields for a page. The path is the request
// path used for the canonical URL; active marks the nav item.
func (h *Handler) base(title, description, active, path string) baseView {
	return baseView{
		Title:        title,
		Description:  description,
		SiteName:     h.config.Site.Name,
		Tagline:      h.config.Site.Tagline,
		ContactEmail: h.config.Site.ContactEmail,
		BaseURL:      h.config.Server.BaseURL,
		Canonical:    h.config.Server.BaseURL + path,
		Active:       active,
		Year:         time.Now().Year(),
	}
}

// errorView renders the shared error page
type errorView struct {
	baseView
	Status  int
	Heading string
	Message string
}

// renderError renders the error page with the given status
func (h *Handler) renderError(w http.ResponseWriter, statusCode int, heading, message string) {
	v := errorView{
		baseView: h.base(heading, "", "", ""),
		Status:   statusCode,
		Heading:  heading,
		Message:  message,
	}
	h.engine.Render(w, statusCode, "error.html", v)
}

// NotFound renders the 404 page for unknown routes, airports, guides
// and cameras
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, http.StatusNotFound, "Page not found",
		"The page you are looking for does not exist. It may have moved, or the airport may not be in the registry yet.")
}

// LimitedPage is the 429 body for rate limited page routes. The
// Retry-After header is set by the limiter before this runs.
func (h *Handler) LimitedPage(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, http.StatusTooManyRequests, "Too many requests",
		"You are sending requests faster than we can handle. Wait a moment and try again.")
}

// requireRegistry guards page handlers against a missing airport
// registry. Normally the process refuses to start without one; this
// covers a registry lost at runtime.
func (h *Handler) requireRegistry(w http.ResponseWriter) bool {
	if h.registry != nil {
		return true
	}
	h.renderError(w, http.StatusServiceUnavailable, "Service unavailable",
		"The airport registry is not loaded. Try again in a few minutes.")
	return false
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but don't change response since headers are already sent
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

// WriteJSONError writes the JSON error envelope used by API and embed
// routes
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// staleAfter is the snapshot age past which pages show the staleness
// banner
func (h *Handler) staleAfter() time.Duration {
	return time.Duration(h.config.Weather.CacheExpiryMinutes) * time.Minute
}

// lookupAirport resolves an ident route parameter against the
// registry. Returns nil when the ident is malformed or unknown; the
// caller decides how to answer.
func (h *Handler) lookupAirport(ident string) *airports.Airport {
	if h.registry == nil || !airports.ValidIdent(ident) {
		return nil
	}
	apt, err := h.registry.Get(ident)
	if err != nil {
		return nil
	}
	return apt
}
