package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/internal/wind"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// apiAirport is one entry of the airport list endpoint
type apiAirport struct {
	Ident       string  `json:"ident"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ElevationFt int     `json:"elevation_ft"`
	Webcams     int     `json:"webcams"`
	URL         string  `json:"url"`
}

func (h *Handler) apiAirportSummary(apt *airports.Airport) apiAirport {
	return apiAirport{
		Ident:       apt.Ident,
		Code:        apt.DisplayCode(),
		Name:        apt.Name,
		City:        apt.City,
		State:       apt.State,
		Latitude:    apt.Latitude,
		Longitude:   apt.Longitude,
		ElevationFt: apt.ElevationFt,
		Webcams:     len(apt.Webcams),
		URL:         h.config.Server.BaseURL + "/" + apt.Ident,
	}
}

// apiRequireRegistry is the JSON variant of the registry guard
func (h *Handler) apiRequireRegistry(w http.ResponseWriter) bool {
	if h.registry != nil {
		return true
	}
	WriteJSONError(w, http.StatusServiceUnavailable, "REGISTRY_UNAVAILABLE",
		"airport registry is not loaded")
	return false
}

// APIAirports lists published airports, optionally filtered by ?q=
func (h *Handler) APIAirports(w http.ResponseWriter, r *http.Request) {
	if !h.apiRequireRegistry(w) {
		return
	}

	var matches []*airports.Airport
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		matches = h.registry.Search(q, 20)
	} else {
		matches = h.registry.Published()
	}

	out := make([]apiAirport, 0, len(matches))
	for _, apt := range matches {
		out = append(out, h.apiAirportSummary(apt))
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"airports": out,
		"count":    len(out),
	})
}

// APIAirport returns the full registry record for one airport
func (h *Handler) APIAirport(w http.ResponseWriter, r *http.Request) {
	if !h.apiRequireRegistry(w) {
		return
	}
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	apt := h.lookupAirport(ident)
	if apt == nil {
		WriteJSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown airport: "+ident)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"ident":   apt.Ident,
		"airport": apt,
	})
}

// APIWeather returns the cached snapshot plus derived runway winds.
// A stale snapshot is still served, flagged by the stale field.
func (h *Handler) APIWeather(w http.ResponseWriter, r *http.Request) {
	if !h.apiRequireRegistry(w) {
		return
	}
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	apt := h.lookupAirport(ident)
	if apt == nil {
		WriteJSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown airport: "+ident)
		return
	}

	snap := h.weather.GetSnapshot(apt.Ident)
	if snap == nil {
		WriteJSONError(w, http.StatusNotFound, "NO_DATA", "no weather cached yet for "+ident)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"snapshot": snap,
		"wind":     wind.Compute(apt, snap.Decoded, time.Now()),
		"stale":    snap.Stale(h.staleAfter()),
	})
}

// APIWeatherHistory returns stored observations for the trend window.
// ?hours= selects the window, clamped to 1..72, default 24.
func (h *Handler) APIWeatherHistory(w http.ResponseWriter, r *http.Request) {
	if !h.apiRequireRegistry(w) {
		return
	}
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	apt := h.lookupAirport(ident)
	if apt == nil {
		WriteJSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown airport: "+ident)
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			hours = n
		}
	}
	if hours < 1 {
		hours = 1
	} else if hours > 72 {
		hours = 72
	}

	obs := []*weather.Observation{}
	if h.observations != nil {
		stored, err := h.observations.GetSince(apt.Ident, time.Now().Add(-time.Duration(hours)*time.Hour))
		if err != nil {
			h.logger.Error("Failed to load observation history",
				logger.String("ident", apt.Ident),
				logger.Error(err))
			WriteJSONError(w, http.StatusInternalServerError, "STORAGE_ERROR",
				"observation history is unavailable")
			return
		}
		obs = stored
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"ident":        apt.Ident,
		"hours":        hours,
		"observations": obs,
		"count":        len(obs),
	})
}

// WebcamFrame streams the latest stored frame for one camera. The
// frame is a plain image URL, so misses are plain 404s rather than
// rendered pages or JSON envelopes.
func (h *Handler) WebcamFrame(w http.ResponseWriter, r *http.Request) {
	ident := strings.ToLower(chi.URLParam(r, "ident"))
	apt := h.lookupAirport(ident)
	if apt == nil {
		http.NotFound(w, r)
		return
	}
	camID := chi.URLParam(r, "camID")
	if apt.Webcam(camID) == nil {
		http.NotFound(w, r)
		return
	}

	frame, err := h.webcams.Latest(apt.Ident, camID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", frame.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=10")
	http.ServeFile(w, r, frame.Path)
}
