package status

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/weather"
)

// WeatherStats is the slice of the weather service the checkers probe
type WeatherStats interface {
	IsStarted() bool
	Snapshots() []*weather.Snapshot
	BreakerState() string
}

// WebcamStats is the slice of the webcam service the checker probes
type WebcamStats interface {
	StaleCounts() (stale, total int)
}

// Weather data is the core of the site: all airports stale means the
// component is down, a partial sweep failure degrades it.
type weatherChecker struct {
	svc    WeatherStats
	maxAge time.Duration
}

// NewWeatherChecker reports freshness of the cached weather data
func NewWeatherChecker(svc WeatherStats, maxAge time.Duration) Checker {
	return &weatherChecker{svc: svc, maxAge: maxAge}
}

func (c *weatherChecker) Check() Check {
	check := Check{Name: "weather"}

	if !c.svc.IsStarted() {
		check.State = StateDown
		check.Detail = "weather service not running"
		return check
	}

	snaps := c.svc.Snapshots()
	if len(snaps) == 0 {
		check.State = StateDegraded
		check.Detail = "no weather data fetched yet"
		return check
	}

	stale := 0
	for _, snap := range snaps {
		if snap.Stale(c.maxAge) {
			stale++
		}
	}

	switch {
	case stale == len(snaps):
		check.State = StateDown
		check.Detail = fmt.Sprintf("weather data stale for all %d airports", len(snaps))
	case stale > 0:
		check.State = StateDegraded
		check.Detail = fmt.Sprintf("weather data stale for %d of %d airports", stale, len(snaps))
	default:
		check.State = StateOK
		check.Detail = fmt.Sprintf("tracking %d airports", len(snaps))
	}
	return check
}

// The upstream API going away degrades the site but never downs it:
// pages keep serving the last snapshots.
type upstreamChecker struct {
	svc WeatherStats
}

// NewUpstreamChecker reports the weather API circuit breaker state
func NewUpstreamChecker(svc WeatherStats) Checker {
	return &upstreamChecker{svc: svc}
}

func (c *upstreamChecker) Check() Check {
	check := Check{Name: "weather_upstream"}

	switch state := c.svc.BreakerState(); state {
	case "open":
		check.State = StateDegraded
		check.Detail = "circuit breaker open, upstream requests suspended"
	case "half-open":
		check.State = StateDegraded
		check.Detail = "circuit breaker half-open, probing upstream"
	default:
		check.State = StateOK
	}
	return check
}

// Cameras are best-effort; a dead camera dims the dashboard but the
// component never reports down.
type webcamChecker struct {
	svc WebcamStats
}

// NewWebcamChecker reports how many configured cameras have gone stale
func NewWebcamChecker(svc WebcamStats) Checker {
	return &webcamChecker{svc: svc}
}

func (c *webcamChecker) Check() Check {
	check := Check{Name: "webcams"}

	stale, total := c.svc.StaleCounts()
	switch {
	case total == 0:
		check.State = StateOK
		check.Detail = "no cameras configured"
	case stale == 0:
		check.State = StateOK
		check.Detail = fmt.Sprintf("%d cameras current", total)
	default:
		check.State = StateDegraded
		check.Detail = fmt.Sprintf("%d of %d cameras stale", stale, total)
	}
	return check
}

type databaseChecker struct {
	db *sql.DB
}

// NewDatabaseChecker reports whether the observation store responds
func NewDatabaseChecker(db *sql.DB) Checker {
	return &databaseChecker{db: db}
}

func (c *databaseChecker) Check() Check {
	check := Check{Name: "database"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.db.PingContext(ctx); err != nil {
		check.State = StateDown
		check.Detail = "database unreachable"
		return check
	}
	check.State = StateOK
	return check
}

type registryChecker struct {
	registry *airports.Registry
}

// NewRegistryChecker reports whether the airport registry is loaded
func NewRegistryChecker(registry *airports.Registry) Checker {
	return &registryChecker{registry: registry}
}

func (c *registryChecker) Check() Check {
	check := Check{Name: "registry"}

	if c.registry == nil || c.registry.Count() == 0 {
		check.State = StateDown
		check.Detail = "airport registry not loaded"
		return check
	}
	check.State = StateOK
	check.Detail = fmt.Sprintf("%d airports loaded", c.registry.Count())
	return check
}
