package airports

import (
	"strings"
)

// Weather source types
const (
	SourceMETAR  = "metar"  // NWS/aviationweather.gov METAR for a station ID
	SourceCustom = "custom" // raw METAR string fetched from an arbitrary URL
)

// Webcam ingestion modes
const (
	ModePull = "pull" // server fetches frames from the camera's URL
	ModePush = "push" // camera uploads frames, identified by MAC address
)

// Airport is a single registry entry. The JSON encoding of this struct is
// the airports.json schema, and the config generator emits fragments of it.
type Airport struct {
	// Ident is the registry key (lowercase, e.g. "kspb"). It is not part
	// of the JSON object body and is set when the registry is loaded.
	Ident string `json:"-"`

	Name        string  `json:"name" validate:"required"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	ICAO        string  `json:"icao,omitempty" validate:"omitempty,icao_code"`
	IATA        string  `json:"iata,omitempty" validate:"omitempty,iata_code"`
	FAA         string  `json:"faa,omitempty" validate:"omitempty,faa_code"`
	Latitude    float64 `json:"lat" validate:"latitude"`
	Longitude   float64 `json:"lon" validate:"longitude"`
	ElevationFt int     `json:"elevation_ft,omitempty" validate:"gte=-1500,lte=30000"`
	Timezone    string  `json:"timezone,omitempty" validate:"omitempty,timezone"`

	WeatherSource WeatherSource `json:"weather_source" validate:"required"`
	Webcams       []Webcam      `json:"webcams,omitempty" validate:"dive"`
	Runways       []Runway      `json:"runways,omitempty" validate:"dive"`
	Frequencies   []Frequency   `json:"frequencies,omitempty" validate:"dive"`
	Services      Services      `json:"services,omitempty"`
	Partners      []Partner     `json:"partners,omitempty" validate:"dive"`
	Links         []Link        `json:"links,omitempty" validate:"dive"`

	// Published airports appear in the directory, search and sitemap.
	// Unpublished ones still render at their direct URL.
	Published bool `json:"published"`
}

// WeatherSource describes where an airport's weather comes from
type WeatherSource struct {
	Type    string `json:"type" validate:"required,oneof=metar custom"`
	Station string `json:"station,omitempty" validate:"omitempty,icao_code"`
	URL     string `json:"url,omitempty" validate:"omitempty,url"`
}

// Webcam describes one camera at an airport
type Webcam struct {
	ID              string `json:"id" validate:"required,cam_id"`
	Name            string `json:"name,omitempty"`
	Mode            string `json:"mode" validate:"required,oneof=pull push"`
	URL             string `json:"url,omitempty" validate:"required_if=Mode pull,omitempty,url"`
	MAC             string `json:"mac,omitempty" validate:"required_if=Mode push,omitempty,mac"`
	IntervalSeconds int    `json:"interval_seconds,omitempty" validate:"omitempty,gte=5,lte=3600"`
}

// Runway describes one runway as a pair of reciprocal ends, e.g. "16/34".
// Heading is the magnetic heading of the lower-numbered end.
type Runway struct {
	Ident         string  `json:"ident" validate:"required,runway_ident"`
	HeadingDegMag float64 `json:"heading_deg_mag" validate:"gte=0,lt=360"`
	LengthFt      int     `json:"length_ft,omitempty" validate:"omitempty,gt=0"`
	WidthFt       int     `json:"width_ft,omitempty" validate:"omitempty,gt=0"`
	Surface       string  `json:"surface,omitempty"`
	Lighted       bool    `json:"lighted,omitempty"`
}

// Frequency describes a published radio frequency
type Frequency struct {
	Type string  `json:"type" validate:"required,oneof=ctaf unicom tower ground atis asos awos clearance approach other"`
	Name string  `json:"name,omitempty"`
	MHz  float64 `json:"mhz" validate:"gte=108,lte=136.975"`
}

// Services describes on-field amenities shown on the dashboard
type Services struct {
	Fuel         []string `json:"fuel,omitempty"`
	Repairs      bool     `json:"repairs,omitempty"`
	FlightSchool bool     `json:"flight_school,omitempty"`
	CourtesyCar  bool     `json:"courtesy_car,omitempty"`
	Food         string   `json:"food,omitempty"`
}

// Partner is a sponsoring business linked from the dashboard footer
type Partner struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
	Logo string `json:"logo,omitempty"`
}

// Link is an arbitrary labeled URL shown in the dashboard sidebar
type Link struct {
	Label string `json:"label" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
}

// DisplayCode returns the code shown in titles and badges, preferring
// ICAO, then FAA, then IATA, then the registry ident.
func (a *Airport) DisplayCode() string {
	switch {
	case a.ICAO != "":
		return a.ICAO
	case a.FAA != "":
		return a.FAA
	case a.IATA != "":
		return a.IATA
	default:
		return strings.ToUpper(a.Ident)
	}
}

// Station returns the METAR station ID for the airport, falling back to
// the ICAO code when the weather source does not name one.
func (a *Airport) Station() string {
	if a.WeatherSource.Station != "" {
		return a.WeatherSource.Station
	}
	return a.ICAO
}

// HasWebcams reports whether the airport has at least one camera configured
func (a *Airport) HasWebcams() bool {
	return len(a.Webcams) > 0
}

// Webcam returns the camera with the given ID, or nil
func (a *Airport) Webcam(id string) *Webcam {
	for i := range a.Webcams {
		if a.Webcams[i].ID == id {
			return &a.Webcams[i]
		}
	}
	return nil
}

// Location returns "City, State" when both are set, otherwise whichever
// is present, otherwise an empty string.
func (a *Airport) Location() string {
	switch {
	case a.City != "" && a.State != "":
		return a.City + ", " + a.State
	case a.City != "":
		return a.City
	default:
		return a.State
	}
}
