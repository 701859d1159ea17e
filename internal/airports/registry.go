package airports

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

// ErrUnknownAirport is returned when an ident is not in the registry
var ErrUnknownAirport = errors.New("unknown airport")

var identPattern = regexp.MustCompile(`^[a-z0-9]{3,4}$`)

// ValidIdent reports whether s is usable as a registry ident
func ValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// registryFile is the on-disk shape of airports.json
type registryFile struct {
	Airports map[string]*Airport `json:"airports"`
}

// Registry holds all configured airports, keyed by lowercase ident.
// It is immutable after loading, so lookups need no locking.
type Registry struct {
	path      string
	byIdent   map[string]*Airport
	idents    []string // sorted
	published []string // sorted, Published only
	logger    *logger.Logger
}

// LoadRegistry reads and validates the airports.json registry file
func LoadRegistry(path string, log *logger.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read airport registry: %w", err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse airport registry %s: %w", path, err)
	}
	if len(file.Airports) == 0 {
		return nil, fmt.Errorf("airport registry %s contains no airports", path)
	}

	reg := &Registry{
		path:    path,
		byIdent: make(map[string]*Airport, len(file.Airports)),
		logger:  log.Named("registry"),
	}

	for ident, apt := range file.Airports {
		ident = strings.ToLower(strings.TrimSpace(ident))
		if !identPattern.MatchString(ident) {
			return nil, fmt.Errorf("invalid airport ident %q in %s", ident, path)
		}
		apt.Ident = ident
		normalize(apt)
		if errs := ValidateAirport(apt); len(errs) > 0 {
			return nil, fmt.Errorf("airport %q is invalid: %s", ident, strings.Join(errs, "; "))
		}
		reg.byIdent[ident] = apt
		reg.idents = append(reg.idents, ident)
		if apt.Published {
			reg.published = append(reg.published, ident)
		}
	}
	sort.Strings(reg.idents)
	sort.Strings(reg.published)

	reg.logger.Info("Loaded airport registry",
		logger.String("path", path),
		logger.Int("airports", len(reg.idents)),
		logger.Int("published", len(reg.published)))

	return reg, nil
}

// normalize uppercases station codes so lookups and display are uniform
func normalize(a *Airport) {
	a.ICAO = strings.ToUpper(strings.TrimSpace(a.ICAO))
	a.IATA = strings.ToUpper(strings.TrimSpace(a.IATA))
	a.FAA = strings.ToUpper(strings.TrimSpace(a.FAA))
	a.WeatherSource.Station = strings.ToUpper(strings.TrimSpace(a.WeatherSource.Station))
	for i := range a.Webcams {
		a.Webcams[i].MAC = strings.ToLower(strings.TrimSpace(a.Webcams[i].MAC))
	}
}

// Get returns the airport for the given ident (case-insensitive)
func (r *Registry) Get(ident string) (*Airport, error) {
	apt, ok := r.byIdent[strings.ToLower(ident)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAirport, ident)
	}
	return apt, nil
}

// All returns every airport sorted by ident
func (r *Registry) All() []*Airport {
	out := make([]*Airport, 0, len(r.idents))
	for _, ident := range r.idents {
		out = append(out, r.byIdent[ident])
	}
	return out
}

// Published returns all published airports sorted by ident
func (r *Registry) Published() []*Airport {
	out := make([]*Airport, 0, len(r.published))
	for _, ident := range r.published {
		out = append(out, r.byIdent[ident])
	}
	return out
}

// Count returns the number of airports in the registry
func (r *Registry) Count() int {
	return len(r.idents)
}

// Search returns published airports matching the query, best matches
// first. Matching is case-insensitive against ident, station codes,
// name and city. An exact code match ranks above a prefix match, which
// ranks above a substring match.
func (r *Registry) Search(query string, limit int) []*Airport {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type scored struct {
		apt   *Airport
		score int
	}
	var matches []scored

	for _, ident := range r.published {
		apt := r.byIdent[ident]
		score := matchScore(apt, q)
		if score > 0 {
			matches = append(matches, scored{apt, score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].apt.Ident < matches[j].apt.Ident
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*Airport, len(matches))
	for i, m := range matches {
		out[i] = m.apt
	}
	return out
}

func matchScore(a *Airport, q string) int {
	codes := []string{a.Ident, strings.ToLower(a.ICAO), strings.ToLower(a.IATA), strings.ToLower(a.FAA)}
	for _, c := range codes {
		if c == q {
			return 100
		}
	}
	for _, c := range codes {
		if c != "" && strings.HasPrefix(c, q) {
			return 50
		}
	}
	name := strings.ToLower(a.Name)
	city := strings.ToLower(a.City)
	if strings.HasPrefix(name, q) || strings.HasPrefix(city, q) {
		return 25
	}
	if strings.Contains(name, q) || strings.Contains(city, q) {
		return 10
	}
	return 0
}
