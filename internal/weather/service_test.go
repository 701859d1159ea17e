package weather

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

func testAirport(ident string) *airports.Airport {
	return &airports.Airport{
		Ident:     ident,
		Name:      "Scappoose Industrial Airpark",
		ICAO:      "KSPB",
		Latitude:  45.771,
		Longitude: -122.862,
		WeatherSource: airports.WeatherSource{
			Type:    airports.SourceMETAR,
			Station: "KSPB",
		},
		Published: true,
	}
}

const serviceRegistryJSON = `{
  "airports": {
    "kspb": {
      "name": "Scappoose Industrial Airpark",
      "icao": "KSPB",
      "lat": 45.771,
      "lon": -122.862,
      "weather_source": {"type": "metar", "station": "KSPB"},
      "published": true
    },
    "khio": {
      "name": "Hillsboro Airport",
      "icao": "KHIO",
      "lat": 45.540,
      "lon": -122.949,
      "weather_source": {"type": "metar"},
      "published": true
    }
  }
}`

func testRegistry(t *testing.T) *airports.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airports.json")
	if err := os.WriteFile(path, []byte(serviceRegistryJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := airports.LoadRegistry(path, logger.NewNop())
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	return reg
}

type fakeRecorder struct {
	mu      sync.Mutex
	inserts []*Observation
}

func (r *fakeRecorder) Insert(obs *Observation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts = append(r.inserts, obs)
	return true, nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserts)
}

type fakeNotifier struct {
	mu     sync.Mutex
	idents []string
}

func (n *fakeNotifier) WeatherUpdated(snap *Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.idents = append(n.idents, snap.Ident)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.idents)
}

func TestServiceLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("ids")
		switch r.URL.Path {
		case "/metar":
			fmt.Fprintf(w, `[{"icaoId": %q, "obsTime": 1755885180, "wdir": 150, "wspd": 8,
				"visib": 10, "temp": 22.2, "dewp": 12.8, "altim": 1016.9,
				"rawOb": "%s 221753Z 15008KT 10SM SCT050 22/12 A3003"}]`, ids, ids)
		case "/taf":
			fmt.Fprintf(w, `[{"icaoId": %q, "rawTAF": "%s 221720Z 2218/2318 15008KT P6SM SCT050"}]`, ids, ids)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.RefreshIntervalMinutes = 60 // no ticker refresh during the test

	rec := &fakeRecorder{}
	not := &fakeNotifier{}
	svc := NewService(cfg, testRegistry(t), logger.NewNop())
	svc.SetRecorder(rec)
	svc.SetNotifier(not)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	if !svc.IsStarted() {
		t.Error("IsStarted false after Start")
	}

	// GetSnapshot blocks until the initial sweep completes
	snap := svc.GetSnapshot("kspb")
	if len(snap.FetchErrors) != 0 {
		t.Fatalf("FetchErrors = %v", snap.FetchErrors)
	}
	if snap.METAR == nil || snap.TAF == nil {
		t.Fatalf("incomplete snapshot: metar=%v taf=%v", snap.METAR != nil, snap.TAF != nil)
	}
	if snap.Decoded == nil || snap.Decoded.FlightCategory != CategoryVFR {
		t.Errorf("Decoded = %+v", snap.Decoded)
	}

	if got := len(svc.Snapshots()); got != 2 {
		t.Errorf("Snapshots() returned %d entries, want 2", got)
	}

	// One observation and one notification per airport
	if rec.count() != 2 {
		t.Errorf("recorder saw %d inserts, want 2", rec.count())
	}
	if not.count() != 2 {
		t.Errorf("notifier saw %d updates, want 2", not.count())
	}

	// A sweep with identical upstream data records and notifies nothing
	svc.refreshAll()
	if rec.count() != 2 {
		t.Errorf("unchanged sweep added inserts: %d", rec.count())
	}
	if not.count() != 2 {
		t.Errorf("unchanged sweep added notifications: %d", not.count())
	}

	if svc.IsStale("kspb", time.Minute) {
		t.Error("fresh snapshot reported stale")
	}
	if !svc.IsStale("zzzz", time.Minute) {
		t.Error("unknown airport not reported stale")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if svc.IsStarted() {
		t.Error("IsStarted true after Stop")
	}
}

func TestGetSnapshotUnknownAirport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.RefreshIntervalMinutes = 60
	cfg.MaxRetries = 0

	svc := NewService(cfg, testRegistry(t), logger.NewNop())
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	snap := svc.GetSnapshot("zzzz")
	if snap == nil {
		t.Fatal("GetSnapshot returned nil")
	}
	if len(snap.FetchErrors) == 0 {
		t.Error("expected FetchErrors for uncached airport")
	}
}
