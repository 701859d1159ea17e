package status

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aviationwx/aviationwx/internal/airports"
	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/storage/sqlite"
	"github.com/aviationwx/aviationwx/internal/weather"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

type fakeWeather struct {
	started bool
	snaps   []*weather.Snapshot
	breaker string
}

func (f *fakeWeather) IsStarted() bool { return f.started }

func (f *fakeWeather) Snapshots() []*weather.Snapshot { return f.snaps }

func (f *fakeWeather) BreakerState() string { return f.breaker }

type fakeWebcams struct {
	stale, total int
}

func (f *fakeWebcams) StaleCounts() (int, int) { return f.stale, f.total }

type staticChecker struct {
	check Check
}

func (s staticChecker) Check() Check { return s.check }

func testStorage(t *testing.T) *sqlite.StatusStorage {
	t.Helper()
	obs, err := sqlite.NewObservationStorage(filepath.Join(t.TempDir(), "test.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { obs.Close() })
	return sqlite.NewStatusStorage(obs.GetDB(), logger.NewNop())
}

func TestWeatherChecker(t *testing.T) {
	fresh := &weather.Snapshot{LastUpdated: time.Now()}
	stale := &weather.Snapshot{LastUpdated: time.Now().Add(-2 * time.Hour)}
	maxAge := 30 * time.Minute

	tests := []struct {
		name      string
		svc       *fakeWeather
		wantState string
	}{
		{"not started", &fakeWeather{started: false}, StateDown},
		{"no data yet", &fakeWeather{started: true}, StateDegraded},
		{"all fresh", &fakeWeather{started: true, snaps: []*weather.Snapshot{fresh, fresh}}, StateOK},
		{"partially stale", &fakeWeather{started: true, snaps: []*weather.Snapshot{fresh, stale}}, StateDegraded},
		{"all stale", &fakeWeather{started: true, snaps: []*weather.Snapshot{stale, stale}}, StateDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewWeatherChecker(tt.svc, maxAge).Check()
			if check.State != tt.wantState {
				t.Errorf("state = %q, want %q (%s)", check.State, tt.wantState, check.Detail)
			}
			if check.Name != "weather" {
				t.Errorf("name = %q", check.Name)
			}
		})
	}
}

func TestUpstreamChecker(t *testing.T) {
	if check := NewUpstreamChecker(&fakeWeather{breaker: "closed"}).Check(); check.State != StateOK {
		t.Errorf("closed breaker = %q, want ok", check.State)
	}
	if check := NewUpstreamChecker(&fakeWeather{breaker: "open"}).Check(); check.State != StateDegraded {
		t.Errorf("open breaker = %q, want degraded", check.State)
	}
	if check := NewUpstreamChecker(&fakeWeather{breaker: "half-open"}).Check(); check.State != StateDegraded {
		t.Errorf("half-open breaker = %q, want degraded", check.State)
	}
}

func TestWebcamChecker(t *testing.T) {
	tests := []struct {
		name      string
		stale     int
		total     int
		wantState string
	}{
		{"no cameras", 0, 0, StateOK},
		{"all current", 0, 3, StateOK},
		{"some stale", 1, 3, StateDegraded},
		{"all stale", 3, 3, StateDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewWebcamChecker(&fakeWebcams{tt.stale, tt.total}).Check()
			if check.State != tt.wantState {
				t.Errorf("state = %q, want %q", check.State, tt.wantState)
			}
		})
	}
}

func TestDatabaseChecker(t *testing.T) {
	obs, err := sqlite.NewObservationStorage(filepath.Join(t.TempDir(), "test.db"), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer obs.Close()

	if check := NewDatabaseChecker(obs.GetDB()).Check(); check.State != StateOK {
		t.Errorf("state = %q, want ok (%s)", check.State, check.Detail)
	}
}

func TestRegistryChecker(t *testing.T) {
	if check := NewRegistryChecker(nil).Check(); check.State != StateDown {
		t.Errorf("nil registry = %q, want down", check.State)
	}
	if check := NewRegistryChecker(&airports.Registry{}).Check(); check.State != StateDown {
		t.Errorf("empty registry = %q, want down", check.State)
	}
}

func TestReportAggregation(t *testing.T) {
	tests := []struct {
		name    string
		states  []string
		overall string
	}{
		{"all ok", []string{StateOK, StateOK}, StateOK},
		{"one degraded", []string{StateOK, StateDegraded, StateOK}, StateDegraded},
		{"down wins", []string{StateDegraded, StateDown, StateOK}, StateDown},
		{"no checkers", nil, StateOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(config.StatusConfig{SampleIntervalMinutes: 5}, nil, logger.NewNop())
			for i, state := range tt.states {
				m.Register(staticChecker{Check{Name: string(rune('a' + i)), State: state}})
			}

			report := m.Report()
			if report.Overall != tt.overall {
				t.Errorf("overall = %q, want %q", report.Overall, tt.overall)
			}
			if len(report.Components) != len(tt.states) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.states))
			}
			if report.GeneratedAt.IsZero() {
				t.Error("generated_at should be set")
			}
		})
	}
}

func TestSamplePersistsHistory(t *testing.T) {
	storage := testStorage(t)
	m := NewMonitor(config.StatusConfig{SampleIntervalMinutes: 5}, storage, logger.NewNop())
	m.Register(staticChecker{Check{Name: "weather", State: StateOK, Detail: "tracking 2 airports"}})
	m.Register(staticChecker{Check{Name: "database", State: StateDegraded}})

	m.sample()

	history, err := m.History(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("overall samples = %d, want 1", len(history))
	}
	if history[0].State != StateDegraded {
		t.Errorf("overall state = %q, want degraded", history[0].State)
	}

	weatherSamples, err := storage.GetSince("weather", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(weatherSamples) != 1 || weatherSamples[0].Detail != "tracking 2 airports" {
		t.Errorf("weather samples = %+v", weatherSamples)
	}
}

type captureNotifier struct {
	reports []*Report
}

func (c *captureNotifier) StatusUpdated(report *Report) { c.reports = append(c.reports, report) }

func TestSampleNotifies(t *testing.T) {
	m := NewMonitor(config.StatusConfig{SampleIntervalMinutes: 5}, nil, logger.NewNop())
	m.Register(staticChecker{Check{Name: "weather", State: StateDegraded}})

	notifier := &captureNotifier{}
	m.SetNotifier(notifier)

	m.sample()

	if len(notifier.reports) != 1 {
		t.Fatalf("notified reports = %d, want 1", len(notifier.reports))
	}
	if notifier.reports[0].Overall != StateDegraded {
		t.Errorf("notified overall = %q, want degraded", notifier.reports[0].Overall)
	}
}

func TestMonitorLifecycle(t *testing.T) {
	m := NewMonitor(config.StatusConfig{SampleIntervalMinutes: 60}, testStorage(t), logger.NewNop())
	m.Register(staticChecker{Check{Name: "weather", State: StateOK}})

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err == nil {
		t.Error("second Start should fail")
	}
	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("repeated Stop should be a no-op: %v", err)
	}
}
