package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aviationwx/aviationwx/internal/config"
	"github.com/aviationwx/aviationwx/internal/storage/sqlite"
	"github.com/aviationwx/aviationwx/pkg/logger"
)

// Component states, worst last
const (
	StateOK       = "ok"
	StateDegraded = "degraded"
	StateDown     = "down"
)

// Check is the probed state of one subsystem
type Check struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// Checker probes one subsystem
type Checker interface {
	Check() Check
}

// Notifier receives each sampled report, typically to push it to
// connected WebSocket clients
type Notifier interface {
	StatusUpdated(report *Report)
}

// Report is the aggregated health picture served at /status.json
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Overall     string    `json:"overall"`
	Components  []Check   `json:"components"`
}

// Monitor runs the registered checkers on demand and samples their
// states into storage for the availability history
type Monitor struct {
	config   config.StatusConfig
	storage  *sqlite.StatusStorage
	logger   *logger.Logger
	checkers []Checker
	notifier Notifier

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewMonitor creates a health monitor. Storage may be nil, in which
// case no samples are persisted.
func NewMonitor(cfg config.StatusConfig, storage *sqlite.StatusStorage, log *logger.Logger) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		config:  cfg,
		storage: storage,
		logger:  log.Named("status"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds checkers. Call before Start.
func (m *Monitor) Register(checkers ...Checker) {
	m.checkers = append(m.checkers, checkers...)
}

// SetNotifier sets the notifier for sampled reports. Call before Start.
func (m *Monitor) SetNotifier(notifier Notifier) {
	m.notifier = notifier
}

// Report probes every registered checker and aggregates the result.
// The overall state is the worst component state.
func (m *Monitor) Report() *Report {
	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Overall:     StateOK,
		Components:  make([]Check, 0, len(m.checkers)),
	}

	for _, checker := range m.checkers {
		check := checker.Check()
		report.Components = append(report.Components, check)
		if worse(check.State, report.Overall) {
			report.Overall = check.State
		}
	}
	return report
}

// worse reports whether state a is worse than state b
func worse(a, b string) bool {
	return severity(a) > severity(b)
}

func severity(state string) int {
	switch state {
	case StateDown:
		return 2
	case StateDegraded:
		return 1
	default:
		return 0
	}
}

// Start begins the background sampling loop
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("status monitor already started")
	}
	m.started = true

	m.wg.Add(1)
	go m.sampleLoop()

	m.logger.Info("Status monitor started",
		logger.Int("checkers", len(m.checkers)),
		logger.Int("sample_interval_minutes", m.config.SampleIntervalMinutes))
	return nil
}

// Stop ends the sampling loop
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.cancel()
	m.wg.Wait()
	m.started = false
	m.logger.Info("Status monitor stopped")
	return nil
}

func (m *Monitor) sampleLoop() {
	defer m.wg.Done()

	interval := time.Duration(m.config.SampleIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.sample()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

// sample records the current state of every component, plus the
// aggregate under the "overall" name
func (m *Monitor) sample() {
	report := m.Report()

	if m.notifier != nil {
		m.notifier.StatusUpdated(report)
	}

	if m.storage == nil {
		return
	}

	now := time.Now().UTC()

	for _, check := range report.Components {
		err := m.storage.Insert(&sqlite.StatusSample{
			Component: check.Name,
			State:     check.State,
			Detail:    check.Detail,
			SampledAt: now,
		})
		if err != nil {
			m.logger.Error("Failed to record status sample",
				logger.String("component", check.Name),
				logger.Error(err))
		}
	}

	err := m.storage.Insert(&sqlite.StatusSample{
		Component: "overall",
		State:     report.Overall,
		SampledAt: now,
	})
	if err != nil {
		m.logger.Error("Failed to record overall status sample", logger.Error(err))
	}
}

// History returns the stored overall samples for the availability
// strip, oldest first
func (m *Monitor) History(since time.Time) ([]*sqlite.StatusSample, error) {
	if m.storage == nil {
		return nil, nil
	}
	return m.storage.GetSince("overall", since)
}
