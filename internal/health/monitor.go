// Package health runs a scheduled connectivity probe against the
// upstream org and exposes the latest result to the admin endpoint.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oktamcp/oktamcp/internal/audit"
)

// Pinger is the probe target. *okta.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the outcome of the most recent probe.
type Status struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
	Latency   string    `json:"latency,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Monitor probes the upstream on a cron schedule. A probe that is
// still running when the next tick fires is not run twice.
type Monitor struct {
	pinger  Pinger
	logger  *slog.Logger
	auditor *audit.Logger
	timeout time.Duration

	mu      sync.Mutex
	running sync.Mutex
	status  Status
	cron    *cron.Cron
	cancel  context.CancelFunc
}

// NewMonitor creates a monitor. auditor may be nil.
func NewMonitor(p Pinger, logger *slog.Logger, auditor *audit.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		pinger:  p,
		logger:  logger,
		auditor: auditor,
		timeout: 15 * time.Second,
	}
}

// Start schedules the probe with a 5-field cron expression and runs an
// immediate first probe so Status is populated before the first tick.
func (m *Monitor) Start(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	m.cron = cron.New(cron.WithParser(parser))

	_, err := m.cron.AddFunc(schedule, func() {
		if !m.running.TryLock() {
			m.logger.Warn("health probe still running, skipping tick")
			return
		}
		defer m.running.Unlock()
		m.probe(ctx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("health: invalid schedule %q: %w", schedule, err)
	}

	go func() {
		m.running.Lock()
		defer m.running.Unlock()
		m.probe(ctx)
	}()

	m.cron.Start()
	m.logger.Info("health monitor started", "schedule", schedule)
	return nil
}

// Stop shuts the scheduler down, waiting for an in-flight probe.
func (m *Monitor) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	if m.cron != nil {
		<-m.cron.Stop().Done()
		m.logger.Info("health monitor stopped")
	}
	return nil
}

// Status returns the most recent probe outcome. Before the first probe
// completes, Healthy is false with a zero CheckedAt.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Probe runs one probe immediately, outside the schedule.
func (m *Monitor) Probe(ctx context.Context) Status {
	m.probe(ctx)
	return m.Status()
}

func (m *Monitor) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.pinger.Ping(ctx)
	latency := time.Since(start)

	st := Status{
		Healthy:   err == nil,
		CheckedAt: time.Now().UTC(),
		Latency:   latency.Round(time.Millisecond).String(),
	}
	if err != nil {
		st.Error = err.Error()
		m.logger.Warn("upstream probe failed", "error", err, "latency", latency)
	} else {
		m.logger.Debug("upstream probe ok", "latency", latency)
	}

	if m.auditor != nil {
		detail := "upstream reachable"
		if err != nil {
			detail = "upstream unreachable: " + err.Error()
		}
		m.auditor.Log(audit.Event{
			Type:   audit.EventHealth,
			Detail: detail,
			Metadata: map[string]string{
				"healthy": fmt.Sprintf("%v", err == nil),
				"latency": st.Latency,
			},
		})
	}

	m.mu.Lock()
	m.status = st
	m.mu.Unlock()
}
