package monitor

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/weather-hazard-monitor/internal/domain"
	"github.com/couchcryptid/weather-hazard-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ReadingFetcher retrieves one weather reading for a coordinate.
type ReadingFetcher interface {
	FetchReading(ctx context.Context, coords domain.Coordinates) (domain.Reading, error)
}

// StrongAlertNotifier is the host side channel for high-severity alerts
// (device vibration, desktop notification, or similar). It fires at most
// once per successful poll, and never for medium-only or empty alert sets.
type StrongAlertNotifier interface {
	NotifyStrongAlert(ctx context.Context, alerts []domain.Alert)
}

// Trigger identifies what initiated a poll.
type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerManual  Trigger = "manual"
	TriggerAuto    Trigger = "auto"
)

// Subscriber receives a PollState snapshot after every state transition.
// Callbacks run synchronously on the polling goroutine and must return
// quickly.
type Subscriber func(domain.PollState)

// Monitor owns the single PollState and drives all transitions: the initial
// fetch, manual refreshes, and the recurring auto-refresh timer.
//
// Overlapping polls are allowed; there is no in-flight guard and no request
// cancellation. Whichever fetch completes last overwrites the state
// (last-writer-wins), an accepted tradeoff since readings only matter to
// within minutes of freshness.
type Monitor struct {
	fetcher  ReadingFetcher
	coords   domain.Coordinates
	notifier StrongAlertNotifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	interval time.Duration

	mu        sync.Mutex
	state     domain.PollState
	subs      []Subscriber
	stopTimer context.CancelFunc
}

// New creates a Monitor in the idle state. Pass a nil notifier to disable the
// strong-alert side channel.
func New(fetcher ReadingFetcher, coords domain.Coordinates, notifier StrongAlertNotifier, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, interval time.Duration) *Monitor {
	return &Monitor{
		fetcher:  fetcher,
		coords:   coords,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
		interval: interval,
		state:    domain.NewPollState(),
	}
}

// Start issues the first fetch in the background. The monitor keeps serving
// state regardless of the outcome; polling only ever stops through
// SetAutoRefresh(false) or process shutdown.
func (m *Monitor) Start(ctx context.Context) {
	go m.Refresh(ctx, TriggerInitial)
}

// State returns a snapshot of the current poll state.
func (m *Monitor) State() domain.PollState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a callback invoked with a snapshot after every
// transition.
func (m *Monitor) Subscribe(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// CheckReadiness returns nil once at least one poll has succeeded.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Reading == nil {
		return errors.New("no successful weather poll yet")
	}
	return nil
}

// TriggerManualRefresh starts a user-initiated poll. Always allowed,
// including while another poll is still in flight.
func (m *Monitor) TriggerManualRefresh() {
	go m.Refresh(context.Background(), TriggerManual)
}

// Refresh performs one complete poll: transition to loading, fetch, then
// apply the success or error transition. Fetch failures are non-fatal and
// surface only through PollState.Error.
func (m *Monitor) Refresh(ctx context.Context, trigger Trigger) {
	m.transition(func(s *domain.PollState) {
		s.Status = domain.StatusLoading
	})

	reading, err := m.fetcher.FetchReading(ctx, m.coords)
	if err != nil {
		outcome := domain.ClassifyFetchError(err)
		m.logger.Warn("poll failed", "trigger", trigger, "outcome", outcome, "error", err)
		m.metrics.PollsTotal.WithLabelValues(string(trigger), outcome).Inc()

		// Keep the previous reading, alerts, and last-updated time; only the
		// status and error text reflect the failed attempt.
		m.transition(func(s *domain.PollState) {
			s.Status = domain.StatusErrored
			s.Error = err.Error()
		})
		return
	}

	alerts := domain.DeriveAlerts(reading)
	now := m.clock.Now()
	m.transition(func(s *domain.PollState) {
		s.Status = domain.StatusSuccess
		s.Reading = &reading
		s.Alerts = alerts
		s.Error = ""
		s.LastUpdated = &now
	})

	m.metrics.PollsTotal.WithLabelValues(string(trigger), "success").Inc()
	m.metrics.ActiveAlerts.Set(float64(len(alerts)))
	m.metrics.LastSuccessTime.Set(float64(now.Unix()))
	m.logger.Info("poll succeeded", "trigger", trigger, "alerts", len(alerts))

	if domain.HasHighSeverity(alerts) {
		m.metrics.StrongAlertSignals.Inc()
		if m.notifier != nil {
			m.notifier.NotifyStrongAlert(ctx, alerts)
		}
	}
}

// SetAutoRefresh starts or stops the recurring poll timer. The timer is a
// single cancellable resource: disabling cancels it outright, so no fetch
// fires from it afterwards, even if a tick was already pending.
func (m *Monitor) SetAutoRefresh(enabled bool) {
	m.mu.Lock()
	if m.state.AutoRefreshEnabled == enabled {
		m.mu.Unlock()
		return
	}
	m.state.AutoRefreshEnabled = enabled

	if enabled {
		ctx, cancel := context.WithCancel(context.Background())
		m.stopTimer = cancel
		go m.runTimer(ctx)
	} else if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}

	snap := m.snapshotLocked()
	subs := slices.Clone(m.subs)
	m.mu.Unlock()

	gauge := 0.0
	if enabled {
		gauge = 1
	}
	m.metrics.AutoRefreshEnabled.Set(gauge)
	m.logger.Info("auto-refresh toggled", "enabled", enabled, "interval", m.interval)

	for _, fn := range subs {
		fn(snap)
	}
}

func (m *Monitor) runTimer(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// A tick may already be buffered when the timer is disabled;
			// re-check the flag so disablement means no further fetches.
			if !m.autoRefreshOn() {
				return
			}
			m.Refresh(context.WithoutCancel(ctx), TriggerAuto)
		}
	}
}

func (m *Monitor) autoRefreshOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AutoRefreshEnabled
}

// transition applies a mutation to the state under the lock, then notifies
// subscribers with the resulting snapshot outside it.
func (m *Monitor) transition(apply func(*domain.PollState)) {
	m.mu.Lock()
	apply(&m.state)
	snap := m.snapshotLocked()
	subs := slices.Clone(m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// snapshotLocked copies the state, cloning the alert slice so callers can
// never observe a later in-place update. Callers must hold mu.
func (m *Monitor) snapshotLocked() domain.PollState {
	snap := m.state
	snap.Alerts = slices.Clone(m.state.Alerts)
	return snap
}
