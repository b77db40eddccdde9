package monitor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-hazard-monitor/internal/domain"
	"github.com/couchcryptid/weather-hazard-monitor/internal/monitor"
	"github.com/couchcryptid/weather-hazard-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCoords = domain.Coordinates{Latitude: 52.52, Longitude: 13.405}
	baseTime   = time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)
)

// --- stubs ---

type fetchResult struct {
	reading domain.Reading
	err     error
}

// stubFetcher returns queued results in order; the last one repeats.
type stubFetcher struct {
	mu      sync.Mutex
	calls   int
	results []fetchResult
}

func (f *stubFetcher) FetchReading(_ context.Context, _ domain.Coordinates) (domain.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.calls
	f.calls++
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	res := f.results[idx]
	return res.reading, res.err
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu    sync.Mutex
	fired [][]domain.Alert
}

func (n *recordingNotifier) NotifyStrongAlert(_ context.Context, alerts []domain.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fired = append(n.fired, alerts)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.fired)
}

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMonitor(t *testing.T, fetcher monitor.ReadingFetcher, notifier monitor.StrongAlertNotifier, clock clockwork.Clock) *monitor.Monitor {
	t.Helper()
	return monitor.New(fetcher, testCoords, notifier, testLogger(), observability.NewMetricsForTesting(), clock, 10*time.Minute)
}

func clearReading() domain.Reading {
	return domain.Reading{
		FetchedAt: baseTime,
		Current: domain.Current{
			TemperatureC: 20,
			WindSpeedKph: 10,
			WeatherCode:  0,
			Condition:    "Clear sky",
		},
	}
}

func stormyReading() domain.Reading {
	r := clearReading()
	r.Current.RainMm = 7
	r.Current.WindSpeedKph = 45
	return r
}

func drizzleReading() domain.Reading {
	r := clearReading()
	r.Current.RainMm = 2
	return r
}

// subscribeStates registers a subscriber that forwards every snapshot to the
// returned channel.
func subscribeStates(m *monitor.Monitor) <-chan domain.PollState {
	ch := make(chan domain.PollState, 32)
	m.Subscribe(func(s domain.PollState) { ch <- s })
	return ch
}

func waitForStatus(t *testing.T, ch <-chan domain.PollState, want domain.Status) domain.PollState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.Status == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}

func assertNoTransition(t *testing.T, ch <-chan domain.PollState) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected state transition to %q", s.Status)
	case <-time.After(100 * time.Millisecond):
	}
}

// --- tests ---

func TestMonitor_StartsIdle(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))

	state := m.State()
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Nil(t, state.Reading)
	assert.Empty(t, state.Alerts)
	assert.Empty(t, state.Error)
	assert.Nil(t, state.LastUpdated)
	assert.False(t, state.AutoRefreshEnabled)
	assert.Zero(t, fetcher.callCount())
}

func TestMonitor_RefreshSuccess(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: stormyReading()}}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))

	m.Refresh(context.Background(), monitor.TriggerManual)

	state := m.State()
	assert.Equal(t, domain.StatusSuccess, state.Status)
	require.NotNil(t, state.Reading)
	assert.Equal(t, 7.0, state.Reading.Current.RainMm)
	require.Len(t, state.Alerts, 2)
	assert.Equal(t, domain.KindRain, state.Alerts[0].Kind)
	assert.Equal(t, domain.KindWind, state.Alerts[1].Kind)
	assert.Empty(t, state.Error)
	require.NotNil(t, state.LastUpdated)
	assert.Equal(t, baseTime, *state.LastUpdated)
}

func TestMonitor_CalmReadingYieldsEmptyAlerts(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))

	m.Refresh(context.Background(), monitor.TriggerInitial)

	state := m.State()
	assert.Equal(t, domain.StatusSuccess, state.Status)
	assert.Empty(t, state.Alerts)
}

func TestMonitor_FailureKeepsLastGoodReading(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{
		{reading: stormyReading()},
		{err: &domain.StatusError{Code: 502}},
	}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))

	m.Refresh(context.Background(), monitor.TriggerManual)
	firstUpdated := *m.State().LastUpdated

	m.Refresh(context.Background(), monitor.TriggerManual)

	state := m.State()
	assert.Equal(t, domain.StatusErrored, state.Status)
	assert.Equal(t, "weather API returned status 502", state.Error)
	require.NotNil(t, state.Reading, "previous reading must survive a failed poll")
	assert.Equal(t, 7.0, state.Reading.Current.RainMm)
	assert.Len(t, state.Alerts, 2, "alerts still reflect the last reading")
	require.NotNil(t, state.LastUpdated)
	assert.Equal(t, firstUpdated, *state.LastUpdated)
}

func TestMonitor_ErrorClearsOnNextSuccess(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{
		{err: &domain.NetworkError{Err: errors.New("connection refused")}},
		{reading: clearReading()},
	}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))

	m.Refresh(context.Background(), monitor.TriggerInitial)
	assert.Equal(t, domain.StatusErrored, m.State().Status)
	assert.NotEmpty(t, m.State().Error)

	m.Refresh(context.Background(), monitor.TriggerManual)

	state := m.State()
	assert.Equal(t, domain.StatusSuccess, state.Status)
	assert.Empty(t, state.Error)
}

func TestMonitor_SubscriberSeesLoadingThenSuccess(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))

	var states []domain.PollState
	m.Subscribe(func(s domain.PollState) { states = append(states, s) })

	m.Refresh(context.Background(), monitor.TriggerManual)

	require.Len(t, states, 2)
	assert.Equal(t, domain.StatusLoading, states[0].Status)
	assert.Equal(t, domain.StatusSuccess, states[1].Status)
}

func TestMonitor_StrongAlertFiresOncePerSuccessfulPoll(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: stormyReading()}}}
	notifier := &recordingNotifier{}
	m := newTestMonitor(t, fetcher, notifier, clockwork.NewFakeClockAt(baseTime))

	m.Refresh(context.Background(), monitor.TriggerManual)
	assert.Equal(t, 1, notifier.count())

	// A second successful poll with high-severity alerts signals again.
	m.Refresh(context.Background(), monitor.TriggerManual)
	assert.Equal(t, 2, notifier.count())
}

func TestMonitor_NoStrongAlertForMediumOrEmpty(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{
		{reading: drizzleReading()},
		{reading: clearReading()},
		{err: &domain.StatusError{Code: 500}},
	}}
	notifier := &recordingNotifier{}
	m := newTestMonitor(t, fetcher, notifier, clockwork.NewFakeClockAt(baseTime))

	m.Refresh(context.Background(), monitor.TriggerManual) // medium only
	m.Refresh(context.Background(), monitor.TriggerManual) // no alerts
	m.Refresh(context.Background(), monitor.TriggerManual) // failure

	assert.Zero(t, notifier.count())
}

func TestMonitor_AutoRefreshTickTriggersPoll(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	clock := clockwork.NewFakeClockAt(baseTime)
	m := newTestMonitor(t, fetcher, nil, clock)
	states := subscribeStates(m)

	m.SetAutoRefresh(true)
	assert.True(t, m.State().AutoRefreshEnabled)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "timer should be armed")

	clock.Advance(10 * time.Minute)

	waitForStatus(t, states, domain.StatusSuccess)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestMonitor_DisableAutoRefreshStopsTimer(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	clock := clockwork.NewFakeClockAt(baseTime)
	m := newTestMonitor(t, fetcher, nil, clock)

	m.SetAutoRefresh(true)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	m.SetAutoRefresh(false)
	assert.False(t, m.State().AutoRefreshEnabled)

	// Even a tick that fires after disablement must not start a poll.
	states := subscribeStates(m)
	clock.Advance(30 * time.Minute)

	assertNoTransition(t, states)
	assert.Zero(t, fetcher.callCount())
	assert.Equal(t, domain.StatusIdle, m.State().Status)
}

func TestMonitor_SetAutoRefreshIsIdempotent(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	clock := clockwork.NewFakeClockAt(baseTime)
	m := newTestMonitor(t, fetcher, nil, clock)
	states := subscribeStates(m)

	m.SetAutoRefresh(true)
	m.SetAutoRefresh(true) // no second timer, no second notification
	<-states
	assertNoTransition(t, states)

	m.SetAutoRefresh(false)
	m.SetAutoRefresh(false)
	<-states
	assertNoTransition(t, states)
}

func TestMonitor_TriggerManualRefresh(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))
	states := subscribeStates(m)

	m.TriggerManualRefresh()

	waitForStatus(t, states, domain.StatusSuccess)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestMonitor_StartIssuesInitialFetch(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{{reading: clearReading()}}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))
	states := subscribeStates(m)

	m.Start(context.Background())

	waitForStatus(t, states, domain.StatusLoading)
	waitForStatus(t, states, domain.StatusSuccess)
}

func TestMonitor_CheckReadiness(t *testing.T) {
	fetcher := &stubFetcher{results: []fetchResult{
		{err: &domain.StatusError{Code: 503}},
		{reading: clearReading()},
	}}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))

	require.Error(t, m.CheckReadiness(context.Background()))

	m.Refresh(context.Background(), monitor.TriggerInitial)
	require.Error(t, m.CheckReadiness(context.Background()), "a failed poll does not make the monitor ready")

	m.Refresh(context.Background(), monitor.TriggerManual)
	assert.NoError(t, m.CheckReadiness(context.Background()))
}

func TestMonitor_OverlappingPollsLastWriterWins(t *testing.T) {
	gates := []chan domain.Reading{
		make(chan domain.Reading),
		make(chan domain.Reading),
	}
	started := make(chan int, 2)
	fetcher := &gatedFetcher{gates: gates, started: started}
	m := newTestMonitor(t, fetcher, nil, clockwork.NewFakeClockAt(baseTime))
	states := subscribeStates(m)

	// Two overlapping polls: the first-issued fetch resolves last.
	go m.Refresh(context.Background(), monitor.TriggerManual)
	<-started
	go m.Refresh(context.Background(), monitor.TriggerManual)
	<-started

	newer := clearReading()
	newer.Current.TemperatureC = 25
	gates[1] <- newer
	state := waitForStatus(t, states, domain.StatusSuccess)
	assert.Equal(t, 25.0, state.Reading.Current.TemperatureC)

	older := clearReading()
	older.Current.TemperatureC = 15
	gates[0] <- older
	state = waitForStatus(t, states, domain.StatusSuccess)
	assert.Equal(t, 15.0, state.Reading.Current.TemperatureC, "stale completion overwrites newer state")
}

// gatedFetcher blocks each call until the test releases its gate, to
// orchestrate overlapping polls deterministically.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   int
	gates   []chan domain.Reading
	started chan int
}

func (f *gatedFetcher) FetchReading(_ context.Context, _ domain.Coordinates) (domain.Reading, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.mu.Unlock()

	f.started <- idx
	return <-f.gates[idx], nil
}
