package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-hazard-monitor/internal/domain"
	"github.com/couchcryptid/weather-hazard-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// currentFields and hourlyFields are the comma-joined field lists requested
// from the provider. They must stay in sync with the payload structs below.
const (
	currentFields = "temperature_2m,relative_humidity_2m,rain,weather_code,wind_speed_10m"
	hourlyFields  = "precipitation_probability,precipitation"
)

// hourlyTimeLayout is the ISO8601 variant Open-Meteo uses for hourly time
// axes (no zone suffix; values are UTC with the default timezone parameter).
const hourlyTimeLayout = "2006-01-02T15:04"

// Client fetches weather readings from the Open-Meteo forecast API.
// It performs exactly one request per FetchReading call; retry policy belongs
// to the polling controller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. baseURL may be empty to use the
// public API endpoint.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchReading requests current conditions and the one-day hourly forecast
// for the given coordinate. Failures are typed: domain.NetworkError for
// transport errors, domain.StatusError for non-2xx responses and
// domain.MalformedError for bodies that cannot be decoded or lack the
// mandatory current block.
func (c *Client) FetchReading(ctx context.Context, coords domain.Coordinates) (domain.Reading, error) {
	params := url.Values{
		"latitude":      {strconv.FormatFloat(coords.Latitude, 'f', -1, 64)},
		"longitude":     {strconv.FormatFloat(coords.Longitude, 'f', -1, 64)},
		"current":       {currentFields},
		"hourly":        {hourlyFields},
		"forecast_days": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, "network_error")
		return domain.Reading{}, &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.observe(start, "status_error")
		return domain.Reading{}, &domain.StatusError{Code: resp.StatusCode}
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.observe(start, "malformed_response")
		return domain.Reading{}, &domain.MalformedError{Reason: "invalid JSON body", Err: err}
	}

	reading, err := c.buildReading(payload)
	if err != nil {
		c.observe(start, "malformed_response")
		return domain.Reading{}, err
	}

	c.observe(start, "success")
	return reading, nil
}

// buildReading converts the wire payload into a domain Reading. The current
// block is mandatory; the hourly block is optional but must be internally
// aligned when present.
func (c *Client) buildReading(payload forecastResponse) (domain.Reading, error) {
	if payload.Current == nil {
		return domain.Reading{}, &domain.MalformedError{Reason: "missing current block"}
	}

	now := c.clock.Now()
	reading := domain.Reading{
		FetchedAt: now,
		Current: domain.Current{
			TemperatureC: payload.Current.Temperature,
			HumidityPct:  payload.Current.Humidity,
			WindSpeedKph: payload.Current.WindSpeed,
			RainMm:       payload.Current.Rain,
			WeatherCode:  payload.Current.WeatherCode,
			Condition:    domain.WeatherDescription(payload.Current.WeatherCode),
		},
	}

	if payload.Hourly == nil {
		return reading, nil
	}

	hourly, err := buildHourly(*payload.Hourly, now)
	if err != nil {
		return domain.Reading{}, err
	}
	reading.Hourly = hourly
	return reading, nil
}

// buildHourly validates array alignment and drops samples already in the
// past, so the sequence is chronologically ordered from "now". Samples for
// the hour in progress are kept.
func buildHourly(h hourlyPayload, now time.Time) ([]domain.HourlySample, error) {
	if len(h.Time) != len(h.PrecipitationProbability) || len(h.Time) != len(h.Precipitation) {
		return nil, &domain.MalformedError{Reason: fmt.Sprintf(
			"hourly arrays misaligned: %d times, %d probabilities, %d amounts",
			len(h.Time), len(h.PrecipitationProbability), len(h.Precipitation),
		)}
	}

	cutoff := now.UTC().Truncate(time.Hour)
	samples := make([]domain.HourlySample, 0, len(h.Time))
	for i, ts := range h.Time {
		t, err := time.Parse(hourlyTimeLayout, ts)
		if err != nil {
			return nil, &domain.MalformedError{Reason: "invalid hourly timestamp " + ts, Err: err}
		}
		if t.Before(cutoff) {
			continue
		}
		samples = append(samples, domain.HourlySample{
			Time:              t,
			PrecipProbability: h.PrecipitationProbability[i],
			PrecipitationMm:   h.Precipitation[i],
		})
	}
	return samples, nil
}

func (c *Client) observe(start time.Time, outcome string) {
	c.metrics.FetchDuration.Observe(c.clock.Since(start).Seconds())
	if outcome != "success" {
		c.logger.Warn("weather fetch failed", "outcome", outcome)
	}
}

// Open-Meteo API response types. A missing "rain" field decodes to 0, which
// the rule engine treats as no rain.

type forecastResponse struct {
	Current *currentPayload `json:"current"`
	Hourly  *hourlyPayload  `json:"hourly"`
}

type currentPayload struct {
	Temperature float64 `json:"temperature_2m"`
	Humidity    float64 `json:"relative_humidity_2m"`
	Rain        float64 `json:"rain"`
	WeatherCode int     `json:"weather_code"`
	WindSpeed   float64 `json:"wind_speed_10m"`
}

type hourlyPayload struct {
	Time                     []string  `json:"time"`
	PrecipitationProbability []float64 `json:"precipitation_probability"`
	Precipitation            []float64 `json:"precipitation"`
}
