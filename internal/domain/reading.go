package domain

import "time"

// Coordinates is a WGS-84 latitude/longitude pair. The monitor watches exactly
// one location, fixed at startup.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Current holds the instantaneous conditions block of a reading.
type Current struct {
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	WindSpeedKph float64 `json:"wind_speed_kph"`
	RainMm       float64 `json:"rain_mm"`
	WeatherCode  int     `json:"weather_code"`
	Condition    string  `json:"condition"`
}

// HourlySample is one hourly forecast point. Probability and amount are
// aligned with Time by construction in the data source client.
type HourlySample struct {
	Time              time.Time `json:"time"`
	PrecipProbability float64   `json:"precipitation_probability_pct"`
	PrecipitationMm   float64   `json:"precipitation_mm"`
}

// Reading is one fetched snapshot of current plus hourly weather fields.
// Readings are immutable value objects; alerts are recomputed fresh from each
// new one and never persisted.
type Reading struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Current   Current        `json:"current"`
	Hourly    []HourlySample `json:"hourly,omitempty"`
}

// Status is the lifecycle phase of the polling controller.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusErrored Status = "error"
)

// PollState is the complete externally observable state of the monitor.
//
// A prior successful reading is retained across later failed polls: only
// Status and Error change on failure. Alerts always reflect the most recent
// reading, not the most recent poll attempt.
type PollState struct {
	Status             Status     `json:"status"`
	Reading            *Reading   `json:"reading,omitempty"`
	Alerts             []Alert    `json:"alerts"`
	Error              string     `json:"error,omitempty"`
	LastUpdated        *time.Time `json:"last_updated,omitempty"`
	AutoRefreshEnabled bool       `json:"auto_refresh_enabled"`
}

// NewPollState returns the startup state: idle, no reading, auto-refresh off.
func NewPollState() PollState {
	return PollState{
		Status: StatusIdle,
		Alerts: []Alert{},
	}
}
