package domain

import "fmt"

// AlertKind categorizes what a hazard alert is about.
type AlertKind string

const (
	KindRain     AlertKind = "rain"
	KindWind     AlertKind = "wind"
	KindForecast AlertKind = "forecast"
)

// Severity is the urgency of an alert. High-severity alerts drive the
// strong-alert side channel.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is a derived hazard notice. It has no identity beyond its field
// values; duplicates across successive polls are expected.
type Alert struct {
	Kind     AlertKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Alert thresholds. Comparisons are strict: a reading exactly at a threshold
// does not trigger the alert.
const (
	rainHighMm        = 5.0
	windAlertKph      = 30.0
	windHighKph       = 40.0
	forecastMediumPct = 50.0
	forecastHighPct   = 70.0
	forecastVolumeMm  = 15.0

	// forecastWindow is how many upcoming hourly samples the forecast rules
	// consider. Fewer are used when the reading carries fewer.
	forecastWindow = 6
)

// DeriveAlerts maps a reading to its hazard alerts. Pure and deterministic:
// no I/O, no hidden state. Emission order is fixed (current rain, current
// wind, forecast probability, forecast volume).
func DeriveAlerts(r Reading) []Alert {
	alerts := []Alert{}

	if rain := r.Current.RainMm; rain > 0 {
		sev := SeverityMedium
		if rain > rainHighMm {
			sev = SeverityHigh
		}
		alerts = append(alerts, Alert{
			Kind:     KindRain,
			Severity: sev,
			Message:  fmt.Sprintf("Raining now: %.1f mm", rain),
		})
	}

	if wind := r.Current.WindSpeedKph; wind > windAlertKph {
		sev := SeverityMedium
		if wind > windHighKph {
			sev = SeverityHigh
		}
		alerts = append(alerts, Alert{
			Kind:     KindWind,
			Severity: sev,
			Message:  fmt.Sprintf("Strong wind: %.1f km/h", wind),
		})
	}

	window := r.Hourly
	if len(window) > forecastWindow {
		window = window[:forecastWindow]
	}

	if len(window) > 0 {
		maxProb := 0.0
		totalMm := 0.0
		for _, h := range window {
			if h.PrecipProbability > maxProb {
				maxProb = h.PrecipProbability
			}
			totalMm += h.PrecipitationMm
		}

		switch {
		case maxProb > forecastHighPct:
			alerts = append(alerts, Alert{
				Kind:     KindForecast,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("High chance of rain soon: up to %.0f%%", maxProb),
			})
		case maxProb > forecastMediumPct:
			alerts = append(alerts, Alert{
				Kind:     KindForecast,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("Rain possible soon: up to %.0f%%", maxProb),
			})
		}

		if totalMm > forecastVolumeMm {
			alerts = append(alerts, Alert{
				Kind:     KindForecast,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Heavy rainfall expected: %.1f mm over the next hours", totalMm),
			})
		}
	}

	return alerts
}

// HasHighSeverity reports whether any alert in the list is high severity.
func HasHighSeverity(alerts []Alert) bool {
	for _, a := range alerts {
		if a.Severity == SeverityHigh {
			return true
		}
	}
	return false
}
