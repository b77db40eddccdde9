// Package domain models weather readings for a fixed location and the hazard
// alerts derived from them.
//
// # Data Source
//
// Readings come from the Open-Meteo forecast API (https://open-meteo.com/).
// Each fetch requests the current-conditions fields temperature_2m,
// relative_humidity_2m, rain, weather_code and wind_speed_10m, plus the hourly
// precipitation_probability and precipitation series for a one-day horizon.
// The hourly series is aligned index-by-index with its time axis and ordered
// chronologically from the fetch time.
//
// # Alert Derivation
//
// [DeriveAlerts] is a pure function over a [Reading]. Rules are evaluated
// independently and emitted in a fixed order so successive polls over the same
// data produce identical alert lists:
//
//	1. Current rain:    rain > 0 mm     → rain alert (high above 5 mm)
//	2. Current wind:    wind > 30 km/h  → wind alert (high above 40 km/h)
//	3. Forecast chance: max probability over the next 6 hourly samples,
//	                    > 70% high, > 50% medium (at most one alert)
//	4. Forecast volume: summed precipitation over the next 6 hourly samples,
//	                    > 15 mm → high
//
// Rules 3 and 4 both carry kind "forecast" and may fire together; they are not
// deduplicated. A missing hourly block disables rules 3 and 4 without error.
//
// # Weather Codes
//
// Open-Meteo reports conditions as WMO weather interpretation codes.
// [WeatherDescription] maps the codes the provider emits for this field set to
// short human-readable text; anything else maps to an unknown placeholder
// rather than failing.
package domain
