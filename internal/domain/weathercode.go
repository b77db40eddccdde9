package domain

// weatherDescriptions maps WMO weather interpretation codes to display text.
// Only the codes Open-Meteo emits for this field set are listed.
var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// UnknownCondition is returned for codes outside the known table.
const UnknownCondition = "Unknown conditions"

// WeatherDescription returns the display text for a WMO weather code.
func WeatherDescription(code int) string {
	if desc, ok := weatherDescriptions[code]; ok {
		return desc
	}
	return UnknownCondition
}
