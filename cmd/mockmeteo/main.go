// Command mockmeteo serves a canned Open-Meteo forecast response for local
// development, so the monitor can be exercised without hitting the real API.
// Point the monitor at it with OPENMETEO_BASE_URL.
//
// Usage:
//
//	go run ./cmd/mockmeteo -addr :9091 -rain 6.2 -wind 45 -prob 80,85,90 -precip 4,6,8
//	OPENMETEO_BASE_URL=http://localhost:9091/v1/forecast go run ./cmd/monitor
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const hourlyHours = 24

func main() {
	addr := flag.String("addr", ":9091", "listen address")
	temp := flag.Float64("temp", 18.5, "current temperature in °C")
	humidity := flag.Float64("humidity", 65, "current relative humidity in %")
	rain := flag.Float64("rain", 0, "current rain in mm")
	wind := flag.Float64("wind", 12, "current wind speed in km/h")
	code := flag.Int("code", 2, "current WMO weather code")
	prob := flag.String("prob", "", "comma-separated hourly precipitation probabilities, repeated to fill the day")
	precip := flag.String("precip", "", "comma-separated hourly precipitation amounts in mm, repeated to fill the day")
	noHourly := flag.Bool("no-hourly", false, "omit the hourly block entirely")
	flag.Parse()

	probs, err := parseSeries(*prob)
	if err != nil {
		log.Fatalf("invalid -prob: %v", err)
	}
	precips, err := parseSeries(*precip)
	if err != nil {
		log.Fatalf("invalid -precip: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		log.Printf("forecast request: lat=%s lon=%s", r.URL.Query().Get("latitude"), r.URL.Query().Get("longitude"))

		body := map[string]any{
			"current": map[string]any{
				"temperature_2m":       *temp,
				"relative_humidity_2m": *humidity,
				"rain":                 *rain,
				"weather_code":         *code,
				"wind_speed_10m":       *wind,
			},
		}
		if !*noHourly {
			body["hourly"] = hourlyBlock(probs, precips)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("write response: %v", err)
		}
	})

	log.Printf("mockmeteo listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// hourlyBlock builds aligned time/probability/precipitation arrays covering
// the rest of the day from the current hour, cycling through the configured
// series.
func hourlyBlock(probs, precips []float64) map[string]any {
	start := time.Now().UTC().Truncate(time.Hour)

	times := make([]string, hourlyHours)
	probOut := make([]float64, hourlyHours)
	precipOut := make([]float64, hourlyHours)
	for i := 0; i < hourlyHours; i++ {
		times[i] = start.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
		probOut[i] = at(probs, i)
		precipOut[i] = at(precips, i)
	}

	return map[string]any{
		"time":                      times,
		"precipitation_probability": probOut,
		"precipitation":             precipOut,
	}
}

func at(series []float64, i int) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[i%len(series)]
}

func parseSeries(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
