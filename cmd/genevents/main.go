// Command genevents generates reproducible weather and production event
// fixtures for tests and local runs. It emits the same wire formats the
// processor consumes, with weather-correlated production outcomes so the
// correlation engine has real signal to find.
//
// Usage:
//
//	go run ./cmd/genevents \
//	  -out-dir data/mock \
//	  -locations seguin_tx,lockhart_tx \
//	  -hours 4 -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var baseDate = time.Date(2025, time.June, 10, 6, 0, 0, 0, time.UTC)

type weatherReading struct {
	Timestamp     string  `json:"timestamp"`
	LocationID    string  `json:"location_id"`
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	Precipitation float64 `json:"precipitation"`
	Condition     string  `json:"weather_condition"`
}

type weatherEnvelope struct {
	Type string         `json:"type"`
	Data weatherReading `json:"data"`
}

type productionEvent struct {
	Timestamp  string             `json:"timestamp"`
	LocationID string             `json:"location_id"`
	MachineID  string             `json:"machine_id"`
	Cycle      int                `json:"cycle"`
	Status     string             `json:"status"`
	CycleTime  float64            `json:"cycle_time"`
	Details    map[string]float64 `json:"details"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data/mock", "output directory for fixtures")
	locations := flag.String("locations", "seguin_tx,lockhart_tx", "comma-separated location IDs")
	hours := flag.Int("hours", 4, "hours of data to generate")
	seed := flag.Int64("seed", 42, "random seed for reproducible output")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	locs := strings.Split(*locations, ",")

	var readings []weatherEnvelope
	var events []productionEvent
	for _, loc := range locs {
		w, p := generateLocation(rng, strings.TrimSpace(loc), *hours)
		readings = append(readings, w...)
		events = append(events, p...)
	}

	if err := writeJSON(filepath.Join(*outDir, "weather_data.json"), readings); err != nil {
		return fmt.Errorf("writing weather fixture: %w", err)
	}
	if err := writeJSON(filepath.Join(*outDir, "production_events.json"), events); err != nil {
		return fmt.Errorf("writing production fixture: %w", err)
	}

	log.Printf("wrote %d weather readings and %d production events for %d locations",
		len(readings), len(events), len(locs))
	printStats(events)
	return nil
}

// generateLocation produces one location's day: weather every 5 minutes with
// a diurnal temperature curve and one pressure front, production cycles every
// 90 seconds whose efficiency and cycle time degrade with humidity.
func generateLocation(rng *rand.Rand, locationID string, hours int) ([]weatherEnvelope, []productionEvent) {
	var readings []weatherEnvelope
	var events []productionEvent

	frontAt := time.Duration(rng.Intn(hours*60)) * time.Minute
	span := time.Duration(hours) * time.Hour

	for offset := time.Duration(0); offset < span; offset += 5 * time.Minute {
		ts := baseDate.Add(offset)
		hour := float64(ts.Hour()) + float64(ts.Minute())/60

		temp := 72 + 18*math.Sin((hour-9)*math.Pi/12) + rng.Float64()*2
		humidity := 85 - (temp-70)*1.2 + rng.Float64()*5
		pressure := 29.95 + rng.Float64()*0.02
		if offset > frontAt {
			// Passing front: pressure drops fast for an hour then recovers.
			elapsed := (offset - frontAt).Hours()
			pressure -= 0.15 * math.Exp(-math.Abs(elapsed-0.5))
		}

		readings = append(readings, weatherEnvelope{
			Type: "weather_reading",
			Data: weatherReading{
				Timestamp:   ts.Format(time.RFC3339),
				LocationID:  locationID,
				Temperature: round1(temp),
				Humidity:    round1(clamp(humidity, 20, 100)),
				Pressure:    math.Round(pressure*100) / 100,
				WindSpeed:   round1(5 + rng.Float64()*10),
				Condition:   "clear",
			},
		})
	}

	cycle := 0
	for offset := time.Duration(0); offset < span; offset += 90 * time.Second {
		cycle++
		ts := baseDate.Add(offset)
		hour := float64(ts.Hour()) + float64(ts.Minute())/60

		temp := 72 + 18*math.Sin((hour-9)*math.Pi/12)
		humidity := clamp(85-(temp-70)*1.2, 20, 100)

		// Humid air slows the line and hurts efficiency.
		humidityDrag := math.Max(0, humidity-65) / 100
		efficiency := clamp(0.97-humidityDrag*0.8+rng.Float64()*0.04, 0.5, 1.0)
		cycleTime := 80 + humidityDrag*60 + rng.Float64()*6

		status := "Gain"
		if rng.Float64() < 0.05+humidityDrag*0.3 {
			status = "Quality Issue"
		}

		events = append(events, productionEvent{
			Timestamp:  ts.Format(time.RFC3339),
			LocationID: locationID,
			MachineID:  fmt.Sprintf("press-%d", 1+cycle%3),
			Cycle:      cycle,
			Status:     status,
			CycleTime:  round1(cycleTime),
			Details: map[string]float64{
				"efficiency":    math.Round(efficiency*1000) / 1000,
				"quality_score": math.Round(clamp(efficiency+rng.Float64()*0.05, 0, 1)*1000) / 1000,
				"energy_usage":  round1(40 + (1-efficiency)*30),
			},
		})
	}
	return readings, events
}

func printStats(events []productionEvent) {
	statusCounts := map[string]int{}
	var totalEff float64
	for _, e := range events {
		statusCounts[e.Status]++
		totalEff += e.Details["efficiency"]
	}
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total production events: %d\n", len(events))
	for status, n := range statusCounts {
		fmt.Printf("  %s: %d\n", status, n)
	}
	if len(events) > 0 {
		fmt.Printf("Mean efficiency: %.3f\n", totalEff/float64(len(events)))
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
