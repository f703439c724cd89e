// Command genmock writes deterministic fixtures for local runs and the
// integration suite: a LitPop-style exposure grid per country covering the
// synthetic Bhola track window, and a JSON array of scenario requests ready
// to publish to the request topic.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -exposure-dir data/mock/litpop \
//	  -requests-out data/mock/scenario_requests.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/exposure"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// city anchors asset value; value decays with distance from the anchors.
type city struct {
	name  string
	point orb.Point
	value float64 // USD at the centre cell
}

var anchors = map[string][]city{
	"BGD": {
		{name: "Dhaka", point: orb.Point{90.4125, 23.8103}, value: 2.5e9},
		{name: "Chattogram", point: orb.Point{91.7832, 22.3569}, value: 1.2e9},
		{name: "Khulna", point: orb.Point{89.5403, 22.8456}, value: 6e8},
		{name: "Barishal", point: orb.Point{90.3535, 22.7010}, value: 3e8},
	},
	"IND": {
		{name: "Kolkata", point: orb.Point{88.3639, 22.5726}, value: 2e9},
		{name: "Bhubaneswar", point: orb.Point{85.8245, 20.2961}, value: 5e8},
	},
	"MMR": {
		{name: "Sittwe", point: orb.Point{92.9000, 20.1500}, value: 1.5e8},
	},
}

const decayKm = 60.0

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	exposureDir := flag.String("exposure-dir", "", "output directory for LitPop_<ISO3>.csv grids")
	requestsOut := flag.String("requests-out", "", "output path for scenario request JSON")
	countries := flag.String("countries", "BGD,IND,MMR", "countries to generate")
	step := flag.Float64("step", 0.25, "grid spacing (degrees)")
	flag.Parse()

	if *exposureDir == "" && *requestsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -exposure-dir and/or -requests-out")
	}

	track := domain.SyntheticBholaTrack()
	window, err := track.Bounds(domain.DefaultBufferDeg)
	if err != nil {
		return err
	}

	if *exposureDir != "" {
		if err := os.MkdirAll(*exposureDir, 0o755); err != nil {
			return err
		}
		for _, c := range strings.Split(*countries, ",") {
			c = strings.ToUpper(strings.TrimSpace(c))
			n, err := writeGrid(filepath.Join(*exposureDir, exposure.FileName(c)), anchors[c], window, *step)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			log.Printf("%s: %d exposure points", c, n)
		}
	}

	if *requestsOut != "" {
		if err := writeRequests(*requestsOut); err != nil {
			return err
		}
		log.Printf("wrote %s", *requestsOut)
	}
	return nil
}

// writeGrid writes one row per grid cell whose value rounds above zero.
func writeGrid(path string, cities []city, window orb.Bound, step float64) (int, error) {
	if len(cities) == 0 {
		return 0, fmt.Errorf("no anchor cities")
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"latitude", "longitude", "value", "region_id"}); err != nil {
		return 0, err
	}

	rows := 0
	for lat := window.Min.Lat(); lat <= window.Max.Lat(); lat += step {
		for lon := window.Min.Lon(); lon <= window.Max.Lon(); lon += step {
			p := orb.Point{round4(lon), round4(lat)}
			value, region := cellValue(p, cities)
			if value < 1 {
				continue
			}
			rec := []string{
				strconv.FormatFloat(p.Lat(), 'f', 4, 64),
				strconv.FormatFloat(p.Lon(), 'f', 4, 64),
				strconv.FormatFloat(math.Round(value), 'f', 0, 64),
				strconv.Itoa(region),
			}
			if err := w.Write(rec); err != nil {
				return rows, err
			}
			rows++
		}
	}
	w.Flush()
	return rows, w.Error()
}

// cellValue sums exponentially decaying contributions of every anchor and
// reports the index (1-based) of the dominant one as region.
func cellValue(p orb.Point, cities []city) (float64, int) {
	var total, best float64
	region := 0
	for i, c := range cities {
		v := c.value * math.Exp(-geo.DistanceHaversine(p, c.point)/1000/decayKm)
		total += v
		if v > best {
			best, region = v, i+1
		}
	}
	return total, region
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func writeRequests(path string) error {
	requests := []domain.ScenarioRequest{
		{
			Scenario:  domain.Scenario{Name: "Synthetic Bhola", Year: 2035, Basin: "NI", Countries: []string{"BGD"}},
			Synthetic: true,
		},
		{
			Scenario:  domain.Scenario{Name: "Synthetic Bhola", Year: 2035, Basin: "NI", Countries: []string{"BGD", "IND", "MMR"}},
			Pathways:  []domain.Pathway{domain.PathwayHistorical, domain.PathwaySSP585},
			Threshold: 5e6,
			Synthetic: true,
		},
		{
			Scenario: domain.Scenario{Name: "Amphan", Year: 2020, Basin: "NI", Countries: []string{"IND", "BGD"}},
			Pathways: []domain.Pathway{domain.PathwaySSP245, domain.PathwaySSP585},
		},
	}
	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
