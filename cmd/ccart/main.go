// Command ccart runs cyclone impact diagnostics for one scenario and writes
// the exposure, impact and track GeoJSON for each climate pathway.
//
// Usage:
//
//	go run ./cmd/ccart -name AMPHAN -year 2020 -basin NI -countries IND,BGD \
//	  -pathways SSP2-4.5,SSP5-8.5 -out outputs
//
// Unset flags fall back to the service environment variables (IBTRACS_PATH,
// EXPOSURE_DIR, BOUNDARY_PATH, OUTPUT_DIR, IMPACT_THRESHOLD, ...).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/cyclone-impact-service/internal/app"
	"github.com/couchcryptid/cyclone-impact-service/internal/config"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	name := flag.String("name", "", "cyclone name, e.g. AMPHAN")
	year := flag.Int("year", 0, "reference season")
	basin := flag.String("basin", "", "genesis basin code (NA, SA, EP, WP, SP, SI, NI)")
	countries := flag.String("countries", "", "comma-separated ISO3 country codes")
	pathways := flag.String("pathways", "", "comma-separated climate pathways (default PATHWAYS)")
	threshold := flag.Float64("threshold", cfg.ImpactThreshold, "minimum loss (USD) for an impact zone")
	buffer := flag.Float64("buffer", cfg.TrackBufferDeg, "exposure window around the track (degrees)")
	flag.StringVar(&cfg.IBTrACSPath, "ibtracs", cfg.IBTrACSPath, "IBTrACS CSV path")
	flag.StringVar(&cfg.ExposureDir, "exposure-dir", cfg.ExposureDir, "directory of LitPop_<ISO3>.csv files")
	flag.StringVar(&cfg.BoundaryPath, "boundary", cfg.BoundaryPath, "Natural Earth admin-0 GeoJSON (optional)")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory")
	synthetic := flag.Bool("synthetic", false, "use the synthetic Bhola 2035 track")
	flag.Parse()

	if *name == "" || *year == 0 || *basin == "" || *countries == "" {
		flag.Usage()
		os.Exit(2)
	}

	req := domain.ScenarioRequest{
		Scenario: domain.Scenario{
			Name:      *name,
			Year:      *year,
			Basin:     *basin,
			Countries: strings.Split(*countries, ","),
		},
		Synthetic: *synthetic,
	}
	if *pathways != "" {
		req.Pathways, err = domain.ParsePathways(*pathways)
		if err != nil {
			fmt.Fprintf(os.Stderr, "-pathways: %v\n", err)
			os.Exit(2)
		}
	}

	// Flag defaults already come from the config, so the flag values are
	// always explicit, zero included.
	req = req.WithDefaults(cfg.RequestDefaults())
	req.Threshold = *threshold
	req.BufferDeg = *buffer
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	os.Exit(run(cfg, req))
}

func run(cfg *config.Config, req domain.ScenarioRequest) int {
	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer components.Close(logger)

	summary, err := components.Runner.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Printf("=== %s (%s) run %s ===\n", summary.StormName, summary.StormSID, summary.RunID)
	for _, ps := range summary.Pathways {
		fmt.Printf("Total impact (%s): %s; Zones > %s: %d\n",
			ps.Label, domain.FormatUSD(ps.TotalImpactUSD), domain.FormatUSD(summary.Threshold), ps.ZonesAboveThreshold)
		if ps.Skipped {
			fmt.Println("  no zones above threshold, nothing exported")
			continue
		}
		kinds := make([]string, 0, len(ps.Artifacts))
		for k := range ps.Artifacts {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("  %-8s %s\n", k, ps.Artifacts[domain.ArtifactKind(k)])
		}
	}
	return 0
}
