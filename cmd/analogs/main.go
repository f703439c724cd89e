// Command analogs searches IBTrACS for historical analogs of a storm
// family: tracks are clustered by mean position (DBSCAN), then members of
// the target cluster's neighbourhood are ranked by cosine similarity in PCA
// space. Optionally the top analogs are warmed for a pathway and exported
// as track GeoJSON.
//
// Usage:
//
//	go run ./cmd/analogs -basin NI -from 1970 -to 2020 -min-wind 64 \
//	  -cluster 2 -top 5 -pathway ssp585 -export outputs/analogs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/ibtracs"
	"github.com/couchcryptid/cyclone-impact-service/internal/adapter/store"
	"github.com/couchcryptid/cyclone-impact-service/internal/analog"
	"github.com/couchcryptid/cyclone-impact-service/internal/artifact"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

type options struct {
	query      ibtracs.Query
	eps        float64
	minSamples int
	target     int
	refine     analog.Options
	pathway    domain.Pathway
	exportDir  string
	asJSON     bool
}

func main() {
	_ = godotenv.Load()

	path := flag.String("ibtracs", sharedcfg.EnvOrDefault("IBTRACS_PATH", "data/ibtracs/IBTrACS.ALL.v04r01.csv"), "IBTrACS CSV path")
	provider := flag.String("provider", sharedcfg.EnvOrDefault("IBTRACS_PROVIDER", ibtracs.DefaultProvider), "IBTrACS agency column prefix")
	var opts options
	flag.StringVar(&opts.query.Basin, "basin", "NI", "genesis basin code")
	flag.IntVar(&opts.query.YearFrom, "from", 1970, "first season")
	flag.IntVar(&opts.query.YearTo, "to", 2020, "last season")
	flag.Float64Var(&opts.query.MinWind, "min-wind", 64, "minimum lifetime peak wind (kn)")
	flag.Float64Var(&opts.eps, "eps", analog.DefaultEps, "DBSCAN neighbourhood radius (degrees)")
	flag.IntVar(&opts.minSamples, "min-samples", analog.DefaultMinSamples, "DBSCAN core point size, including the point")
	flag.IntVar(&opts.target, "cluster", analog.DefaultTargetCluster, "cluster label to rank analogs against")
	flag.IntVar(&opts.refine.EncodePoints, "points", analog.DefaultEncodePoints, "resampled points per track")
	flag.IntVar(&opts.refine.Components, "components", analog.DefaultComponents, "PCA components")
	flag.IntVar(&opts.refine.TopN, "top", analog.DefaultTopN, "analogs to report")
	pathway := flag.String("pathway", "", "warm exported analogs for this pathway (default historical)")
	flag.StringVar(&opts.exportDir, "export", "", "write analog tracks as GeoJSON under this directory")
	flag.BoolVar(&opts.asJSON, "json", false, "print analogs as JSON")
	flag.Parse()

	opts.pathway = domain.PathwayHistorical
	if *pathway != "" {
		p, err := domain.ParsePathway(*pathway)
		if err != nil {
			fmt.Fprintf(os.Stderr, "-pathway: %v\n", err)
			os.Exit(2)
		}
		opts.pathway = p
	}

	logger := observability.NewLogger(sharedcfg.EnvOrDefault("LOG_LEVEL", "info"), "text")
	src := ibtracs.NewSource(*path, os.Getenv("IBTRACS_URL"), *provider, 0, logger)

	os.Exit(run(context.Background(), src, opts))
}

func run(ctx context.Context, src *ibtracs.Source, opts options) int {
	tracks, err := src.Tracks(ctx, opts.query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	if len(tracks) == 0 {
		fmt.Fprintln(os.Stderr, "no tracks match the query")
		return 1
	}

	labels := analog.Cluster(tracks, opts.eps, opts.minSamples)
	analogs, err := analog.Refine(tracks, labels, opts.target, opts.refine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analogs); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
	} else {
		printSummary(tracks, labels, opts.target, analogs)
	}

	if opts.exportDir != "" {
		if err := export(ctx, store.NewLocalStore(opts.exportDir), analogs, opts.pathway); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
	}
	return 0
}

func printSummary(tracks []domain.Track, labels []int, target int, analogs []analog.Analog) {
	clusters := map[int]int{}
	for _, l := range labels {
		clusters[l]++
	}
	fmt.Printf("%d tracks, %d clusters, %d noise; cluster %d has %d members\n",
		len(tracks), len(clusters)-boolInt(clusters[analog.Noise] > 0), clusters[analog.Noise],
		target, len(analog.Members(labels, target)))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSID\tNAME\tSEASON\tCLUSTER\tPEAK KN\tSIMILARITY")
	for i, a := range analogs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%.0f\t%.4f\n",
			i+1, a.SID, a.Name, a.Track.Season, a.Cluster, a.Track.PeakWind(), a.Similarity)
	}
	_ = w.Flush()
}

func export(ctx context.Context, s *store.LocalStore, analogs []analog.Analog, p domain.Pathway) error {
	for _, a := range analogs {
		warmed := domain.ApplyPathway(a.Track, p)
		scenario := exportScenario(a)
		fc := artifact.Track(artifact.Meta{Scenario: scenario, Pathway: p, StormSID: warmed.SID}, warmed)
		data, err := artifact.Encode(fc)
		if err != nil {
			return err
		}
		loc, err := s.Put(ctx, artifact.Key(scenario, domain.ArtifactTrack, p), data)
		if err != nil {
			return err
		}
		fmt.Println("wrote", loc)
	}
	return nil
}

// exportScenario names an analog's export after its SID; IBTrACS reuses
// names such as NOT_NAMED within a season.
func exportScenario(a analog.Analog) domain.Scenario {
	return domain.Scenario{Name: a.SID, Year: a.Track.Season, Basin: a.Track.Basin}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
