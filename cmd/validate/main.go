// Command validate checks a directory of run artifacts written by the
// service or by ccart. It decodes every GeoJSON file, validates its layout,
// and cross-checks the artifacts of each pathway against each other.
//
// Usage:
//
//	go run ./cmd/validate -dir outputs -threshold 1e6
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/cyclone-impact-service/internal/artifact"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// loaded is one decoded artifact file.
type loaded struct {
	path     string
	scenario string // directory name
	kind     domain.ArtifactKind
	pathway  domain.Pathway
	fc       *geojson.FeatureCollection
}

// pathwaySet groups the artifacts of one scenario pathway by kind.
type pathwaySet map[domain.ArtifactKind]*loaded

func main() {
	dir := flag.String("dir", "", "artifact root directory (<dir>/<scenario>/<kind>_<pathway>.geojson)")
	threshold := flag.Float64("threshold", 0, "loss threshold impact zones must exceed (0 skips the check)")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir, *threshold); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, threshold float64) int {
	fmt.Println("=== Cyclone Impact Artifact Validation ===")
	fmt.Println()

	files, err := filepath.Glob(filepath.Join(dir, "*", "*.geojson"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list artifacts: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no artifacts under %s\n", dir)
		return 1
	}
	sort.Strings(files)

	decode := &phase{name: "Phase 1: Decode (GeoJSON)"}
	var artifacts []*loaded
	for _, path := range files {
		a, err := load(path)
		if err != nil {
			decode.errorf("%s: %v", path, err)
			continue
		}
		artifacts = append(artifacts, a)
	}

	phases := []*phase{
		decode,
		validateLayout(artifacts, threshold),
		validateNaming(artifacts),
		validateCompleteness(group(artifacts)),
		validateCrossReference(group(artifacts)),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Artifacts: %d files, %d decoded, %d scenarios\n", len(files), len(artifacts), countScenarios(artifacts))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func load(path string) (*loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := artifact.Decode(data)
	if err != nil {
		return nil, err
	}
	a := &loaded{
		path:     path,
		scenario: filepath.Base(filepath.Dir(path)),
		kind:     artifact.Kind(fc),
		fc:       fc,
	}
	if p, err := domain.ParsePathway(fc.ExtraMembers.MustString("pathway", "")); err == nil {
		a.pathway = p
	}
	return a, nil
}

func group(artifacts []*loaded) map[string]map[domain.Pathway]pathwaySet {
	out := make(map[string]map[domain.Pathway]pathwaySet)
	for _, a := range artifacts {
		if a.pathway == "" {
			continue
		}
		byPathway, ok := out[a.scenario]
		if !ok {
			byPathway = make(map[domain.Pathway]pathwaySet)
			out[a.scenario] = byPathway
		}
		set, ok := byPathway[a.pathway]
		if !ok {
			set = make(pathwaySet)
			byPathway[a.pathway] = set
		}
		set[a.kind] = a
	}
	return out
}

func countScenarios(artifacts []*loaded) int {
	seen := make(map[string]struct{})
	for _, a := range artifacts {
		seen[a.scenario] = struct{}{}
	}
	return len(seen)
}

// ── Phase 2: Layout ──
// Validates each collection's members, geometries and feature properties.

func validateLayout(artifacts []*loaded, threshold float64) *phase {
	p := &phase{name: "Phase 2: Layout (members, properties)"}
	for _, a := range artifacts {
		for _, problem := range artifact.Validate(a.fc, threshold) {
			p.errorf("%s: %s", a.path, problem)
		}
	}
	return p
}

// ── Phase 3: Naming ──
// Validates that file and directory names agree with collection members.

func validateNaming(artifacts []*loaded) *phase {
	p := &phase{name: "Phase 3: Naming (paths vs members)"}
	for _, a := range artifacts {
		if a.pathway == "" {
			continue
		}
		if want := domain.ArtifactName(a.kind, a.pathway); filepath.Base(a.path) != want {
			p.errorf("%s: members say %s", a.path, want)
		}
		if s := a.fc.ExtraMembers.MustString("scenario", ""); s != a.scenario {
			p.errorf("%s: scenario member %q, directory %q", a.path, s, a.scenario)
		}
	}
	return p
}

// ── Phase 4: Completeness ──
// An exported pathway always carries track, exposure and impact together.

func validateCompleteness(scenarios map[string]map[domain.Pathway]pathwaySet) *phase {
	p := &phase{name: "Phase 4: Completeness (per pathway)"}
	for _, scenario := range sortedKeys(scenarios) {
		for pathway, set := range scenarios[scenario] {
			var missing []string
			for _, kind := range []domain.ArtifactKind{domain.ArtifactTrack, domain.ArtifactExposure, domain.ArtifactImpact} {
				if _, ok := set[kind]; !ok {
					missing = append(missing, string(kind))
				}
			}
			if len(missing) > 0 {
				p.errorf("%s/%s: missing %s", scenario, pathway, strings.Join(missing, ", "))
			}
		}
	}
	return p
}

// ── Phase 5: Cross-reference ──
// Impact zones must point at exposure points of the same pathway and cannot
// lose more than the exposed value.

func validateCrossReference(scenarios map[string]map[domain.Pathway]pathwaySet) *phase {
	p := &phase{name: "Phase 5: Cross-reference (impact vs exposure)"}
	for _, scenario := range sortedKeys(scenarios) {
		for pathway, set := range scenarios[scenario] {
			exp, impact := set[domain.ArtifactExposure], set[domain.ArtifactImpact]
			if exp == nil || impact == nil {
				continue
			}
			checkCrossReference(p, scenario+"/"+string(pathway), exp.fc, impact.fc)

			if track := set[domain.ArtifactTrack]; track != nil {
				sid := track.fc.ExtraMembers.MustString("storm_sid", "")
				if got := impact.fc.ExtraMembers.MustString("storm_sid", ""); got != sid {
					p.errorf("%s/%s: impact storm_sid %q, track %q", scenario, pathway, got, sid)
				}
			}
		}
	}
	return p
}

func checkCrossReference(p *phase, label string, exp, impact *geojson.FeatureCollection) {
	values := make(map[string]float64, len(exp.Features))
	for _, f := range exp.Features {
		values[f.Properties.MustString("id", "")] = f.Properties.MustFloat64("value", 0)
	}

	for i, f := range impact.Features {
		id := f.Properties.MustString("exposure_id", "")
		value, ok := values[id]
		if !ok {
			p.errorf("%s: impact feature %d references unknown exposure %q", label, i, id)
			continue
		}
		if loss := f.Properties.MustFloat64("impact_usd", 0); loss > value*(1+1e-9) {
			p.errorf("%s: exposure %s loses %g of %g", label, id, loss, value)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
