package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Scenario identifies one cyclone diagnostics run.
type Scenario struct {
	Name      string   `json:"name"`
	Year      int      `json:"year"`
	Basin     string   `json:"basin"`
	Countries []string `json:"countries"`
}

// Basins lists the IBTrACS genesis basin codes.
var Basins = []string{"NA", "SA", "EP", "WP", "SP", "SI", "NI"}

const (
	minScenarioYear = 1842 // first season in IBTrACS
	maxScenarioYear = 2100
)

var iso3Re = regexp.MustCompile(`^[A-Z]{3}$`)

// Normalize trims the name and upper-cases basin and country codes.
func (s Scenario) Normalize() Scenario {
	s.Name = strings.TrimSpace(s.Name)
	s.Basin = strings.ToUpper(strings.TrimSpace(s.Basin))
	countries := make([]string, 0, len(s.Countries))
	for _, c := range s.Countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			countries = append(countries, c)
		}
	}
	s.Countries = countries
	return s
}

// Validate reports the first problem with the scenario, wrapped in
// ErrInvalidScenario. It expects a normalized scenario.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if s.Year < minScenarioYear || s.Year > maxScenarioYear {
		return fmt.Errorf("%w: year %d outside [%d, %d]", ErrInvalidScenario, s.Year, minScenarioYear, maxScenarioYear)
	}
	if !validBasin(s.Basin) {
		return fmt.Errorf("%w: unknown basin %q", ErrInvalidScenario, s.Basin)
	}
	if len(s.Countries) == 0 {
		return fmt.Errorf("%w: at least one country is required", ErrInvalidScenario)
	}
	for _, c := range s.Countries {
		if !iso3Re.MatchString(c) {
			return fmt.Errorf("%w: country %q is not an ISO3 code", ErrInvalidScenario, c)
		}
	}
	return nil
}

// Slug is the artifact prefix for the scenario, e.g. "amphan_2020". Every
// run of characters outside [a-z0-9] in the lower-cased name becomes a single
// '-', so the slug is always one safe path element.
func (s Scenario) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s.Name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	name := b.String()
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s_%d", name, s.Year)
}

func validBasin(code string) bool {
	for _, b := range Basins {
		if b == code {
			return true
		}
	}
	return false
}
