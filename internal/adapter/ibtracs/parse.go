// Package ibtracs reads historical cyclone tracks from the IBTrACS v04 CSV
// distribution.
package ibtracs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// DefaultProvider selects the USA agency columns.
const DefaultProvider = "usa"

// columns holds the header positions used by the parser; -1 when absent.
type columns struct {
	sid, season, basin, name, isoTime, lat, lon int
	wind, pres, rmw, poci                       int
	wmoWind, wmoPres                            int
}

func indexColumns(header []string, provider string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	col := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	p := strings.ToUpper(provider)
	c := columns{
		sid: col("SID"), season: col("SEASON"), basin: col("BASIN"), name: col("NAME"),
		isoTime: col("ISO_TIME"), lat: col("LAT"), lon: col("LON"),
		wind: col(p + "_WIND"), pres: col(p + "_PRES"), rmw: col(p + "_RMW"), poci: col(p + "_POCI"),
		wmoWind: col("WMO_WIND"), wmoPres: col("WMO_PRES"),
	}
	for name, i := range map[string]int{"SID": c.sid, "SEASON": c.season, "BASIN": c.basin, "LAT": c.lat, "LON": c.lon} {
		if i < 0 {
			return columns{}, fmt.Errorf("ibtracs: missing column %s", name)
		}
	}
	return c, nil
}

// Parse reads every track in an IBTrACS CSV. Provider names the agency
// column prefix ("usa", "tokyo", ...); "wmo" uses the WMO columns only.
// Rows reporting neither wind nor pressure are dropped, as are tracks left
// with no rows.
func Parse(r io.Reader, provider string) ([]domain.Track, error) {
	if provider == "" {
		provider = DefaultProvider
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ibtracs: read header: %w", err)
	}
	cols, err := indexColumns(header, provider)
	if err != nil {
		return nil, err
	}

	var (
		tracks []domain.Track
		cur    *domain.Track
		line   = 1
	)
	flush := func() {
		if cur != nil && len(cur.Points) > 0 {
			finishTrack(cur)
			tracks = append(tracks, *cur)
		}
		cur = nil
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("ibtracs: line %d: %w", line, err)
		}

		sid := field(row, cols.sid)
		season, err := strconv.Atoi(field(row, cols.season))
		if err != nil {
			// The second line of the distribution carries units, not data.
			if line == 2 {
				continue
			}
			return nil, fmt.Errorf("ibtracs: line %d: season %q: %w", line, field(row, cols.season), err)
		}

		if cur == nil || cur.SID != sid {
			flush()
			cur = &domain.Track{
				SID:           sid,
				Season:        season,
				Name:          field(row, cols.name),
				Basin:         field(row, cols.basin),
				Agency:        provider,
				OrigEventFlag: true,
			}
		}

		p, ok, err := parsePoint(row, cols)
		if err != nil {
			return nil, fmt.Errorf("ibtracs: line %d: %w", line, err)
		}
		if ok {
			cur.Points = append(cur.Points, p)
		}
	}
	flush()
	return tracks, nil
}

func parsePoint(row []string, c columns) (domain.TrackPoint, bool, error) {
	lat, err := parseFloat(field(row, c.lat))
	if err != nil {
		return domain.TrackPoint{}, false, fmt.Errorf("lat: %w", err)
	}
	lon, err := parseFloat(field(row, c.lon))
	if err != nil {
		return domain.TrackPoint{}, false, fmt.Errorf("lon: %w", err)
	}

	wind := firstValue(row, c.wind, c.wmoWind)
	pres := firstValue(row, c.pres, c.wmoPres)
	if wind <= 0 && pres <= 0 {
		return domain.TrackPoint{}, false, nil
	}
	if pres <= 0 {
		pres = domain.PressureFromWind(wind)
	}
	if wind <= 0 {
		wind = domain.WindFromPressure(pres)
	}

	rmw := optionalFloat(row, c.rmw)
	if rmw > 0 {
		rmw = domain.NauticalMilesToKm(rmw)
	} else {
		rmw = domain.EstimateRMW(pres)
	}
	penv := optionalFloat(row, c.poci)
	if penv <= pres {
		penv = domain.DefaultEnvironmentalPressure
	}

	var ts time.Time
	if raw := field(row, c.isoTime); raw != "" {
		ts, err = time.ParseInLocation(timeLayout, raw, time.UTC)
		if err != nil {
			return domain.TrackPoint{}, false, fmt.Errorf("iso_time: %w", err)
		}
	}

	return domain.TrackPoint{
		Time:                  ts,
		Lat:                   lat,
		Lon:                   lon,
		MaxSustainedWind:      wind,
		CentralPressure:       pres,
		EnvironmentalPressure: penv,
		RadiusMaxWind:         rmw,
	}, true, nil
}

// finishTrack fills time steps and the storm category.
func finishTrack(t *domain.Track) {
	for i := range t.Points {
		switch {
		case i+1 < len(t.Points) && !t.Points[i].Time.IsZero():
			t.Points[i].TimeStep = t.Points[i+1].Time.Sub(t.Points[i].Time).Hours()
		case i > 0:
			t.Points[i].TimeStep = t.Points[i-1].TimeStep
		default:
			t.Points[i].TimeStep = 3
		}
	}
	t.Category = domain.Category(t.PeakWind())
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// optionalFloat returns 0 for a blank or unparseable cell.
func optionalFloat(row []string, i int) float64 {
	v, err := strconv.ParseFloat(field(row, i), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstValue(row []string, cols ...int) float64 {
	for _, c := range cols {
		if v := optionalFloat(row, c); v > 0 {
			return v
		}
	}
	return 0
}
