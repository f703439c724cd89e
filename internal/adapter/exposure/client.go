// Package exposure loads gridded asset values (LitPop) per country.
package exposure

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
	"github.com/couchcryptid/cyclone-impact-service/internal/observability"
)

// FileName is the per-country exposure file, e.g. "LitPop_BGD.csv".
func FileName(country string) string {
	return fmt.Sprintf("LitPop_%s.csv", strings.ToUpper(country))
}

// Client implements domain.ExposureSource over per-country CSV files held in
// a local directory or served under an HTTP base URL.
type Client struct {
	dir        string
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an exposure client. When baseURL is set files are
// fetched over HTTP with retries; otherwise they are read from dir.
func NewClient(dir, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 3
	httpClient := rc.StandardClient()
	httpClient.Timeout = timeout

	return &Client{
		dir:        dir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logger,
	}
}

// Exposure returns every exposure point of the ISO3 country.
func (c *Client) Exposure(ctx context.Context, country string) ([]domain.ExposurePoint, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	source := "dir"
	if c.baseURL != "" {
		source = "http"
	}

	start := time.Now()
	points, err := c.load(ctx, country)
	c.metrics.ExposureFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ExposureRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("exposure %s: %w", country, err)
	}
	c.metrics.ExposureRequests.WithLabelValues(source, "success").Inc()

	c.logger.Debug("exposure loaded",
		"country", country,
		"source", source,
		"points", len(points),
		"duration", time.Since(start),
	)
	return points, nil
}

func (c *Client) load(ctx context.Context, country string) ([]domain.ExposurePoint, error) {
	if c.baseURL == "" {
		f, err := os.Open(filepath.Join(c.dir, FileName(country)))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ParseCSV(f, country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+FileName(country), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exposure request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exposure API error: status %d: %s", resp.StatusCode, body)
	}
	return ParseCSV(resp.Body, country)
}

// ParseCSV reads an exposure table with latitude, longitude and value
// columns ("lat"/"lon" accepted) and an optional region_id column.
func ParseCSV(r io.Reader, country string) ([]domain.ExposurePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	latCol, ok := firstColumn(idx, "latitude", "lat")
	if !ok {
		return nil, errors.New("missing latitude column")
	}
	lonCol, ok := firstColumn(idx, "longitude", "lon")
	if !ok {
		return nil, errors.New("missing longitude column")
	}
	valCol, ok := firstColumn(idx, "value")
	if !ok {
		return nil, errors.New("missing value column")
	}
	regionCol, hasRegion := firstColumn(idx, "region_id")

	var points []domain.ExposurePoint
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		lat, err := parseCell(row, latCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		lon, err := parseCell(row, lonCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}
		value, err := parseCell(row, valCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: value: %w", line, err)
		}

		p := domain.ExposurePoint{
			ID:      domain.ExposureID(lat, lon),
			Lat:     lat,
			Lon:     lon,
			Value:   value,
			Country: country,
		}
		if hasRegion {
			if region, err := parseCell(row, regionCol); err == nil {
				p.RegionID = int(region)
			}
		}
		points = append(points, p)
	}
	return points, nil
}

func firstColumn(idx map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := idx[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func parseCell(row []string, i int) (float64, error) {
	if i >= len(row) {
		return 0, errors.New("missing cell")
	}
	return strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
}
