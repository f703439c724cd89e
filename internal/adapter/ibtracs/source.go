package ibtracs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// Query filters tracks. Zero fields match everything.
type Query struct {
	Basin    string
	YearFrom int
	YearTo   int
	MinWind  float64 // kn, compared against the track peak
}

func (q Query) match(t domain.Track) bool {
	if q.Basin != "" && !strings.EqualFold(q.Basin, t.Basin) {
		return false
	}
	if q.YearFrom > 0 && t.Season < q.YearFrom {
		return false
	}
	if q.YearTo > 0 && t.Season > q.YearTo {
		return false
	}
	return t.PeakWind() >= q.MinWind
}

// Source implements domain.TrackSource over a local IBTrACS CSV. When the
// file is missing and a download URL is configured, it is fetched once.
type Source struct {
	path       string
	url        string
	provider   string
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	tracks []domain.Track
	loaded bool
}

// NewSource creates a track source reading path. downloadURL may be empty.
func NewSource(path, downloadURL, provider string, timeout time.Duration, logger *slog.Logger) *Source {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 3
	httpClient := rc.StandardClient()
	httpClient.Timeout = timeout

	if provider == "" {
		provider = DefaultProvider
	}
	return &Source{
		path:       path,
		url:        downloadURL,
		provider:   provider,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Tracks returns the tracks matching q in file order.
func (s *Source) Tracks(ctx context.Context, q Query) ([]domain.Track, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Track
	for _, t := range all {
		if q.match(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// FindStorm returns the first track of the season and genesis basin whose
// name contains name, ignoring case.
func (s *Source) FindStorm(ctx context.Context, year int, basin, name string) (domain.Track, error) {
	tracks, err := s.Tracks(ctx, Query{Basin: basin, YearFrom: year, YearTo: year})
	if err != nil {
		return domain.Track{}, err
	}
	needle := strings.ToUpper(strings.TrimSpace(name))
	for _, t := range tracks {
		if strings.Contains(strings.ToUpper(t.Name), needle) {
			return t, nil
		}
	}
	return domain.Track{}, fmt.Errorf("%s %d %s: %w", name, year, basin, domain.ErrStormNotFound)
}

func (s *Source) load(ctx context.Context) ([]domain.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.tracks, nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) && s.url != "" {
		if err := s.download(ctx); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ibtracs: %w", err)
	}
	defer f.Close()

	start := time.Now()
	tracks, err := Parse(f, s.provider)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ibtracs loaded",
		"path", s.path,
		"provider", s.provider,
		"tracks", len(tracks),
		"duration", time.Since(start),
	)
	s.tracks, s.loaded = tracks, true
	return tracks, nil
}

func (s *Source) download(ctx context.Context) error {
	s.logger.Info("downloading ibtracs", "url", s.url, "path", s.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ibtracs download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ibtracs download: status %d: %s", resp.StatusCode, body)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ibtracs download: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ibtracs-*.csv")
	if err != nil {
		return fmt.Errorf("ibtracs download: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("ibtracs download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ibtracs download: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
