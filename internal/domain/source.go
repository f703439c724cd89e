package domain

import "context"

// ExposureSource supplies gridded asset values for a country.
type ExposureSource interface {
	// Exposure returns every exposure point of the ISO3 country.
	Exposure(ctx context.Context, country string) ([]ExposurePoint, error)
}

// TrackSource looks up historical cyclone tracks.
type TrackSource interface {
	// FindStorm returns the first track of the year and genesis basin whose
	// name contains name (case-insensitive). It wraps ErrStormNotFound when
	// there is no match.
	FindStorm(ctx context.Context, year int, basin, name string) (Track, error)
}
