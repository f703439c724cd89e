package domain

import "errors"

var (
	// ErrInvalidScenario is returned when a scenario fails validation.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrStormNotFound is returned when no track matches a storm lookup.
	ErrStormNotFound = errors.New("storm not found")

	// ErrEmptyTrack is returned when a track has no usable lon/lat points.
	ErrEmptyTrack = errors.New("track has no points")

	// ErrNoExposure is returned when no exposure points remain after clipping.
	ErrNoExposure = errors.New("no exposure data")

	// ErrEmptyCluster is returned when an analog search targets a cluster
	// with no members.
	ErrEmptyCluster = errors.New("target cluster has no members")

	// ErrRunNotFound is returned when the run ledger has no such run.
	ErrRunNotFound = errors.New("run not found")
)
