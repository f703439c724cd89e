// Package analog finds historical cyclones whose paths resemble a target
// group of tracks: density clustering of track positions followed by a PCA
// refinement of the candidate set.
package analog

import (
	"math"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

const (
	// Noise labels tracks that belong to no cluster.
	Noise = -1

	DefaultEps        = 1.0 // degrees
	DefaultMinSamples = 3
)

// Cluster groups tracks with DBSCAN on their mean (lat, lon). Distance is
// Euclidean in degrees and minSamples counts the track itself. Labels run
// from 0 in discovery order; Noise marks outliers.
func Cluster(tracks []domain.Track, eps float64, minSamples int) []int {
	if eps <= 0 {
		eps = DefaultEps
	}
	if minSamples < 1 {
		minSamples = DefaultMinSamples
	}

	features := make([][2]float64, len(tracks))
	for i, t := range tracks {
		lat, lon := t.MeanPosition()
		features[i] = [2]float64{lat, lon}
	}
	return dbscan(features, eps, minSamples)
}

const unvisited = -2

func dbscan(x [][2]float64, eps float64, minSamples int) []int {
	labels := make([]int, len(x))
	for i := range labels {
		labels[i] = unvisited
	}

	neighbours := func(i int) []int {
		var out []int
		for j := range x {
			if math.Hypot(x[i][0]-x[j][0], x[i][1]-x[j][1]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := range x {
		if labels[i] != unvisited {
			continue
		}
		seeds := neighbours(i)
		if len(seeds) < minSamples {
			labels[i] = Noise
			continue
		}

		labels[i] = cluster
		for k := 0; k < len(seeds); k++ {
			j := seeds[k]
			if labels[j] == Noise {
				labels[j] = cluster // border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			if n := neighbours(j); len(n) >= minSamples {
				seeds = append(seeds, n...)
			}
		}
		cluster++
	}
	return labels
}

// Members returns the indices of tracks carrying label.
func Members(labels []int, label int) []int {
	var out []int
	for i, l := range labels {
		if l == label {
			out = append(out, i)
		}
	}
	return out
}
