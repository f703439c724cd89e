package analog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

// straightTrack runs from (lat0, lon0) by (dLat, dLon) per fix.
func straightTrack(sid string, lat0, lon0, dLat, dLon float64, n int) domain.Track {
	points := make([]domain.TrackPoint, n)
	for i := range points {
		points[i] = domain.TrackPoint{Lat: lat0 + dLat*float64(i), Lon: lon0 + dLon*float64(i)}
	}
	return domain.Track{SID: sid, Name: sid, Points: points}
}

func fixtureTracks() []domain.Track {
	var tracks []domain.Track
	// Northward Bay of Bengal tracks around (19.5, 89.5).
	for i := 0; i < 4; i++ {
		off := 0.2 * float64(i)
		tracks = append(tracks, straightTrack(fmt.Sprintf("bob-%d", i), 16+off, 89+off, 0.5, 0.1, 15))
	}
	// Westward Arabian Sea tracks around (15, 65).
	for i := 0; i < 3; i++ {
		off := 0.3 * float64(i)
		tracks = append(tracks, straightTrack(fmt.Sprintf("as-%d", i), 15+off, 68+off, 0, -0.4, 15))
	}
	// A lone track far from both.
	tracks = append(tracks, straightTrack("stray", 5, 100, 0.1, 0.1, 10))
	return tracks
}

func TestCluster(t *testing.T) {
	labels := Cluster(fixtureTracks(), 1.0, 3)

	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, Noise}, labels)
	assert.Equal(t, []int{4, 5, 6}, Members(labels, 1))
}

func TestCluster_MinSamplesCountsSelf(t *testing.T) {
	tracks := []domain.Track{
		straightTrack("a", 10, 80, 0, 0, 2),
		straightTrack("b", 10.5, 80, 0, 0, 2),
	}
	assert.Equal(t, []int{0, 0}, Cluster(tracks, 1.0, 2))
	assert.Equal(t, []int{Noise, Noise}, Cluster(tracks, 1.0, 3))
}

func TestCluster_BorderPoint(t *testing.T) {
	// Only b is core at minSamples 3; a and c are first marked noise and
	// then absorbed as border points.
	tracks := []domain.Track{
		straightTrack("c", 10, 81.4, 0, 0, 1),
		straightTrack("a", 10, 80, 0, 0, 1),
		straightTrack("b", 10, 80.5, 0, 0, 1),
	}
	assert.Equal(t, []int{0, 0, 0}, Cluster(tracks, 1.0, 3))
	assert.Equal(t, []int{Noise, 0, 0}, Cluster(tracks, 0.6, 2))
}

func TestEncode(t *testing.T) {
	track := straightTrack("t", 10, 80, 1, 2, 3) // lat 10,11,12 lon 80,82,84

	got, err := Encode(track, 5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 10.5, 11, 11.5, 12, 80, 81, 82, 83, 84}, got, 1e-9)

	single, err := Encode(straightTrack("s", 7, 70, 0, 0, 1), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 7, 7, 70, 70, 70}, single)

	_, err = Encode(domain.Track{}, 3)
	assert.True(t, errors.Is(err, domain.ErrEmptyTrack))
}

func TestRefine(t *testing.T) {
	tracks := fixtureTracks()
	labels := Cluster(tracks, 1.0, 3)

	analogs, err := Refine(tracks, labels, 0, Options{Components: 3, TopN: 4})
	require.NoError(t, err)
	require.Len(t, analogs, 4)

	for i := 1; i < len(analogs); i++ {
		assert.GreaterOrEqual(t, analogs[i-1].Similarity, analogs[i].Similarity)
	}
	for _, a := range analogs {
		assert.Equal(t, 0, a.Cluster, a.SID)
		assert.Equal(t, tracks[a.Index].SID, a.SID)
	}
}

func TestRefine_ComponentsClamped(t *testing.T) {
	tracks := fixtureTracks()
	labels := Cluster(tracks, 1.0, 3)

	analogs, err := Refine(tracks, labels, 1, Options{EncodePoints: 4, Components: 50, TopN: 100})
	require.NoError(t, err)
	assert.Len(t, analogs, len(tracks))
}

func TestRefine_Errors(t *testing.T) {
	tracks := fixtureTracks()

	_, err := Refine(nil, nil, 0, Options{})
	require.Error(t, err)

	_, err = Refine(tracks, []int{0}, 0, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 labels for 8 tracks")

	_, err = Refine(tracks, Cluster(tracks, 1.0, 3), 7, Options{})
	assert.True(t, errors.Is(err, domain.ErrEmptyCluster))
}
