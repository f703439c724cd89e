package analog

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

const (
	DefaultEncodePoints  = 20
	DefaultComponents    = 10
	DefaultTopN          = 5
	DefaultTargetCluster = 2
)

// Analog is a track ranked by similarity to the target cluster.
type Analog struct {
	Index      int          `json:"index"`
	Track      domain.Track `json:"-"`
	SID        string       `json:"sid"`
	Name       string       `json:"name"`
	Cluster    int          `json:"cluster"`
	Similarity float64      `json:"similarity"`
}

// Options tune Refine. Zero values select the defaults.
type Options struct {
	EncodePoints int
	Components   int
	TopN         int
}

// Encode resamples the path to n evenly spaced positions and returns the
// latitudes followed by the longitudes.
func Encode(track domain.Track, n int) ([]float64, error) {
	if len(track.Points) == 0 {
		return nil, fmt.Errorf("encode %s: %w", track.SID, domain.ErrEmptyTrack)
	}
	if n < 2 {
		n = DefaultEncodePoints
	}

	lats := make([]float64, len(track.Points))
	lons := make([]float64, len(track.Points))
	for i, p := range track.Points {
		lats[i], lons[i] = p.Lat, p.Lon
	}

	out := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n-1)
		out[i] = resample(lats, f)
		out[n+i] = resample(lons, f)
	}
	return out, nil
}

// resample linearly interpolates v at fraction f of its index range.
func resample(v []float64, f float64) float64 {
	if len(v) == 1 {
		return v[0]
	}
	pos := f * float64(len(v)-1)
	i := int(math.Floor(pos))
	if i >= len(v)-1 {
		return v[len(v)-1]
	}
	frac := pos - float64(i)
	return v[i] + (v[i+1]-v[i])*frac
}

// Refine projects the encoded tracks onto their principal components and
// ranks every track by cosine similarity to the centroid of the target
// cluster. The top N are returned, most similar first.
func Refine(tracks []domain.Track, labels []int, target int, opts Options) ([]Analog, error) {
	if len(tracks) == 0 {
		return nil, errors.New("refine analogs: no tracks")
	}
	if len(labels) != len(tracks) {
		return nil, fmt.Errorf("refine analogs: %d labels for %d tracks", len(labels), len(tracks))
	}
	members := Members(labels, target)
	if len(members) == 0 {
		return nil, fmt.Errorf("refine analogs: cluster %d: %w", target, domain.ErrEmptyCluster)
	}

	n := opts.EncodePoints
	if n < 2 {
		n = DefaultEncodePoints
	}
	k := opts.Components
	if k < 1 {
		k = DefaultComponents
	}
	topN := opts.TopN
	if topN < 1 {
		topN = DefaultTopN
	}

	data := mat.NewDense(len(tracks), 2*n, nil)
	for i, t := range tracks {
		row, err := Encode(t, n)
		if err != nil {
			return nil, fmt.Errorf("refine analogs: %w", err)
		}
		data.SetRow(i, row)
	}

	projected, err := project(data, k)
	if err != nil {
		return nil, err
	}

	_, dims := projected.Dims()
	centroid := make([]float64, dims)
	for _, i := range members {
		floats.Add(centroid, projected.RawRowView(i))
	}
	floats.Scale(1/float64(len(members)), centroid)

	analogs := make([]Analog, len(tracks))
	for i, t := range tracks {
		analogs[i] = Analog{
			Index:      i,
			Track:      t,
			SID:        t.SID,
			Name:       t.Name,
			Cluster:    labels[i],
			Similarity: cosine(projected.RawRowView(i), centroid),
		}
	}
	sort.SliceStable(analogs, func(a, b int) bool {
		return analogs[a].Similarity > analogs[b].Similarity
	})
	if len(analogs) > topN {
		analogs = analogs[:topN]
	}
	return analogs, nil
}

// project centres the rows and maps them onto the first k principal
// components; k is clamped to the number the data supports.
func project(data *mat.Dense, k int) (*mat.Dense, error) {
	rows, cols := data.Dims()

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New("refine analogs: principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, available := vecs.Dims()
	k = min(k, available)

	centred := mat.DenseCopyOf(data)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, data)
		mean := stat.Mean(col, nil)
		for i := 0; i < rows; i++ {
			centred.Set(i, j, centred.At(i, j)-mean)
		}
	}

	var out mat.Dense
	out.Mul(centred, vecs.Slice(0, cols, 0, k))
	return &out, nil
}

func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
