package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)

	loc, err := s.Put(context.Background(), "amphan_2020/track_ssp245.geojson", []byte(`{"type":"FeatureCollection"}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "amphan_2020", "track_ssp245.geojson"), loc)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection"}`, string(got))
}

func TestLocalStore_Overwrites(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	_, err := s.Put(context.Background(), "a/b.geojson", []byte("one"))
	require.NoError(t, err)
	loc, err := s.Put(context.Background(), "a/b.geojson", []byte("two"))
	require.NoError(t, err)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestLocalStore_RootIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, nil, 0o644))

	_, err := NewLocalStore(root).Put(context.Background(), "x/y.geojson", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create artifact dir")
}

var escapingKeys = []string{
	"../escaped_2035/track_ssp245.geojson",
	"a/../../b.geojson",
	"/tmp/abs.geojson",
	"",
}

func TestLocalStore_RejectsKeysOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	s := NewLocalStore(filepath.Join(parent, "outputs"))

	for _, key := range escapingKeys {
		t.Run(key, func(t *testing.T) {
			_, err := s.Put(context.Background(), key, []byte("{}"))
			require.ErrorIs(t, err, ErrInvalidKey)
		})
	}

	_, err := os.Stat(filepath.Join(parent, "escaped_2035"))
	assert.True(t, os.IsNotExist(err), "nothing may be written beside the root")
}

// --- S3 ---

type mockUploader struct {
	inputs []*s3manager.UploadInput
	bodies []string
	err    error
}

func (m *mockUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, _ := io.ReadAll(in.Body)
	m.inputs = append(m.inputs, in)
	m.bodies = append(m.bodies, string(body))
	return &s3manager.UploadOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	up := &mockUploader{}
	s := NewS3Store(up, "ccart-artifacts", "/runs/")

	loc, err := s.Put(context.Background(), "amphan_2020/impact_ssp585.geojson", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "s3://ccart-artifacts/runs/amphan_2020/impact_ssp585.geojson", loc)

	require.Len(t, up.inputs, 1)
	in := up.inputs[0]
	assert.Equal(t, "ccart-artifacts", aws.StringValue(in.Bucket))
	assert.Equal(t, "runs/amphan_2020/impact_ssp585.geojson", aws.StringValue(in.Key))
	assert.Equal(t, "application/geo+json", aws.StringValue(in.ContentType))
	assert.Equal(t, "{}", up.bodies[0])
}

func TestS3Store_RejectsKeysOutsidePrefix(t *testing.T) {
	up := &mockUploader{}
	s := NewS3Store(up, "ccart-artifacts", "runs")

	for _, key := range escapingKeys {
		_, err := s.Put(context.Background(), key, nil)
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.Empty(t, up.inputs)
}

func TestS3Store_NoPrefix(t *testing.T) {
	up := &mockUploader{}
	loc, err := NewS3Store(up, "b", "").Put(context.Background(), "k/x.geojson", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3://b/k/x.geojson", loc)
}

func TestS3Store_UploadError(t *testing.T) {
	up := &mockUploader{err: errors.New("access denied")}
	_, err := NewS3Store(up, "b", "").Put(context.Background(), "k/x.geojson", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload k/x.geojson")
	assert.Contains(t, err.Error(), "access denied")
}
