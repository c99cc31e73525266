package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/domain/gateway"
)

type fakeUploader struct {
	bucket, key string
	meta        map[string]string
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, bucket, key, _ string, meta map[string]string) (int64, error) {
	f.bucket, f.key, f.meta = bucket, key, meta
	return 1234, f.err
}

func TestParseDestination(t *testing.T) {
	cases := []struct{ in, bucket, prefix string }{
		{"", "default", ""},
		{"videos", "videos", ""},
		{"/videos/compressed/2024/", "videos", "compressed/2024"},
	}
	for _, tc := range cases {
		b, p := ParseDestination(tc.in, "default")
		assert.Equal(t, tc.bucket, b, tc.in)
		assert.Equal(t, tc.prefix, p, tc.in)
	}
}

func TestPublishUploadsWithCaption(t *testing.T) {
	up := &fakeUploader{}
	p := NewObjectPublisher(up, "out")

	res, err := p.Publish(context.Background(), "out/compressed", "/work/j1.compressed.mp4", "Compressed (size:50)")
	require.NoError(t, err)
	assert.Equal(t, "out", up.bucket)
	assert.Equal(t, "compressed/j1.compressed.mp4", up.key)
	assert.Equal(t, "Compressed (size:50)", up.meta["caption"])
	assert.Equal(t, "out/compressed/j1.compressed.mp4", res.Location)
	assert.Equal(t, int64(1234), res.SizeBytes)
}

func TestPublishFailureIsPublishError(t *testing.T) {
	p := NewObjectPublisher(&fakeUploader{err: errors.New("denied")}, "out")
	_, err := p.Publish(context.Background(), "", "/work/a.mp4", "")
	var pubErr *gateway.PublishError
	require.True(t, errors.As(err, &pubErr))

	_, err = NewObjectPublisher(&fakeUploader{}, "").Publish(context.Background(), "", "/work/a.mp4", "")
	require.True(t, errors.As(err, &pubErr))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeFor("a.MP4"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a.bin"))
}
