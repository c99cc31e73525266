package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/domain/gateway"
)

func TestLocalPublisherCopiesFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "j1.compressed.mp4")
	require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0o644))
	out := filepath.Join(t.TempDir(), "published")

	res, err := NewLocalPublisher(out).Publish(context.Background(), "", src, "Compressed (quality:low)")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "j1.compressed.mp4"), res.Location)
	assert.Equal(t, int64(10), res.SizeBytes)
	assert.FileExists(t, res.Location)
	assert.FileExists(t, src)

	caption, err := os.ReadFile(res.Location + ".txt")
	require.NoError(t, err)
	assert.Equal(t, "Compressed (quality:low)\n", string(caption))
}

func TestLocalPublisherErrors(t *testing.T) {
	var pubErr *gateway.PublishError

	_, err := NewLocalPublisher("").Publish(context.Background(), "", "/work/a.mp4", "")
	require.True(t, errors.As(err, &pubErr))

	_, err = NewLocalPublisher(t.TempDir()).Publish(context.Background(), "", "/does/not/exist.mp4", "")
	require.True(t, errors.As(err, &pubErr))
}
