package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/port"
)

type fixedProber struct {
	duration float64
	err      error
}

func (p fixedProber) ProbeDuration(context.Context, string) (float64, error) {
	return p.duration, p.err
}

type memObjects struct {
	data map[string][]byte
}

func (m memObjects) Download(_ context.Context, key, localPath string, onProgress port.TransferCallback) (int64, error) {
	b, ok := m.data[key]
	if !ok {
		return 0, errors.New("no such key")
	}
	out, err := os.Create(localPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	src := port.NewTransferReader(io.NopCloser(bytes.NewReader(b)), 0, int64(len(b)), onProgress)
	return io.Copy(out, iotest.OneByteReader(src))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_video__1_.mp4", SanitizeFilename("my video (1).mp4"))
	assert.Equal(t, "clip-01.mov", SanitizeFilename("clip-01.mov"))
	assert.Equal(t, "video", SanitizeFilename(".."))
}

func TestFetchObjectKey(t *testing.T) {
	dir := t.TempDir()
	f := NewSourceFetcher(dir, memObjects{data: map[string][]byte{"uploads/a b.mp4": []byte("abc")}}, fixedProber{duration: 12.5})

	res, err := f.Fetch(context.Background(), "j1", "/uploads/a b.mp4", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "j1_a_b.mp4"), res.LocalPath)
	assert.Equal(t, 12.5, res.DurationSeconds)
	assert.Equal(t, int64(3), res.SizeBytes)
	assert.FileExists(t, res.LocalPath)
}

func TestFetchURLCopiesLocalFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "source.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video-bytes"), 0o644))
	dir := t.TempDir()
	f := NewSourceFetcher(dir, nil, fixedProber{duration: 3})

	res, err := f.Fetch(context.Background(), "j2", "file://"+src, nil)
	require.NoError(t, err)
	info, err := os.Lstat(res.LocalPath)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	require.NoError(t, os.Remove(res.LocalPath))
	assert.FileExists(t, src)
}

func TestFetchFailures(t *testing.T) {
	dir := t.TempDir()
	objects := memObjects{data: map[string][]byte{"a.mp4": []byte("abc")}}

	_, err := NewSourceFetcher(dir, objects, fixedProber{duration: 1}).Fetch(context.Background(), "j1", "missing.mp4", nil)
	var fetchErr *gateway.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "missing.mp4", fetchErr.Source)

	f := NewSourceFetcher(dir, objects, fixedProber{err: errors.New("not a video")})
	_, err = f.Fetch(context.Background(), "j2", "a.mp4", nil)
	require.True(t, errors.As(err, &fetchErr))
	assert.NoFileExists(t, f.LocalPath("j2", "a.mp4"))

	_, err = NewSourceFetcher(dir, nil, fixedProber{duration: 1}).Fetch(context.Background(), "j3", "a.mp4", nil)
	require.True(t, errors.As(err, &fetchErr))
}

func TestFetchReportsProgress(t *testing.T) {
	dir := t.TempDir()
	f := NewSourceFetcher(dir, memObjects{data: map[string][]byte{"a.mp4": []byte("0123")}}, fixedProber{duration: 1})

	var got []int
	_, err := f.Fetch(context.Background(), "j1", "a.mp4", func(p port.TransferProgress) {
		got = append(got, p.Percent())
	})
	require.NoError(t, err)
	assert.Equal(t, []int{25, 50, 75, 100}, got)
}

func TestNewGettersAreNotShared(t *testing.T) {
	a, b := newGetters(), newGetters()
	assert.NotSame(t, a["https"], b["https"])
	assert.NotSame(t, a["file"], b["file"])
}
