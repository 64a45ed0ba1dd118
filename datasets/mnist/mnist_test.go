package mnist

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gz(t *testing.T, header []uint32, payload []byte) []byte {
	t.Helper()
	var raw bytes.Buffer
	require.NoError(t, binary.Write(&raw, binary.BigEndian, header))
	raw.Write(payload)
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	_, err := zw.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return out.Bytes()
}

func imagesFile(t *testing.T, n int) []byte {
	payload := make([]byte, n*ImgSize*ImgSize)
	for i := 0; i < n; i++ {
		payload[i*ImgSize*ImgSize] = byte(10 * (i + 1))
	}
	return gz(t, []uint32{imagesMagic, uint32(n), ImgSize, ImgSize}, payload)
}

func labelsFile(t *testing.T, labels ...byte) []byte {
	return gz(t, []uint32{labelsMagic, uint32(len(labels))}, labels)
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// fixture writes a small dataset and returns a matching FileSet.
func fixture(t *testing.T, dir string) (*FileSet, map[string][]byte) {
	t.Helper()
	contents := map[string][]byte{
		"train-images.gz": imagesFile(t, 3),
		"train-labels.gz": labelsFile(t, 1, 2, 3),
		"test-images.gz":  imagesFile(t, 2),
		"test-labels.gz":  labelsFile(t, 7, 9),
	}
	if dir != "" {
		for name, data := range contents {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
		}
	}
	fs := &FileSet{
		TrainImages: File{"train-images.gz", digest(contents["train-images.gz"])},
		TrainLabels: File{"train-labels.gz", digest(contents["train-labels.gz"])},
		TestImages:  File{"test-images.gz", digest(contents["test-images.gz"])},
		TestLabels:  File{"test-labels.gz", digest(contents["test-labels.gz"])},
	}
	return fs, contents
}

func TestNewFromSearchDir(t *testing.T) {
	dir := t.TempDir()
	files, _ := fixture(t, dir)

	train, test, err := New(context.Background(), Options{
		CacheDir:   t.TempDir(),
		SearchDirs: []string{dir},
		Offline:    true,
		Files:      files,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, byte(9), test.Labels[1])

	dst := make([]float64, ImgSize*ImgSize)
	label := train.Fill(1, dst)
	assert.Equal(t, 2, label)
	assert.InDelta(t, 20.0/255, dst[0], 1e-12)
	assert.Equal(t, 0.0, dst[1])
}

func TestNewChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	files, _ := fixture(t, dir)
	files.TestLabels.Digest = strings.Repeat("0", 64)

	_, _, err := New(context.Background(), Options{
		CacheDir:   t.TempDir(),
		SearchDirs: []string{dir},
		Offline:    true,
		Files:      files,
	})
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestNewOfflineMissing(t *testing.T) {
	files, _ := fixture(t, "")
	_, _, err := New(context.Background(), Options{
		CacheDir:   t.TempDir(),
		SearchDirs: []string{},
		Offline:    true,
		Files:      files,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewDownloadsIntoCache(t *testing.T) {
	files, contents := fixture(t, "")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := contents[strings.TrimPrefix(r.URL.Path, "/mnist/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	cache := t.TempDir()
	opts := Options{
		CacheDir:   cache,
		SearchDirs: []string{},
		MirrorURL:  srv.URL + "/mnist",
		Client:     srv.Client(),
		Files:      files,
	}
	train, _, err := New(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, int32(4), hits.Load())
	assert.FileExists(t, filepath.Join(cache, "train-images.gz"))

	_, _, err = New(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load(), "cached files must not be downloaded again")
}

func TestNewDownloadChecksumMismatch(t *testing.T) {
	files, contents := fixture(t, "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(contents["test-labels.gz"])
	}))
	defer srv.Close()

	cache := t.TempDir()
	_, _, err := New(context.Background(), Options{
		CacheDir:   cache,
		SearchDirs: []string{},
		MirrorURL:  srv.URL,
		Client:     srv.Client(),
		Files:      files,
	})
	assert.ErrorIs(t, err, ErrChecksum)
	_, statErr := os.Stat(filepath.Join(cache, "train-images.gz"))
	assert.True(t, os.IsNotExist(statErr), "unverified download must not be kept")
}

func TestReadImagesRejectsBadMagic(t *testing.T) {
	_, err := ReadImages(bytes.NewReader(labelsFile(t, 1)))
	assert.Error(t, err)
	_, err = ReadLabels(bytes.NewReader(imagesFile(t, 1)))
	assert.Error(t, err)
}

func TestReadImagesTruncated(t *testing.T) {
	data := gz(t, []uint32{imagesMagic, 2, ImgSize, ImgSize}, make([]byte, ImgSize*ImgSize))
	_, err := ReadImages(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestReadLabelsRange(t *testing.T) {
	_, err := ReadLabels(bytes.NewReader(labelsFile(t, 3, 10)))
	assert.Error(t, err)
}
