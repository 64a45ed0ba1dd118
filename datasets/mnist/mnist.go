// Package mnist fetches, verifies and decodes the MNIST handwritten digit dataset.
package mnist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"

	"github.com/neurlang/mldemos/parallel"
)

// ImgSize is the side of an MNIST image in pixels.
const ImgSize = 28

// Classes is the number of digit classes.
const Classes = 10

// DefaultMirror serves the four gzipped idx files.
const DefaultMirror = "https://storage.googleapis.com/cvdf-datasets/mnist/"

// File is one gzipped idx file and its SHA-256 digest.
type File struct {
	Name   string
	Digest string
}

// FileSet names the four files making up the dataset.
type FileSet struct {
	TrainImages File
	TrainLabels File
	TestImages  File
	TestLabels  File
}

// DefaultFiles is the canonical MNIST distribution.
var DefaultFiles = FileSet{
	TrainImages: File{"train-images-idx3-ubyte.gz", "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609"},
	TrainLabels: File{"train-labels-idx1-ubyte.gz", "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c"},
	TestImages:  File{"t10k-images-idx3-ubyte.gz", "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6"},
	TestLabels:  File{"t10k-labels-idx1-ubyte.gz", "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6"},
}

// Options controls where the dataset is looked for and fetched from.
type Options struct {
	// CacheDir receives downloaded files. Defaults to <user cache dir>/mldemos/mnist.
	CacheDir string
	// SearchDirs are checked, after CacheDir, for already present files.
	SearchDirs []string
	// MirrorURL is the base URL files are downloaded from. Defaults to DefaultMirror.
	MirrorURL string
	// Client performs downloads. Defaults to http.DefaultClient.
	Client *http.Client
	// Offline forbids downloads.
	Offline bool
	// Files overrides DefaultFiles.
	Files *FileSet
}

// Input is one MNIST image, row major, one byte per pixel.
type Input [ImgSize * ImgSize]byte

// Set is a decoded MNIST split. It implements datasets.Source with pixels scaled to [0, 1].
type Set struct {
	Images []Input
	Labels []byte
}

func (s *Set) Len() int            { return len(s.Labels) }
func (s *Set) Shape() tensor.Shape { return tensor.Shape{ImgSize, ImgSize} }
func (s *Set) Classes() int        { return Classes }

func (s *Set) Fill(i int, dst []float64) int {
	for j, px := range s.Images[i] {
		dst[j] = float64(px) / 255
	}
	return int(s.Labels[i])
}

// ErrNotFound is returned when a file is missing and downloads are disabled.
var ErrNotFound = errors.New("mnist: file not found")

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mldemos", "mnist")
	}
	return filepath.Join(dir, "mldemos", "mnist")
}

func (o Options) withDefaults() Options {
	if o.CacheDir == "" {
		o.CacheDir = defaultCacheDir()
	}
	if o.SearchDirs == nil {
		o.SearchDirs = []string{filepath.Join(os.TempDir(), "mnist")}
	}
	if o.MirrorURL == "" {
		o.MirrorURL = DefaultMirror
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Files == nil {
		o.Files = &DefaultFiles
	}
	return o
}

// New obtains and decodes the train and test splits. The four files are resolved
// concurrently; each is taken from the first directory holding a copy with the
// expected digest, or downloaded into the cache directory.
func New(ctx context.Context, opts Options) (train, test *Set, err error) {
	opts = opts.withDefaults()
	files := []File{opts.Files.TrainImages, opts.Files.TrainLabels, opts.Files.TestImages, opts.Files.TestLabels}

	var (
		images [2][]Input
		labels [2][]byte
	)
	err = parallel.ForEachErr(len(files), len(files), func(i int) error {
		path, err := resolve(ctx, opts, files[i])
		if err != nil {
			return err
		}
		split := i / 2
		if i%2 == 0 {
			images[split], err = ReadImagesFile(path)
		} else {
			labels[split], err = ReadLabelsFile(path)
		}
		if err != nil {
			return fmt.Errorf("mnist: decode %s: %w", files[i].Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for split, name := range []string{"train", "test"} {
		if len(images[split]) != len(labels[split]) {
			return nil, nil, fmt.Errorf("mnist: %s split has %d images but %d labels",
				name, len(images[split]), len(labels[split]))
		}
	}
	train = &Set{Images: images[0], Labels: labels[0]}
	test = &Set{Images: images[1], Labels: labels[1]}
	log.Info().Int("train", train.Len()).Int("test", test.Len()).Msg("mnist dataset ready")
	return train, test, nil
}
