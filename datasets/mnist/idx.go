package mnist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

const (
	imagesMagic = 0x00000803
	labelsMagic = 0x00000801
	maxItems    = 1 << 20
)

// ReadImagesFile decodes a gzipped idx3 image file.
func ReadImagesFile(path string) ([]Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadImages(f)
}

// ReadLabelsFile decodes a gzipped idx1 label file.
func ReadLabelsFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLabels(f)
}

// ReadImages decodes a gzipped idx3 stream of 28x28 images.
func ReadImages(r io.Reader) ([]Input, error) {
	zr, err := gzip.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	var header [4]uint32
	if err := binary.Read(zr, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != imagesMagic {
		return nil, fmt.Errorf("bad images magic %#x", header[0])
	}
	if header[2] != ImgSize || header[3] != ImgSize {
		return nil, fmt.Errorf("unexpected image size %dx%d", header[2], header[3])
	}
	if header[1] > maxItems {
		return nil, fmt.Errorf("implausible image count %d", header[1])
	}
	images := make([]Input, header[1])
	for i := range images {
		if _, err := io.ReadFull(zr, images[i][:]); err != nil {
			return nil, fmt.Errorf("read image %d of %d: %w", i, len(images), err)
		}
	}
	return images, nil
}

// ReadLabels decodes a gzipped idx1 stream of digit labels.
func ReadLabels(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	var header [2]uint32
	if err := binary.Read(zr, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != labelsMagic {
		return nil, fmt.Errorf("bad labels magic %#x", header[0])
	}
	if header[1] > maxItems {
		return nil, fmt.Errorf("implausible label count %d", header[1])
	}
	labels := make([]byte, header[1])
	if _, err := io.ReadFull(zr, labels); err != nil {
		return nil, fmt.Errorf("read %d labels: %w", len(labels), err)
	}
	for i, l := range labels {
		if l >= Classes {
			return nil, fmt.Errorf("label %d at %d out of range", l, i)
		}
	}
	return labels, nil
}
