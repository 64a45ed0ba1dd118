// Package cv loads images and converts them to tensors.
package cv

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"

	"golang.org/x/image/draw"
	"gorgonia.org/tensor"
)

const maxImageBytes = 32 << 20

// FromURL downloads and decodes an image. File URLs and plain paths are read from disk.
func FromURL(ctx context.Context, rawURL string) (image.Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cv: %w", err)
	}
	switch u.Scheme {
	case "", "file":
		return FromFile(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("cv: unsupported scheme %q", u.Scheme)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cv: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cv: fetch %s: %s", rawURL, resp.Status)
	}
	return Decode(io.LimitReader(resp.Body, maxImageBytes))
}

// FromFile decodes the image stored at path.
func FromFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cv: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a png, jpeg or gif image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("cv: decode: %w", err)
	}
	return img, nil
}

// Resize scales img to width x height.
func Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ToTensor converts img to a (1, height, width) grayscale tensor with values in [0,1].
func ToTensor(img image.Image) *tensor.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			data[y*w+x] = float64(g.Y) / 255
		}
	}
	return tensor.New(tensor.WithShape(1, h, w), tensor.WithBacking(data))
}
