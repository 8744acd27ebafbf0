package dataset

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PlaceholderSize is the edge length of the blank image used when a sample's
// image cannot be read.
const PlaceholderSize = 224

// Image is a decoded X-ray re-encoded as PNG for transport to the model.
type Image struct {
	PNG         []byte
	Width       int
	Height      int
	Placeholder bool
}

// DataURL returns the image as a base64 data URL.
func (img *Image) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG)
}

// LoadImage decodes the image at path. PNG, JPEG, GIF, BMP, TIFF and WebP are
// accepted.
func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image: decode %s: %w", path, err)
	}
	return encodePNG(decoded)
}

// LoadImageOrPlaceholder is LoadImage, except that a missing or unreadable
// file yields the blank placeholder instead of an error.
func LoadImageOrPlaceholder(path string) *Image {
	img, err := LoadImage(path)
	if err != nil {
		slog.Warn("Using placeholder image", "path", path, "error", err)
		return Placeholder()
	}
	return img
}

var (
	placeholderOnce sync.Once
	placeholder     *Image
)

// Placeholder returns a black PlaceholderSize x PlaceholderSize image.
func Placeholder() *Image {
	placeholderOnce.Do(func() {
		canvas := image.NewRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
		draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)
		img, err := encodePNG(canvas)
		if err != nil {
			panic(fmt.Sprintf("encoding placeholder image: %v", err))
		}
		img.Placeholder = true
		placeholder = img
	})
	cp := *placeholder
	return &cp
}

func encodePNG(img image.Image) (*Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("image: encode png: %w", err)
	}
	b := img.Bounds()
	return &Image{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
