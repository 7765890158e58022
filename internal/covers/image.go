package covers

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ErrTooSmall is returned for images narrower than the configured minimum.
var ErrTooSmall = errors.New("image narrower than minimum width")

// Image is an encoded JPEG ready to be written to the store.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Processor normalises fetched images: decode, reject small ones, downscale
// to the target width and re-encode as JPEG.
type Processor struct {
	targetWidth int
	minWidth    int
	quality     int
}

func NewProcessor(targetWidth, minWidth, quality int) *Processor {
	if minWidth <= 0 {
		minWidth = targetWidth
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Processor{targetWidth: targetWidth, minWidth: minWidth, quality: quality}
}

// Process turns raw response bytes into a stored cover image.
func (p *Processor) Process(data []byte) (*Image, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() < p.minWidth {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooSmall, bounds.Dx(), p.minWidth)
	}
	if p.targetWidth > 0 && bounds.Dx() > p.targetWidth {
		img = imaging.Resize(img, p.targetWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	out := img.Bounds()
	return &Image{Data: buf.Bytes(), Width: out.Dx(), Height: out.Dy()}, nil
}

func decode(data []byte) (image.Image, error) {
	if isWebP(data) {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
