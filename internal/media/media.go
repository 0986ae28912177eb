// Package media validates uploaded product pictures and shrinks them to a
// size that fits comfortably in a bundle.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

const (
	MaxUploadBytes = 5 << 20
	// MaxPixels bounds the decoded bitmap. Compressed formats can declare
	// huge canvases in a few kilobytes.
	MaxPixels      = 40_000_000
	DefaultMaxSide = 400
	jpegQuality    = 80
)

var (
	ErrEmpty       = errors.New("empty image")
	ErrTooLarge    = errors.New("image is too large")
	ErrUnsupported = errors.New("unsupported image type")
)

var decodable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Normalize sniffs data, rejects anything that is not a picture, and scales
// it so that its longest side is at most maxSide pixels. Opaque pictures are
// re-encoded as JPEG; pictures with transparency stay PNG.
func Normalize(data []byte, maxSide int) (domain.Image, error) {
	if len(data) == 0 {
		return domain.Image{}, ErrEmpty
	}
	if len(data) > MaxUploadBytes {
		return domain.Image{}, fmt.Errorf("%w: more than %d MB", ErrTooLarge, MaxUploadBytes>>20)
	}
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}

	mt := mimetype.Detect(data)
	if !decodable[mt.String()] {
		return domain.Image{}, fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return domain.Image{}, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	scaled := scale(src, maxSide)
	var buf bytes.Buffer
	if hasAlpha(scaled) {
		if err := png.Encode(&buf, scaled); err != nil {
			return domain.Image{}, fmt.Errorf("encoding png: %w", err)
		}
		return domain.BitmapImage(buf.Bytes(), "image/png"), nil
	}
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return domain.Image{}, fmt.Errorf("encoding jpeg: %w", err)
	}
	return domain.BitmapImage(buf.Bytes(), "image/jpeg"), nil
}

// scale box-filters src down so that neither side exceeds maxSide. Smaller
// pictures are returned as they are.
func scale(src image.Image, maxSide int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return src
	}

	dw, dh := maxSide, h*maxSide/w
	if h > w {
		dw, dh = w*maxSide/h, maxSide
	}
	dw, dh = max(dw, 1), max(dh, 1)

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for y := range dh {
		y0 := b.Min.Y + y*h/dh
		y1 := max(b.Min.Y+(y+1)*h/dh, y0+1)
		for x := range dw {
			x0 := b.Min.X + x*w/dw
			x1 := max(b.Min.X+(x+1)*w/dw, x0+1)

			var r, g, bl, a, n uint64
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					c := color.NRGBAModel.Convert(src.At(sx, sy)).(color.NRGBA)
					r += uint64(c.R)
					g += uint64(c.G)
					bl += uint64(c.B)
					a += uint64(c.A)
					n++
				}
			}
			dst.SetNRGBA(x, y, color.NRGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: uint8(a / n)})
		}
	}
	return dst
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}
