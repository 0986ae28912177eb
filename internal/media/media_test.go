package media

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

func encodePNG(t *testing.T, w, h int, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeShrinksOpaquePictureToJPEG(t *testing.T) {
	img, err := Normalize(encodePNG(t, 1200, 600, 255), 400)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageBitmap, img.Kind)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, decoded.Bounds().Dx())
	assert.Equal(t, 200, decoded.Bounds().Dy())
}

func TestNormalizeKeepsTransparencyAsPNG(t *testing.T) {
	img, err := Normalize(encodePNG(t, 64, 64, 128), 400)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
}

func TestNormalizeRejectsNonImages(t *testing.T) {
	_, err := Normalize([]byte("%PDF-1.7\n..."), 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Normalize(nil, 0)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Normalize(make([]byte, MaxUploadBytes+1), 0)
	assert.ErrorIs(t, err, ErrTooLarge)
}

// withCanvas rewrites the IHDR chunk of a PNG so that it declares w x h
// pixels without carrying the pixel data.
func withCanvas(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := bytes.Clone(data)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestNormalizeRejectsHugeCanvas(t *testing.T) {
	bomb := withCanvas(t, encodePNG(t, 1, 1, 255), 12000, 12000)

	_, err := Normalize(bomb, 0)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorContains(t, err, "12000x12000")
}

func TestNormalizeRejectsHugePalettedPicture(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a large canvas")
	}
	img := image.NewPaletted(image.Rect(0, 0, 12000, 12000), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.Less(t, buf.Len(), MaxUploadBytes)

	_, err := Normalize(buf.Bytes(), 0)
	assert.ErrorIs(t, err, ErrTooLarge)
}
