package media

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"recipe-agents/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})

	path := filepath.Join(t.TempDir(), "dish.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestProbe(t *testing.T) {
	path := writePNG(t, 32, 16)

	img, err := Probe(path, "/static/images/dish.png", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, Reference{URL: "/static/images/dish.png", Format: "png", Width: 32, Height: 16}, img.Reference())
}

func TestProbeTooLarge(t *testing.T) {
	path := writePNG(t, 64, 64)

	_, err := Probe(path, "/x.png", 10)
	var ce *common.CustomError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "INVALID_IMAGE_SIZE", ce.Code)
}

func TestProbeNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dish.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := Probe(path, "/x.png", 0)
	var ce *common.CustomError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "INVALID_IMAGE_FORMAT", ce.Code)

	_, err = NewStaticImage(path, "/x.png", 0)
	assert.Error(t, err)
}

func TestNewStaticImageMissingFile(t *testing.T) {
	img, err := NewStaticImage(filepath.Join(t.TempDir(), "nope.webp"), "/static/images/nope.webp", 0)
	require.NoError(t, err)
	assert.Equal(t, Reference{URL: "/static/images/nope.webp"}, img.Reference())
}

func TestNilReference(t *testing.T) {
	var img *StaticImage
	assert.Equal(t, Reference{}, img.Reference())
}
