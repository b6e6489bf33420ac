package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xform-media/xform/common/imaging"
	"github.com/xform-media/xform/common/logger"
)

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

func testPipeline(optimizeSVG bool) *Pipeline {
	return NewPipeline(optimizeSVG, testLogger())
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

const svgDoc = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
<!-- comment --><script>alert(1)</script><rect width="10" height="10"/></svg>`

func TestTransform_EmptyModifiersPassthrough(t *testing.T) {
	src := pngBytes(t, 10, 10)

	result, err := testPipeline(true).Transform(context.Background(), src, nil, "a.png")
	require.NoError(t, err)

	// Byte-for-byte, no decode attempted
	assert.True(t, bytes.Equal(src, result.Data))
	assert.Empty(t, result.Format)
}

func TestTransform_PassthroughForGarbageWithoutModifiers(t *testing.T) {
	src := []byte("definitely not an image")
	result, err := testPipeline(true).Transform(context.Background(), src, map[string]string{}, "a.bin")
	require.NoError(t, err)
	assert.Equal(t, src, result.Data)
}

func TestTransform_InvalidImage(t *testing.T) {
	for _, src := range [][]byte{{}, make([]byte, 32)} {
		_, err := testPipeline(true).Transform(context.Background(), src, map[string]string{"w": "10"}, "broken.jpg")
		require.Error(t, err)
		assert.True(t, errors.Is(err, imaging.ErrInvalidImage))
		assert.Contains(t, err.Error(), "broken.jpg")
	}
}

func TestTransform_Resize(t *testing.T) {
	src := pngBytes(t, 100, 100)

	result, err := testPipeline(true).Transform(context.Background(), src, map[string]string{"s": "50x50"}, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", result.Format)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestTransform_JpgNormalizesToJpeg(t *testing.T) {
	src := pngBytes(t, 10, 10)

	result, err := testPipeline(true).Transform(context.Background(), src, map[string]string{"f": "jpg"}, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", result.Format)

	_, typ, err := image.DecodeConfig(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", typ)
}

func TestTransform_UnsupportedFormatFallsBackToSourceType(t *testing.T) {
	src := pngBytes(t, 10, 10)

	// avif is negotiable but the codec can't encode it; it silently
	// falls back to the source's own type.
	result, err := testPipeline(true).Transform(context.Background(), src, map[string]string{"f": "avif"}, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", result.Format)
}

func TestTransform_UnknownModifiersIgnored(t *testing.T) {
	src := pngBytes(t, 10, 10)

	result, err := testPipeline(true).Transform(context.Background(), src, map[string]string{"sparkle": "max", "w": "5"}, "a.png")
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Width)
}

func TestTransform_SVGOptimized(t *testing.T) {
	result, err := testPipeline(true).Transform(context.Background(), []byte(svgDoc), map[string]string{"w": "100"}, "a.svg")
	require.NoError(t, err)

	assert.Equal(t, "svg+xml", result.Format)
	assert.NotContains(t, string(result.Data), "<script")
	assert.NotContains(t, string(result.Data), "comment")
}

func TestTransform_SVGPassthroughWhenOptimizerDisabled(t *testing.T) {
	result, err := testPipeline(false).Transform(context.Background(), []byte(svgDoc), map[string]string{"w": "100"}, "a.svg")
	require.NoError(t, err)

	assert.Equal(t, "svg+xml", result.Format)
	assert.Equal(t, []byte(svgDoc), result.Data)
}

func TestTransform_SVGWithExplicitRasterFormat(t *testing.T) {
	_, err := testPipeline(true).Transform(context.Background(), []byte(svgDoc), map[string]string{"f": "png"}, "a.svg")
	require.Error(t, err)
	assert.ErrorIs(t, err, imaging.ErrInvalidImage)
	assert.Contains(t, err.Error(), "rasterize")
}

func TestTransform_QualityFlowsToEncoder(t *testing.T) {
	// A textured source so the jpeg quality setting actually moves the
	// output size.
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 31)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	src := buf.Bytes()
	pipe := testPipeline(true)

	low, err := pipe.Transform(context.Background(), src, map[string]string{"f": "jpeg", "q": "5"}, "a.png")
	require.NoError(t, err)
	high, err := pipe.Transform(context.Background(), src, map[string]string{"f": "jpeg", "q": "95"}, "a.png")
	require.NoError(t, err)

	assert.Less(t, len(low.Data), len(high.Data))
}

func TestTransform_AnimatedGIF(t *testing.T) {
	out := &gif.GIF{}
	for i := 0; i < 2; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 16, 16), nil)
		frame.Palette = []color.Color{color.Black, color.White}
		out.Image = append(out.Image, frame)
		out.Delay = append(out.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, out))

	result, err := testPipeline(true).Transform(context.Background(), buf.Bytes(), map[string]string{"s": "8x8"}, "a.gif")
	require.NoError(t, err)
	assert.Equal(t, "gif", result.Format)

	decoded, err := gif.DecodeAll(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.Len(t, decoded.Image, 2)
	assert.Equal(t, 8, decoded.Image[0].Bounds().Dx())
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name         string
		mods         map[string]string
		meta         imaging.Meta
		wantFormat   string
		wantExplicit bool
	}{
		{"explicit supported", map[string]string{"f": "webp"}, imaging.Meta{Type: "png"}, "webp", true},
		{"format alias", map[string]string{"format": "png"}, imaging.Meta{Type: "jpeg"}, "png", true},
		{"jpg normalized", map[string]string{"f": "jpg"}, imaging.Meta{Type: "png"}, "jpeg", true},
		{"no modifier uses source type", map[string]string{"w": "10"}, imaging.Meta{Type: "gif"}, "gif", false},
		{"unsupported source falls back", map[string]string{"w": "10"}, imaging.Meta{Type: "avif"}, "jpeg", false},
		{"explicit unsupported falls back to source", map[string]string{"f": "heic"}, imaging.Meta{Type: "png"}, "png", true},
		{"explicit unsupported, unsupported source", map[string]string{"f": "heic"}, imaging.Meta{Type: "avif"}, "jpeg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, explicit := resolveFormat(tt.mods, tt.meta)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantExplicit, explicit)
		})
	}
}
