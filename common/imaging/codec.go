package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// supportedFormats is the set of output formats the encoder can produce.
// Negotiation candidates outside this set (avif, heif, heic) fall through
// the pipeline's format resolution instead of failing the request.
var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
	"tiff": true,
	"bmp":  true,
}

// Supported reports whether the codec can encode the given format
func Supported(format string) bool {
	return supportedFormats[format]
}

// DecodeOptions control session initialization
type DecodeOptions struct {
	// Animated requests frame-by-frame decoding for animated sources
	Animated bool
}

// EncodeOptions control the final encode step
type EncodeOptions struct {
	// Quality applies to lossy formats, 1-100. Zero means encoder default.
	Quality int

	// Progressive requests progressive scan output for JPEG. The Go
	// encoder emits baseline JPEG, so this is accepted and recorded but
	// has no effect on the output bytes.
	Progressive bool
}

// Session is one decoded image flowing through the handler chain. A
// static source holds a single frame; an animated GIF holds every frame
// coalesced onto the logical canvas. Sessions are owned by a single
// request and are not safe for concurrent use.
type Session struct {
	frames    []image.Image
	delays    []int
	loopCount int
	animated  bool
}

// Decode initializes a codec session from source bytes
func Decode(data []byte, opts DecodeOptions) (*Session, error) {
	if opts.Animated {
		if sess, ok := decodeAnimatedGIF(data); ok {
			return sess, nil
		}
		// Animation was requested but the source has a single frame (or
		// is not a GIF); fall back to static decoding.
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return &Session{frames: []image.Image{img}}, nil
}

// decodeAnimatedGIF decodes all frames of a multi-frame GIF, coalescing
// partial frames onto the full canvas so later per-frame operations see
// complete images.
func decodeAnimatedGIF(data []byte) (*Session, bool) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil || len(g.Image) < 2 {
		return nil, false
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	canvas := image.NewNRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))
	for i, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		snapshot := image.NewNRGBA(bounds)
		copy(snapshot.Pix, canvas.Pix)
		frames = append(frames, snapshot)

		if i < len(g.Disposal) && g.Disposal[i] == gif.DisposalBackground {
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		}
	}

	return &Session{
		frames:    frames,
		delays:    g.Delay,
		loopCount: g.LoopCount,
		animated:  true,
	}, true
}

// Animated reports whether the session carries more than one frame
func (s *Session) Animated() bool {
	return s.animated
}

// Frame returns the first frame
func (s *Session) Frame() image.Image {
	return s.frames[0]
}

// Apply maps an operation over every frame in order
func (s *Session) Apply(op func(image.Image) image.Image) {
	for i, frame := range s.frames {
		s.frames[i] = op(frame)
	}
}

// Encode produces the final bytes in the requested format
func Encode(s *Session, format string, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case "jpeg":
		quality := opts.Quality
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(&buf, flatten(s.Frame()), &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(&buf, s.Frame())
	case "gif":
		err = encodeGIF(&buf, s)
	case "webp":
		err = nativewebp.Encode(&buf, s.Frame(), nil)
	case "tiff":
		err = tiff.Encode(&buf, s.Frame(), &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		err = bmp.Encode(&buf, s.Frame())
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// encodeGIF re-quantizes the session's frames and writes them with the
// source animation's delays and loop count.
func encodeGIF(buf *bytes.Buffer, s *Session) error {
	if !s.animated {
		return gif.Encode(buf, s.Frame(), &gif.Options{NumColors: 256})
	}

	out := &gif.GIF{LoopCount: s.loopCount}
	for i, frame := range s.frames {
		paletted := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, frame.Bounds(), frame, frame.Bounds().Min)

		out.Image = append(out.Image, paletted)
		delay := 0
		if i < len(s.delays) {
			delay = s.delays[i]
		}
		out.Delay = append(out.Delay, delay)
	}

	return gif.EncodeAll(buf, out)
}

// flatten converts a frame to an opaque NRGBA image over white, needed
// for encoders without an alpha channel.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	flat := image.NewNRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}
