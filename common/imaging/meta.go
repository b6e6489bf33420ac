// Package imaging is the raster codec used by the transform pipeline:
// source metadata detection, decode into a frame session, and encode to
// the declared output formats.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strconv"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrInvalidImage indicates the source bytes could not be parsed as any
// known image format.
var ErrInvalidImage = errors.New("invalid image")

// Meta describes a source image without decoding pixel data
type Meta struct {
	Type   string
	Width  int
	Height int
}

// Vector reports whether the source is a vector format
func (m Meta) Vector() bool {
	return m.Type == "svg"
}

var (
	svgTag       = regexp.MustCompile(`(?i)<svg[^>]*>`)
	svgDimension = regexp.MustCompile(`(?i)\s(width|height)\s*=\s*["']?\s*(\d+)`)
)

// ReadMeta detects the type and dimensions of a source image.
// Raster formats go through the registered decoders; SVG and the ISOBMFF
// family (avif/heif/heic) are sniffed from the leading bytes because no
// decoder is registered for them.
func ReadMeta(data []byte) (Meta, error) {
	if meta, ok := sniffSVG(data); ok {
		return meta, nil
	}
	if typ, ok := sniffISOBMFF(data); ok {
		// Dimensions live deep in the ISOBMFF box tree; the pipeline only
		// needs the type for these.
		return Meta{Type: typ}, nil
	}

	cfg, typ, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return Meta{Type: typ, Width: cfg.Width, Height: cfg.Height}, nil
}

// sniffSVG recognizes an SVG document by its leading markup
func sniffSVG(data []byte) (Meta, bool) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf")
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return Meta{}, false
	}

	tag := svgTag.Find(trimmed)
	if tag == nil {
		return Meta{}, false
	}

	meta := Meta{Type: "svg"}
	for _, m := range svgDimension.FindAllSubmatch(tag, -1) {
		v, err := strconv.Atoi(string(m[2]))
		if err != nil {
			continue
		}
		if bytes.EqualFold(m[1], []byte("width")) {
			meta.Width = v
		} else {
			meta.Height = v
		}
	}
	return meta, true
}

// sniffISOBMFF recognizes avif/heif/heic containers by their ftyp brand
func sniffISOBMFF(data []byte) (string, bool) {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return "", false
	}

	switch string(data[8:12]) {
	case "avif", "avis":
		return "avif", true
	case "heic", "heix", "hevc", "hevx":
		return "heic", true
	case "mif1", "msf1":
		return "heif", true
	}
	return "", false
}
