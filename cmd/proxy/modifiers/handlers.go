package modifiers

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	dimg "github.com/disintegration/imaging"

	"github.com/xform-media/xform/common/imaging"
)

// registry is the fixed handler catalog. f/format and a/animated are
// registered as no-ops: they are consumed during format resolution but
// must not be treated as unknown modifiers.
var registry = map[string]Handler{
	"w":     {Apply: applyWidth},
	"width": {Apply: applyWidth},

	"h":      {Apply: applyHeight},
	"height": {Apply: applyHeight},

	"s":      {Apply: applyResize},
	"resize": {Apply: applyResize},

	"crop": {Apply: applyCrop},

	"q":       {Apply: applyQuality},
	"quality": {Apply: applyQuality},

	// Staged modifiers: these only write into the shared context. Their
	// names sort ahead of the handlers that read them.
	"fit":        {Apply: applyFit},
	"enlarge":    {Apply: applyEnlarge},
	"b":          {Apply: applyBackground},
	"background": {Apply: applyBackground},

	"rotate": {Apply: applyRotate},
	"flip":   {Apply: applyFlip},
	"flop":   {Apply: applyFlop},

	"blur":    {Apply: applyBlur},
	"sharpen": {Apply: applySharpen},

	"grayscale": {Apply: applyGrayscale},
	"greyscale": {Apply: applyGrayscale},
	"negate":    {Apply: applyNegate},

	"brightness": {Apply: applyBrightness},
	"contrast":   {Apply: applyContrast},
	"saturation": {Apply: applySaturation},
	"gamma":      {Apply: applyGamma},
	"hue":        {Apply: applyHue},
	"median":     {Apply: applyMedian},

	"f":        {Apply: applyNoop},
	"format":   {Apply: applyNoop},
	"a":        {Apply: applyNoop},
	"animated": {Apply: applyNoop},
}

func applyNoop(*Context, *imaging.Session, string) error { return nil }

func applyWidth(ctx *Context, sess *imaging.Session, arg string) error {
	width, err := parseInt(arg, "width")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image {
		if !ctx.Enlarge && width >= img.Bounds().Dx() {
			return img
		}
		return dimg.Resize(img, width, 0, dimg.Lanczos)
	})
	return nil
}

func applyHeight(ctx *Context, sess *imaging.Session, arg string) error {
	height, err := parseInt(arg, "height")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image {
		if !ctx.Enlarge && height >= img.Bounds().Dy() {
			return img
		}
		return dimg.Resize(img, 0, height, dimg.Lanczos)
	})
	return nil
}

func applyResize(ctx *Context, sess *imaging.Session, arg string) error {
	width, height, err := parseDimensions(arg)
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image {
		bounds := img.Bounds()
		if !ctx.Enlarge && width >= bounds.Dx() && height >= bounds.Dy() {
			return img
		}
		switch ctx.Fit {
		case "contain":
			return dimg.Fit(img, width, height, dimg.Lanczos)
		case "fill":
			return dimg.Resize(img, width, height, dimg.Lanczos)
		default: // cover
			return dimg.Fill(img, width, height, dimg.Center, dimg.Lanczos)
		}
	})
	return nil
}

func applyCrop(ctx *Context, sess *imaging.Session, arg string) error {
	parts := strings.Split(arg, ",")
	if len(parts) != 4 {
		return fmt.Errorf("invalid crop %q: want x,y,width,height", arg)
	}
	values := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid crop %q: %w", arg, err)
		}
		values[i] = v
	}

	rect := image.Rect(values[0], values[1], values[0]+values[2], values[1]+values[3])
	sess.Apply(func(img image.Image) image.Image {
		return dimg.Crop(img, rect.Intersect(img.Bounds()))
	})
	return nil
}

func applyQuality(ctx *Context, sess *imaging.Session, arg string) error {
	quality, err := parseInt(arg, "quality")
	if err != nil {
		return err
	}
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	// Staged for the final encode step; no pixel work here.
	ctx.Quality = quality
	return nil
}

func applyFit(ctx *Context, sess *imaging.Session, arg string) error {
	switch arg {
	case "cover", "contain", "fill":
		ctx.Fit = arg
	default:
		return fmt.Errorf("invalid fit %q: want cover, contain or fill", arg)
	}
	return nil
}

func applyEnlarge(ctx *Context, sess *imaging.Session, arg string) error {
	ctx.Enlarge = true
	return nil
}

func applyBackground(ctx *Context, sess *imaging.Session, arg string) error {
	c, err := parseHexColor(arg)
	if err != nil {
		return err
	}
	ctx.Background = c
	return nil
}

func applyRotate(ctx *Context, sess *imaging.Session, arg string) error {
	angle, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return fmt.Errorf("invalid rotate %q: %w", arg, err)
	}
	background := ctx.Background
	if background == nil {
		background = color.Transparent
	}
	sess.Apply(func(img image.Image) image.Image {
		return dimg.Rotate(img, angle, background)
	})
	return nil
}

func applyFlip(ctx *Context, sess *imaging.Session, arg string) error {
	sess.Apply(func(img image.Image) image.Image { return dimg.FlipV(img) })
	return nil
}

func applyFlop(ctx *Context, sess *imaging.Session, arg string) error {
	sess.Apply(func(img image.Image) image.Image { return dimg.FlipH(img) })
	return nil
}

func applyBlur(ctx *Context, sess *imaging.Session, arg string) error {
	sigma, err := parseFloat(arg, "blur")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image { return dimg.Blur(img, sigma) })
	return nil
}

func applySharpen(ctx *Context, sess *imaging.Session, arg string) error {
	sigma := 1.0
	if arg != "" && arg != "true" {
		var err error
		if sigma, err = parseFloat(arg, "sharpen"); err != nil {
			return err
		}
	}
	sess.Apply(func(img image.Image) image.Image { return dimg.Sharpen(img, sigma) })
	return nil
}

func applyGrayscale(ctx *Context, sess *imaging.Session, arg string) error {
	sess.Apply(func(img image.Image) image.Image { return dimg.Grayscale(img) })
	return nil
}

func applyNegate(ctx *Context, sess *imaging.Session, arg string) error {
	sess.Apply(func(img image.Image) image.Image { return dimg.Invert(img) })
	return nil
}

func applyBrightness(ctx *Context, sess *imaging.Session, arg string) error {
	pct, err := parseFloat(arg, "brightness")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image { return dimg.AdjustBrightness(img, pct) })
	return nil
}

func applyContrast(ctx *Context, sess *imaging.Session, arg string) error {
	pct, err := parseFloat(arg, "contrast")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image { return dimg.AdjustContrast(img, pct) })
	return nil
}

func applySaturation(ctx *Context, sess *imaging.Session, arg string) error {
	pct, err := parseFloat(arg, "saturation")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image { return dimg.AdjustSaturation(img, pct) })
	return nil
}

func applyGamma(ctx *Context, sess *imaging.Session, arg string) error {
	gamma, err := parseFloat(arg, "gamma")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image { return dimg.AdjustGamma(img, gamma) })
	return nil
}

func applyHue(ctx *Context, sess *imaging.Session, arg string) error {
	degrees, err := parseInt(arg, "hue")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image { return adjust.Hue(img, degrees) })
	return nil
}

func applyMedian(ctx *Context, sess *imaging.Session, arg string) error {
	radius, err := parseFloat(arg, "median")
	if err != nil {
		return err
	}
	sess.Apply(func(img image.Image) image.Image { return effect.Median(img, radius) })
	return nil
}

func parseInt(arg, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, arg, err)
	}
	return v, nil
}

func parseFloat(arg, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, arg, err)
	}
	return v, nil
}

// parseDimensions parses a WxH argument
func parseDimensions(arg string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(arg), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: want WxH", arg)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", arg, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", arg, err)
	}
	return width, height, nil
}

// parseHexColor parses rgb/rrggbb hex strings with an optional leading #
func parseHexColor(arg string) (color.Color, error) {
	s := strings.TrimPrefix(strings.TrimSpace(arg), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid color %q", arg)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", arg, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
