package service

import (
	"context"
	"fmt"

	"github.com/xform-media/xform/cmd/proxy/modifiers"
	"github.com/xform-media/xform/common/imaging"
	"github.com/xform-media/xform/common/logger"
	"github.com/xform-media/xform/common/svg"
)

// Result is the outcome of one transform. Format is empty for the
// untouched passthrough path.
type Result struct {
	Data   []byte
	Format string
	Meta   imaging.Meta
}

// Pipeline orchestrates one request's transformation: metadata decode,
// format resolution, the vector short-circuit, the ordered handler chain
// and the final encode. Stages run strictly sequentially; every piece of
// mutable state is owned by the single request.
type Pipeline struct {
	optimizeSVG bool
	log         *logger.Logger
}

// NewPipeline creates a transform pipeline
func NewPipeline(optimizeSVG bool, log *logger.Logger) *Pipeline {
	return &Pipeline{
		optimizeSVG: optimizeSVG,
		log:         log,
	}
}

// Transform applies the requested modifiers to the source bytes.
// filename is carried for diagnostics only.
func (p *Pipeline) Transform(ctx context.Context, data []byte, mods map[string]string, filename string) (*Result, error) {
	// Passthrough fast path: nothing requested, nothing decoded.
	if len(mods) == 0 {
		return &Result{Data: data}, nil
	}

	meta, err := imaging.ReadMeta(data)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse image metadata: %s", imaging.ErrInvalidImage, filename)
	}

	for name := range mods {
		if !modifiers.Known(name) {
			p.log.Debug("ignoring unknown modifier", "name", name, "file", filename)
		}
	}

	format, explicit := resolveFormat(mods, meta)

	// Vector short-circuit: an SVG with no explicit output format never
	// goes through the raster codec.
	if meta.Vector() && !explicit {
		if !p.optimizeSVG {
			return &Result{Data: data, Format: "svg+xml", Meta: meta}, nil
		}
		optimized, err := svg.Optimize(string(data), svg.Options{})
		if err != nil {
			return nil, fmt.Errorf("optimizing svg %s: %w", filename, err)
		}
		return &Result{Data: []byte(optimized), Format: "svg+xml", Meta: meta}, nil
	}

	// An explicit raster format on a vector source would need a
	// rasterizer, which the codec does not have.
	if meta.Vector() {
		return nil, fmt.Errorf("%w: cannot rasterize vector source %s to %s", imaging.ErrInvalidImage, filename, format)
	}

	// The animation modifier counts by presence alone, any value.
	_, a := mods["a"]
	_, animatedMod := mods["animated"]
	animated := a || animatedMod || format == "gif"

	sess, err := imaging.Decode(data, imaging.DecodeOptions{Animated: animated})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode image: %s", imaging.ErrInvalidImage, filename)
	}

	if sess.Animated() && format != "gif" {
		p.log.Debug("flattening animated source to static format", "format", format, "file", filename)
	}

	chain := modifiers.Resolve(mods)
	hctx := modifiers.NewContext(meta)
	for _, h := range chain {
		if err := h.Handler.Apply(hctx, sess, h.Arg); err != nil {
			return nil, fmt.Errorf("applying %s: %w", h.Name, err)
		}
	}

	out := data
	if imaging.Supported(format) {
		out, err = imaging.Encode(sess, format, imaging.EncodeOptions{
			Quality:     hctx.Quality,
			Progressive: format == "jpeg",
		})
		if err != nil {
			return nil, err
		}
	}

	return &Result{Data: out, Format: format, Meta: meta}, nil
}

// resolveFormat determines the output format: an explicit supported
// f/format modifier wins (jpg normalizes to jpeg); otherwise the
// source's own type when the codec supports it; otherwise jpeg. An
// explicit but unsupported format deliberately falls through to the
// source type rather than rejecting the request.
func resolveFormat(mods map[string]string, meta imaging.Meta) (format string, explicit bool) {
	requested := mods["f"]
	if requested == "" {
		requested = mods["format"]
	}
	if requested == "jpg" {
		requested = "jpeg"
	}

	switch {
	case requested != "" && imaging.Supported(requested):
		return requested, true
	case imaging.Supported(meta.Type):
		return meta.Type, requested != ""
	default:
		return "jpeg", requested != ""
	}
}
