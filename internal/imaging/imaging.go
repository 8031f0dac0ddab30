// Package imaging normalizes user photos into size- and quality-bounded JPEGs
// before they are cached or uploaded. Compression is advisory: when an input
// cannot be processed the original bytes are kept.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"net/http"

	_ "image/gif"
	_ "image/png"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1600
	DefaultQuality      = 0.82

	// MaxPixels bounds the decoded size of an input.
	MaxPixels = 64 << 20

	OutputMIMEType = "image/jpeg"
)

var compressFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hard75_image_compress_fallbacks_total",
	Help: "Images kept as original bytes because they could not be re-encoded.",
})

// Blob is an encoded image and its content type.
type Blob struct {
	Data     []byte
	MIMEType string
}

// DecodeError reports an input the pipeline could not decode or re-encode.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode image: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

type Options struct {
	// MaxDimension bounds the longer side in pixels.
	MaxDimension int
	// Quality is the JPEG quality in (0, 1].
	Quality float64
}

func DefaultOptions() Options {
	return Options{MaxDimension: DefaultMaxDimension, Quality: DefaultQuality}
}

type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// New returns a pipeline; zero option fields take their defaults.
func New(opts Options, logger *slog.Logger) *Pipeline {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultMaxDimension
	}
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = DefaultQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Compress re-encodes raw as a bounded JPEG. It never fails: on a
// DecodeError the original bytes are returned with a sniffed content type.
func (p *Pipeline) Compress(raw []byte) Blob {
	blob, err := p.compress(raw)
	if err != nil {
		compressFallbacks.Inc()
		p.logger.Warn("image compression skipped", "error", err, "bytes", len(raw))
		return Blob{Data: raw, MIMEType: sniff(raw)}
	}
	return blob
}

func (p *Pipeline) compress(raw []byte) (Blob, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Blob{}, &DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return Blob{}, &DecodeError{Err: fmt.Errorf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels)}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Blob{}, &DecodeError{Err: err}
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), p.opts.MaxDimension)

	// JPEG has no alpha channel; flatten onto white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	q := int(p.opts.Quality*100 + 0.5)
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return Blob{}, &DecodeError{Err: fmt.Errorf("encode jpeg: %w", err)}
	}
	return Blob{Data: buf.Bytes(), MIMEType: OutputMIMEType}, nil
}

// TargetSize applies the downscale policy: when the longer side exceeds
// limit, scale proportionally so it equals limit; square images larger than
// limit become limit x limit; anything else passes through.
func TargetSize(w, h, limit int) (int, int) {
	switch {
	case w > h && w > limit:
		return limit, roundDiv(limit*h, w)
	case h > w && h > limit:
		return roundDiv(limit*w, h), limit
	case w == h && w > limit:
		return limit, limit
	}
	return w, h
}

func roundDiv(a, b int) int {
	return max(1, (2*a+b)/(2*b))
}

func sniff(raw []byte) string {
	if len(raw) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(raw)
}
