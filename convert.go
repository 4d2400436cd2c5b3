package imgembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when image data cannot be decoded.
var ErrDecode = errors.New("decode image")

const (
	defaultMaxWidth  = 800
	defaultMaxHeight = 600
	defaultQuality   = 80
)

// OptimizeOptions bounds the output of OptimizeDataURI. Zero values fall
// back to 800x600 at quality 80.
type OptimizeOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG quality, 1-100
}

func (o *OptimizeOptions) setDefaults() {
	if o.MaxWidth <= 0 {
		o.MaxWidth = defaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = defaultMaxHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = defaultQuality
	}
}

// Optimized is the result of OptimizeDataURI.
type Optimized struct {
	DataURI string
	Width   int
	Height  int
}

// FileToDataURI reads the file at path and returns it as a data URI. The MIME
// type comes from the extension table, falling back to content sniffing for
// unknown extensions; non-image content is rejected.
func FileToDataURI(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mt, err := MimeType(path)
	if err != nil {
		mt = http.DetectContentType(data)
		if !strings.HasPrefix(mt, "image/") {
			return "", fmt.Errorf("%w: %s looks like %s", ErrUnsupportedType, path, mt)
		}
	}
	return EncodeDataURI(mt, data), nil
}

// FitWithin scales w x h down so that neither side exceeds maxW x maxH,
// preserving aspect ratio. Images that already fit are returned unchanged.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// The binding side lands exactly on its bound; the other side truncates.
	if int64(maxW)*int64(h) <= int64(maxH)*int64(w) {
		return maxW, max(int(int64(h)*int64(maxW)/int64(w)), 1)
	}
	return max(int(int64(w)*int64(maxH)/int64(h)), 1), maxH
}

// OptimizeDataURI decodes the image in uri, downscales it to fit the bounds in
// opts and re-encodes it as a JPEG data URI.
func OptimizeDataURI(ctx context.Context, uri string, opts OptimizeOptions) (Optimized, error) {
	opts.setDefaults()
	mt, data, err := ParseDataURI(uri)
	if err != nil {
		return Optimized{}, err
	}
	if mt == "image/svg+xml" {
		return Optimized{}, fmt.Errorf("%w: vector images cannot be resized", ErrUnsupportedType)
	}
	if err := ctx.Err(); err != nil {
		return Optimized{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Optimized{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return Optimized{}, err
	}

	bounds := img.Bounds()
	w, h := FitWithin(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)

	// JPEG has no alpha channel; flatten onto white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return Optimized{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Optimized{
		DataURI: EncodeDataURI("image/jpeg", buf.Bytes()),
		Width:   w,
		Height:  h,
	}, nil
}
