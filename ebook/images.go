package ebook

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"
)

// preparedImage is image data in a form the PDF writer accepts.
type preparedImage struct {
	data      []byte
	imageType string
	width     int
	height    int
}

// prepareImage validates an asset's bytes and converts anything that is not
// JPEG into a plain 8-bit non-interlaced PNG. A bad image must fail here and
// not inside the PDF writer, whose error state is sticky.
func prepareImage(a Asset) (*preparedImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image config for %s: %w", a.Path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image %s has no pixels", a.Path)
	}

	if format == "jpeg" {
		return &preparedImage{data: a.Data, imageType: "JPG", width: cfg.Width, height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image %s: %w", format, a.Path, err)
	}
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to re-encode %s as png: %w", a.Path, err)
	}
	return &preparedImage{data: buf.Bytes(), imageType: "PNG", width: bounds.Dx(), height: bounds.Dy()}, nil
}

// fitBox scales w×h to fit inside maxW×maxH, never enlarging.
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := 1.0
	if maxW > 0 && w*scale > maxW {
		scale = maxW / w
	}
	if maxH > 0 && h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}
