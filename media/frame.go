// Package media bridges image container formats and the raw RGBA pixel
// buffers the stego carrier operates on. PNG and BMP are supported:
// both are lossless, which the low-bit embedding requires to survive a
// save/load cycle.
package media

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
)

// Frame is a decoded carrier image: row-major RGBA, 4 bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// FromImage converts any image into a Frame, normalizing the color
// model to 8-bit RGBA via a full redraw.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Frame{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
	}
}

// ToImage wraps the frame's pixels in an *image.RGBA without copying.
// It fails if the buffer length does not match the declared dimensions.
func (f *Frame) ToImage() (*image.RGBA, error) {
	if len(f.Pix) != f.Width*f.Height*4 {
		return nil, fmt.Errorf("media: %d pixel bytes for %d×%d frame, want %d",
			len(f.Pix), f.Width, f.Height, f.Width*f.Height*4)
	}
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}, nil
}

// Decode reads a PNG or BMP image, sniffing the format from its header.
func Decode(r io.Reader) (*Frame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("media: decode image: %w", err)
	}
	switch format {
	case "png", "bmp":
	default:
		return nil, fmt.Errorf("media: unsupported format %q (lossy formats destroy embedded bits)", format)
	}
	return FromImage(img), nil
}

// DecodePNG reads a PNG image into a Frame.
func DecodePNG(r io.Reader) (*Frame, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("media: decode png: %w", err)
	}
	return FromImage(img), nil
}

// DecodeBMP reads a BMP image into a Frame.
func DecodeBMP(r io.Reader) (*Frame, error) {
	img, err := bmp.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("media: decode bmp: %w", err)
	}
	return FromImage(img), nil
}

// EncodePNG writes the frame as PNG.
func (f *Frame) EncodePNG(w io.Writer) error {
	img, err := f.ToImage()
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("media: encode png: %w", err)
	}
	return nil
}

// EncodeBMP writes the frame as BMP. BMP stores no alpha channel, so
// transparency is lost; the blue channel, which carries the embedded
// payload, survives intact.
func (f *Frame) EncodeBMP(w io.Writer) error {
	img, err := f.ToImage()
	if err != nil {
		return err
	}
	if err := bmp.Encode(w, img); err != nil {
		return fmt.Errorf("media: encode bmp: %w", err)
	}
	return nil
}
