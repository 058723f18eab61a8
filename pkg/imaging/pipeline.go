package imaging

import (
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"unicode/utf8"

	// Decoders for image.Decode
	_ "image/gif"
	_ "image/png"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const (
	MediumWidth     = 800
	MediumHeight    = 550
	ThumbnailWidth  = 200
	ThumbnailHeight = 200

	MediumQuality    = 90
	ThumbnailQuality = 85
)

var (
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrEmptySVG               = errors.New("empty svg content")
	ErrEncodeFailed           = errors.New("failed to encode image")
)

type Kind int

const (
	KindRaster Kind = iota
	KindSVG
)

// Variants holds every encoded variant of one upload. SVG uploads only carry Original.
type Variants struct {
	Kind      Kind
	Format    string
	Original  []byte
	Medium    []byte
	Thumbnail []byte
	Width     int
	Height    int
}

// Process decodes raw as a raster image and derives the original, medium and thumbnail variants.
// Input that is not a raster image must be an svg document and is returned verbatim.
func Process(raw []byte) (*Variants, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if svgErr := ValidateSVG(raw); svgErr != nil {
			return nil, svgErr
		}
		return &Variants{Kind: KindSVG, Format: "svg", Original: raw}, nil
	}
	return processRaster(img, format)
}

func processRaster(img image.Image, format string) (*Variants, error) {
	bounds := img.Bounds()
	out := &Variants{
		Kind:   KindRaster,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	var original bytes.Buffer
	if err := nativewebp.Encode(&original, img, nil); err != nil {
		return nil, errors.Wrapf(ErrEncodeFailed, "webp: %s", err)
	}
	out.Original = original.Bytes()

	medium := img
	if out.Width > MediumWidth || out.Height > MediumHeight {
		medium = Fit(img, MediumWidth, MediumHeight)
	}
	var err error
	if out.Medium, err = encodeJPEG(medium, MediumQuality); err != nil {
		return nil, err
	}
	if out.Thumbnail, err = encodeJPEG(Fit(img, ThumbnailWidth, ThumbnailHeight), ThumbnailQuality); err != nil {
		return nil, err
	}
	return out, nil
}

// Fit scales img to the largest size fitting inside the box while keeping the aspect ratio.
func Fit(img image.Image, boxWidth, boxHeight int) image.Image {
	bounds := img.Bounds()
	width, height := FitDimensions(bounds.Dx(), bounds.Dy(), boxWidth, boxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// FitDimensions returns the size of a width x height image scaled to fit the box, never below 1x1.
func FitDimensions(width, height, boxWidth, boxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	ratio := min(float64(boxWidth)/float64(width), float64(boxHeight)/float64(height))
	return max(int(float64(width)*ratio+0.5), 1), max(int(float64(height)*ratio+0.5), 1)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrapf(ErrEncodeFailed, "jpeg: %s", err)
	}
	return buf.Bytes(), nil
}

// flatten draws img over a white background since jpeg has no alpha channel.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	return dst
}

// ValidateSVG accepts raw when the first xml token of substance is an element start.
func ValidateSVG(raw []byte) error {
	if !utf8.Valid(raw) {
		return errors.Wrap(ErrUnsupportedImageFormat, "not an image and not utf-8 text")
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ErrEmptySVG
		} else if err != nil {
			return errors.Wrapf(ErrUnsupportedImageFormat, "failed to read svg: %s", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.Wrap(ErrUnsupportedImageFormat, "failed to read svg: text before the first element")
			}
		}
	}
}
