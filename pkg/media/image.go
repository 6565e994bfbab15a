// Package media post-processes generated portraits before they are sent.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

type Processor struct {
	maxDimension int
	quality      int
}

func NewProcessor(maxDimension int) *Processor {
	return &Processor{maxDimension: maxDimension, quality: 90}
}

// Fit downscales data so neither side exceeds the configured maximum,
// keeping the aspect ratio. Images already small enough pass through.
func (p *Processor) Fit(data []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	out := &Image{Data: data, MIMEType: mimeFor(format), Width: bounds.Dx(), Height: bounds.Dy()}
	if p.maxDimension <= 0 || (out.Width <= p.maxDimension && out.Height <= p.maxDimension) {
		return out, nil
	}

	resized := imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	encoded, mime, err := p.encode(resized, format)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	out.Data = encoded
	out.MIMEType = mime
	out.Width = resized.Bounds().Dx()
	out.Height = resized.Bounds().Dy()
	return out, nil
}

func (p *Processor) encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		err := encoder.Encode(&buf, img)
		return buf.Bytes(), "image/png", err

	default:
		err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality})
		return buf.Bytes(), "image/jpeg", err
	}
}

func mimeFor(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg", "jpg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Extension maps a MIME type to a file extension for attachments.
func Extension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
