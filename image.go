package watermark

import (
	"bytes"
	"fmt"
	"io"
)

// WatermarkImageFile stamps the image at inPath and writes it to outPath.
// The output is always an opaque PNG, whatever the input format.
func (e *Engine) WatermarkImageFile(inPath, outPath string) error {
	if err := e.style.Validate(); err != nil {
		return err
	}

	img, err := decodeImageFile(inPath)
	if err != nil {
		return err
	}

	out, err := e.WatermarkImage(img)
	if err != nil {
		return err
	}

	err = writeFileAtomic(outPath, func(w io.Writer) error {
		return EncodePNG(w, out)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	b := out.Bounds()
	e.logger.Info("watermarked image", "input", inPath, "output", outPath,
		"width", b.Dx(), "height", b.Dy())
	return nil
}

// WatermarkImageBytes decodes an encoded image, stamps it and returns the
// result encoded as PNG.
func (e *Engine) WatermarkImageBytes(data []byte) ([]byte, error) {
	img, _, err := DecodeImageBytes(data)
	if err != nil {
		return nil, err
	}

	out, err := e.WatermarkImage(img)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
