package watermark

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the kind of input a file holds.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatImage
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

// DetectFormat classifies path by its extension, ignoring case.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".png", ".jpg", ".jpeg":
		return FormatImage, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// WatermarkFile watermarks inPath into outPath, choosing the PDF or image
// renderer by the input's extension. Unsupported inputs are rejected before
// any file is touched.
func (e *Engine) WatermarkFile(inPath, outPath string) error {
	format, err := DetectFormat(inPath)
	if err != nil {
		return err
	}

	switch format {
	case FormatPDF:
		return e.WatermarkPDF(inPath, outPath)
	default:
		return e.WatermarkImageFile(inPath, outPath)
	}
}

// WatermarkFile validates style and watermarks inPath into outPath.
func WatermarkFile(inPath, outPath string, style Style, opts ...Option) error {
	e, err := NewEngine(style, opts...)
	if err != nil {
		return err
	}
	return e.WatermarkFile(inPath, outPath)
}
