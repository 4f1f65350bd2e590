package watermark

import (
	"math"
)

// Style holds the rendering parameters of a watermark. A Style is a plain
// value; renderers never modify it.
type Style struct {
	// Text is repeated along every wave.
	Text string `yaml:"text"`

	// Amplitude is the vertical deflection of the wave. Zero draws a
	// straight line.
	Amplitude float64 `yaml:"amplitude"`

	// Frequency of the wave, in radians per unit of horizontal offset.
	Frequency float64 `yaml:"frequency"`

	// LetterSpacing is the horizontal advance between characters.
	LetterSpacing float64 `yaml:"letter-spacing"`

	// FontSize in points (PDF) or pixels (images).
	FontSize float64 `yaml:"font-size"`

	// Angle rotates every PDF tile about its origin, in degrees.
	// Images ignore it, see AxisAlignedWaveTile.
	Angle float64 `yaml:"angle"`

	// Density is the distance between neighbouring tiles on both axes.
	Density float64 `yaml:"density"`

	// Opacity of image glyphs, 0 (invisible) to 1 (opaque).
	Opacity float64 `yaml:"opacity"`

	// PDFFont is one of the 12 Latin standard PDF fonts.
	PDFFont string `yaml:"pdf-font"`

	// FontFile names the TrueType or OpenType font used for images. Bare
	// file names are looked up in the system font directories.
	FontFile string `yaml:"font-file"`
}

// Ink is a grey fill colour with alpha, both on a 0..1 scale.
type Ink struct {
	Gray  float64
	Alpha float64
}

// PDFInk is the fill used for PDF overlays.
var PDFInk = Ink{Gray: 0.6, Alpha: 0.3}

// imageGray is the grey level of image glyphs.
const imageGray = 150

// DefaultStyle returns the stock "Confidential-" watermark.
func DefaultStyle() Style {
	return Style{
		Text:          "Confidential-",
		Amplitude:     10,
		Frequency:     0.23,
		LetterSpacing: 25,
		FontSize:      35,
		Angle:         30,
		Density:       250,
		Opacity:       100.0 / 255.0,
		PDFFont:       "Times-Roman",
		FontFile:      "arial.ttf",
	}
}

// Validate reports the first parameter that cannot be rendered. The returned
// error matches ErrInvalidStyle.
func (s Style) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"amplitude", s.Amplitude},
		{"frequency", s.Frequency},
		{"letter-spacing", s.LetterSpacing},
		{"font-size", s.FontSize},
		{"angle", s.Angle},
		{"density", s.Density},
		{"opacity", s.Opacity},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &StyleError{Field: f.name, Message: "must be a finite number"}
		}
	}

	switch {
	case s.Density <= 0:
		return &StyleError{Field: "density", Message: "must be positive"}
	case s.FontSize <= 0:
		return &StyleError{Field: "font-size", Message: "must be positive"}
	case s.LetterSpacing < 0:
		return &StyleError{Field: "letter-spacing", Message: "must not be negative"}
	case s.Opacity < 0 || s.Opacity > 1:
		return &StyleError{Field: "opacity", Message: "must be between 0 and 1"}
	}

	if _, ok := standardFonts[s.PDFFont]; !ok {
		return &StyleError{Field: "pdf-font", Message: "must name a Latin standard PDF font"}
	}
	return nil
}

// imageInk is the fill used for raster glyphs.
func (s Style) imageInk() Ink {
	return Ink{Gray: imageGray / 255.0, Alpha: s.Opacity}
}

// to8 converts a 0..1 channel value to 0..255.
func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

var standardFonts = map[string]struct{}{
	"Courier":               {},
	"Courier-Bold":          {},
	"Courier-BoldOblique":   {},
	"Courier-Oblique":       {},
	"Helvetica":             {},
	"Helvetica-Bold":        {},
	"Helvetica-BoldOblique": {},
	"Helvetica-Oblique":     {},
	"Times-Roman":           {},
	"Times-Bold":            {},
	"Times-BoldItalic":      {},
	"Times-Italic":          {},
}
