package watermark

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/charmap"
)

// Resource names used by overlay content streams.
const (
	fontResource  = "F1"
	stateResource = "GS1"
)

// Canvas receives the vector drawing operations of one overlay.
type Canvas interface {
	SetFont(name string, size float64)
	SetFill(ink Ink)

	// Save and Restore bracket a change of the coordinate system.
	Save()
	Translate(x, y float64)
	Rotate(degrees float64)
	Restore()

	// DrawGlyph draws ch with its origin at (x, y).
	DrawGlyph(x, y float64, ch rune)
}

// ContentCanvas writes drawing operations as a PDF content stream.
// Glyphs are encoded with WinAnsiEncoding. The first error is kept in Err;
// once set, all further calls are ignored.
type ContentCanvas struct {
	Err error

	buf   bytes.Buffer
	font  string
	alpha float64
	depth int
}

// NewContentCanvas returns an empty canvas.
func NewContentCanvas() *ContentCanvas {
	return &ContentCanvas{alpha: 1}
}

// SetFont selects a standard font for subsequent glyphs.
func (c *ContentCanvas) SetFont(name string, size float64) {
	if c.Err != nil {
		return
	}
	c.font = name
	fmt.Fprintf(&c.buf, "/%s %s Tf\n", fontResource, num(size))
}

// SetFill sets the fill colour and the constant fill alpha.
func (c *ContentCanvas) SetFill(ink Ink) {
	if c.Err != nil {
		return
	}
	c.alpha = ink.Alpha
	fmt.Fprintf(&c.buf, "/%s gs\n%s g\n", stateResource, num(ink.Gray))
}

func (c *ContentCanvas) Save() {
	if c.Err != nil {
		return
	}
	c.depth++
	c.buf.WriteString("q\n")
}

func (c *ContentCanvas) Translate(x, y float64) {
	if c.Err != nil {
		return
	}
	fmt.Fprintf(&c.buf, "1 0 0 1 %s %s cm\n", num(x), num(y))
}

// Rotate turns the coordinate system counter-clockwise.
func (c *ContentCanvas) Rotate(degrees float64) {
	if c.Err != nil {
		return
	}
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	fmt.Fprintf(&c.buf, "%s %s %s %s 0 0 cm\n", num(cos), num(sin), num(-sin), num(cos))
}

func (c *ContentCanvas) Restore() {
	if c.Err != nil {
		return
	}
	if c.depth == 0 {
		c.Err = fmt.Errorf("restore without matching save")
		return
	}
	c.depth--
	c.buf.WriteString("Q\n")
}

func (c *ContentCanvas) DrawGlyph(x, y float64, ch rune) {
	if c.Err != nil {
		return
	}
	if c.font == "" {
		c.Err = fmt.Errorf("glyph %q drawn before a font was set", ch)
		return
	}
	b, ok := charmap.Windows1252.EncodeRune(ch)
	if !ok {
		c.Err = fmt.Errorf("character %q has no WinAnsiEncoding code", ch)
		return
	}
	fmt.Fprintf(&c.buf, "BT 1 0 0 1 %s %s Tm (%s) Tj ET\n", num(x), num(y), escapeByte(b))
}

// Bytes returns the content stream. It fails if an operation failed or a
// saved state was not restored.
func (c *ContentCanvas) Bytes() ([]byte, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if c.depth != 0 {
		return nil, fmt.Errorf("%d graphics states not restored", c.depth)
	}
	return c.buf.Bytes(), nil
}

// num formats a coordinate with at most four decimals.
func num(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeByte renders one byte as the body of a PDF literal string.
func escapeByte(b byte) string {
	switch {
	case b == '(' || b == ')' || b == '\\':
		return `\` + string(rune(b))
	case b < 0x20 || b >= 0x7f:
		return fmt.Sprintf(`\%03o`, b)
	default:
		return string(rune(b))
	}
}

// Overlay packages the content stream as a standalone width x height page.
func (c *ContentCanvas) Overlay(width, height float64) (*Overlay, error) {
	content, err := c.Bytes()
	if err != nil {
		return nil, err
	}
	return &Overlay{
		Width:   width,
		Height:  height,
		Content: content,
		Font:    c.font,
		Alpha:   c.alpha,
	}, nil
}
