package watermark

import (
	"fmt"
)

// WatermarkPDF overlays the rotated wave pattern on every page of the PDF at
// inPath and writes the result to outPath. Each page gets its own overlay,
// sized to that page.
func (e *Engine) WatermarkPDF(inPath, outPath string) error {
	if err := e.style.Validate(); err != nil {
		return err
	}

	doc, err := e.openPDF(inPath)
	if err != nil {
		return err
	}

	pages := doc.NumPages()
	for pageNr := 1; pageNr <= pages; pageNr++ {
		width, height, err := doc.PageSize(pageNr)
		if err != nil {
			return fmt.Errorf("%w: page %d: %w", ErrSourceUnreadable, pageNr, err)
		}

		ov, err := e.pdfOverlay(width, height)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNr, err)
		}
		if err := doc.Overlay(pageNr, ov); err != nil {
			return fmt.Errorf("page %d: %w", pageNr, err)
		}
	}

	if err := doc.Save(outPath); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}

	e.logger.Info("watermarked pdf", "input", inPath, "output", outPath, "pages", pages)
	return nil
}

func (e *Engine) pdfOverlay(width, height float64) (*Overlay, error) {
	c := NewContentCanvas()
	if err := drawRotatedTiles(c, e.style, width, height); err != nil {
		return nil, err
	}
	return c.Overlay(width, height)
}

// drawRotatedTiles draws the RotatedWaveTile pattern for a width x height
// page. Every tile is moved to its origin and rotated before the characters
// are placed, so the whole wave turns about its first character.
func drawRotatedTiles(c Canvas, s Style, width, height float64) error {
	grid, err := RotatedWaveTile.Grid(width, height, s.Density)
	if err != nil {
		return err
	}

	c.SetFont(s.PDFFont, s.FontSize)
	c.SetFill(PDFInk)
	for o := range grid.All() {
		c.Save()
		c.Translate(o.X, o.Y)
		c.Rotate(s.Angle)
		for p := range s.Wave() {
			c.DrawGlyph(p.DX, p.DY, p.Char)
		}
		c.Restore()
	}
	return nil
}
