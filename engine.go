package watermark

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Engine renders watermarks with one validated Style.
type Engine struct {
	style    Style
	logger   *slog.Logger
	openPDF  func(path string) (Document, error)
	fontData []byte

	faceOnce sync.Once
	face     FaceResult

	// font.Face implementations keep glyph caches and are not safe for
	// concurrent use.
	drawMu sync.Mutex
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger for progress and font fallback messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFontData uses the given TrueType/OpenType data for images instead of
// looking up Style.FontFile.
func WithFontData(ttf []byte) Option {
	return func(e *Engine) {
		e.fontData = ttf
	}
}

// WithPDFOpener replaces the function used to open PDF inputs.
func WithPDFOpener(open func(path string) (Document, error)) Option {
	return func(e *Engine) {
		if open != nil {
			e.openPDF = open
		}
	}
}

// NewEngine validates style and constructs an Engine. The raster font is
// resolved on first use.
func NewEngine(style Style, opts ...Option) (*Engine, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		style:   style,
		logger:  slog.Default(),
		openPDF: OpenPDF,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Style returns the style the engine renders with.
func (e *Engine) Style() Style {
	return e.style
}

var defaultEngine struct {
	once sync.Once
	eng  *Engine
	err  error
}

func defaultEng() (*Engine, error) {
	defaultEngine.once.Do(func() {
		defaultEngine.eng, defaultEngine.err = NewEngine(DefaultStyle())
	})
	return defaultEngine.eng, defaultEngine.err
}

// WatermarkImage applies the default engine to the provided image.
func WatermarkImage(img image.Image) (*image.RGBA, error) {
	e, err := defaultEng()
	if err != nil {
		return nil, fmt.Errorf("default engine: %w", err)
	}
	return e.WatermarkImage(img)
}

// WatermarkImage draws the axis-aligned wave pattern onto a transparent
// layer, composites it over img and returns the flattened, opaque result.
func (e *Engine) WatermarkImage(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image provided")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}

	grid, err := AxisAlignedWaveTile.Grid(float64(width), float64(height), e.style.Density)
	if err != nil {
		return nil, err
	}

	layer := image.NewRGBA(bounds)
	e.drawAxisAlignedTiles(layer, grid)

	rgba := cloneToRGBA(img)
	draw.Draw(rgba, bounds, layer, bounds.Min, draw.Over)

	return flatten(rgba), nil
}

// drawAxisAlignedTiles draws every character with its top left corner at
// origin + placement. Origins are relative to the layer's bounds.
func (e *Engine) drawAxisAlignedTiles(layer *image.RGBA, grid Grid) {
	face := e.fontFace()
	ink := e.style.imageInk()
	gray := to8(ink.Gray)

	e.drawMu.Lock()
	defer e.drawMu.Unlock()

	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(color.NRGBA{R: gray, G: gray, B: gray, A: to8(ink.Alpha)}),
		Face: face,
	}
	ascent := face.Metrics().Ascent
	off := layer.Bounds().Min

	for o := range grid.All() {
		for p := range e.style.Wave() {
			d.Dot = fixed.Point26_6{
				X: toFixed(float64(off.X) + o.X + p.DX),
				Y: toFixed(float64(off.Y)+o.Y+p.DY) + ascent,
			}
			d.DrawString(string(p.Char))
		}
	}
}

// fontFace resolves the raster font once per engine and reports a fallback.
func (e *Engine) fontFace() font.Face {
	e.faceOnce.Do(func() {
		if e.fontData != nil {
			e.face = FaceFromData(e.fontData, e.style.FontSize)
		} else {
			e.face = LoadFace(e.style.FontFile, e.style.FontSize)
		}
		if e.face.Fallback {
			e.logger.Warn("font unavailable, using built-in font",
				"font", e.style.FontFile, "reason", e.face.Reason)
		} else {
			e.logger.Debug("font loaded", "source", e.face.Source)
		}
	})
	return e.face.Face
}

// cloneToRGBA copies the image into a mutable RGBA buffer.
func cloneToRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}

// flatten drops the alpha channel and keeps the unpremultiplied colour.
func flatten(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.RGBAAt(x, y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return dst
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
