package watermark

import (
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Overlay is a standalone single-page drawing in the page's displayed
// orientation. Its lower left corner lands on the lower left corner of the
// visible page.
type Overlay struct {
	Width, Height float64

	// Content is a PDF content stream referring to the font as /F1 and to
	// the transparency state as /GS1.
	Content []byte

	// Font is the standard font bound to /F1.
	Font string

	// Alpha is the constant fill and stroke alpha of /GS1.
	Alpha float64
}

// Document is an open PDF file that receives overlays.
// Pages are numbered from 1.
type Document interface {
	NumPages() int

	// PageSize is the size of the visible page as displayed, that is the
	// CropBox (or MediaBox) with width and height swapped for pages
	// rotated by 90 or 270 degrees.
	PageSize(pageNr int) (width, height float64, err error)
	Overlay(pageNr int, ov *Overlay) error
	Save(path string) error
}

var disableConfigDir sync.Once

// OpenPDF reads the PDF file at path.
func OpenPDF(path string) (Document, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, path, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, path, err)
	}
	return &pdfDocument{ctx: ctx}, nil
}

type pdfDocument struct {
	ctx *model.Context
}

func (d *pdfDocument) NumPages() int {
	return d.ctx.PageCount
}

func (d *pdfDocument) PageSize(pageNr int) (float64, float64, error) {
	_, _, inh, err := d.ctx.PageDict(pageNr, false)
	if err != nil {
		return 0, 0, err
	}
	frame, err := visibleFrame(pageNr, inh)
	if err != nil {
		return 0, 0, err
	}
	w, h := frame.size()
	return w, h, nil
}

// Overlay draws ov as a form XObject after the page's own content. The
// original content is wrapped in q/Q so its graphics state cannot leak into
// the overlay. The form is turned against the page rotation so it reads
// upright in viewers.
func (d *pdfDocument) Overlay(pageNr int, ov *Overlay) error {
	pageDict, _, inh, err := d.ctx.PageDict(pageNr, true)
	if err != nil {
		return err
	}
	frame, err := visibleFrame(pageNr, inh)
	if err != nil {
		return err
	}

	form, err := d.formXObject(ov)
	if err != nil {
		return fmt.Errorf("overlay form: %w", err)
	}

	res, err := d.pageResources(pageDict, inh)
	if err != nil {
		return err
	}
	xobjects, err := d.subDict(res, "XObject")
	if err != nil {
		return err
	}
	name := freeName(xobjects, "Wm")
	xobjects.Insert(name, *form)

	open, err := d.stream([]byte("q\n"))
	if err != nil {
		return err
	}
	closeAndDraw, err := d.stream([]byte("Q\n" + frame.drawForm(name)))
	if err != nil {
		return err
	}

	contents := types.Array{*open}
	if obj, found := pageDict.Find("Contents"); found {
		existing, err := d.contentRefs(obj)
		if err != nil {
			return err
		}
		contents = append(contents, existing...)
	}
	contents = append(contents, *closeAndDraw)
	pageDict.Update("Contents", contents)
	return nil
}

// Save writes the document to path, replacing any existing file.
func (d *pdfDocument) Save(path string) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return api.WriteContext(d.ctx, w)
	})
}

// pageFrame is the visible area of a page and its clockwise display rotation.
type pageFrame struct {
	LLX, LLY      float64
	Width, Height float64
	Rotate        int
}

// visibleFrame uses the CropBox, falling back to the MediaBox.
func visibleFrame(pageNr int, inh *model.InheritedPageAttrs) (pageFrame, error) {
	if inh == nil || inh.MediaBox == nil {
		return pageFrame{}, fmt.Errorf("page %d has no MediaBox", pageNr)
	}
	box := inh.MediaBox
	if inh.CropBox != nil && inh.CropBox.Width() > 0 && inh.CropBox.Height() > 0 {
		box = inh.CropBox
	}
	return pageFrame{
		LLX:    box.LL.X,
		LLY:    box.LL.Y,
		Width:  box.Width(),
		Height: box.Height(),
		Rotate: normalizeRotation(inh.Rotate),
	}, nil
}

// normalizeRotation maps a /Rotate value onto 0, 90, 180 or 270. Values
// that are not multiples of 90 are invalid and treated as 0.
func normalizeRotation(deg int) int {
	if deg%90 != 0 {
		return 0
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// size returns the displayed width and height.
func (f pageFrame) size() (float64, float64) {
	if f.Rotate == 90 || f.Rotate == 270 {
		return f.Height, f.Width
	}
	return f.Width, f.Height
}

// matrix maps displayed coordinates, with the origin at the visible lower
// left corner, into page space.
func (f pageFrame) matrix() [6]float64 {
	w, h := f.Width, f.Height
	var m [6]float64
	switch f.Rotate {
	case 90:
		m = [6]float64{0, 1, -1, 0, w, 0}
	case 180:
		m = [6]float64{-1, 0, 0, -1, w, h}
	case 270:
		m = [6]float64{0, -1, 1, 0, 0, h}
	default:
		m = [6]float64{1, 0, 0, 1, 0, 0}
	}
	m[4] += f.LLX
	m[5] += f.LLY
	return m
}

// drawForm paints the named form XObject over the visible page.
func (f pageFrame) drawForm(name string) string {
	m := f.matrix()
	return fmt.Sprintf("q %s %s %s %s %s %s cm /%s Do Q\n",
		num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]), name)
}

func (d *pdfDocument) formXObject(ov *Overlay) (*types.IndirectRef, error) {
	font := types.NewDict()
	font.InsertName("Type", "Font")
	font.InsertName("Subtype", "Type1")
	font.InsertName("BaseFont", ov.Font)
	font.InsertName("Encoding", "WinAnsiEncoding")

	gs := types.NewDict()
	gs.InsertName("Type", "ExtGState")
	gs.InsertFloat("ca", float32(ov.Alpha))
	gs.InsertFloat("CA", float32(ov.Alpha))

	res := types.NewDict()
	res.Insert("Font", types.Dict{fontResource: font})
	res.Insert("ExtGState", types.Dict{stateResource: gs})

	sd, err := d.ctx.NewStreamDictForBuf(ov.Content)
	if err != nil {
		return nil, err
	}
	sd.InsertName("Type", "XObject")
	sd.InsertName("Subtype", "Form")
	sd.Insert("BBox", types.NewNumberArray(0, 0, ov.Width, ov.Height))
	sd.Insert("Resources", res)
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

func (d *pdfDocument) stream(content []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// pageResources returns the resource dictionary of the page, giving the
// page its own copy of the inherited resources if it has none.
func (d *pdfDocument) pageResources(pageDict types.Dict, inh *model.InheritedPageAttrs) (types.Dict, error) {
	if obj, found := pageDict.Find("Resources"); found {
		res, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("page resources: %w", err)
		}
		if res != nil {
			return res, nil
		}
	}

	res := types.NewDict()
	if inh != nil && inh.Resources != nil {
		if clone, ok := inh.Resources.Clone().(types.Dict); ok {
			res = clone
		}
	}
	pageDict.Update("Resources", res)
	return res, nil
}

func (d *pdfDocument) subDict(parent types.Dict, key string) (types.Dict, error) {
	if obj, found := parent.Find(key); found {
		sub, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if sub != nil {
			return sub, nil
		}
	}
	sub := types.NewDict()
	parent.Update(key, sub)
	return sub, nil
}

// contentRefs flattens a page's Contents entry into a list of stream references.
func (d *pdfDocument) contentRefs(obj types.Object) (types.Array, error) {
	switch o := obj.(type) {
	case types.Array:
		return o, nil
	case types.IndirectRef:
		target, err := d.ctx.Dereference(o)
		if err != nil {
			return nil, fmt.Errorf("page contents: %w", err)
		}
		if arr, ok := target.(types.Array); ok {
			return arr, nil
		}
		return types.Array{o}, nil
	default:
		return nil, fmt.Errorf("page contents: unexpected %T", obj)
	}
}

func freeName(dict types.Dict, prefix string) string {
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if _, found := dict.Find(name); !found {
			return name
		}
	}
}
