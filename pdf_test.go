package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// recordingCanvas logs every call as a short string.
type recordingCanvas struct {
	ops []string
}

func (r *recordingCanvas) SetFont(name string, size float64) {
	r.ops = append(r.ops, fmt.Sprintf("font %s %g", name, size))
}
func (r *recordingCanvas) SetFill(ink Ink) {
	r.ops = append(r.ops, fmt.Sprintf("fill %g %g", ink.Gray, ink.Alpha))
}
func (r *recordingCanvas) Save()                  { r.ops = append(r.ops, "save") }
func (r *recordingCanvas) Translate(x, y float64) { r.ops = append(r.ops, fmt.Sprintf("translate %g %g", x, y)) }
func (r *recordingCanvas) Rotate(deg float64)     { r.ops = append(r.ops, fmt.Sprintf("rotate %g", deg)) }
func (r *recordingCanvas) Restore()               { r.ops = append(r.ops, "restore") }
func (r *recordingCanvas) DrawGlyph(x, y float64, ch rune) {
	r.ops = append(r.ops, fmt.Sprintf("glyph %c", ch))
}

// Ensure every tile is translated, then rotated, then filled with glyphs.
func TestDrawRotatedTilesOrder(t *testing.T) {
	s := DefaultStyle()
	s.Text = "ab"
	rec := &recordingCanvas{}
	if err := drawRotatedTiles(rec, s, 612, 792); err != nil {
		t.Fatalf("drawRotatedTiles: %v", err)
	}

	wantHead := []string{
		"font Times-Roman 35",
		"fill 0.6 0.3",
		"save",
		fmt.Sprintf("translate %g %g", 306.0-5*250, 396.0-5*250),
		"rotate 30",
		"glyph a",
		"glyph b",
		"restore",
	}
	if diff := cmp.Diff(wantHead, rec.ops[:len(wantHead)]); diff != "" {
		t.Fatalf("first tile mismatch (-want +got):\n%s", diff)
	}

	// Two setup calls, then six calls per tile.
	if got, want := len(rec.ops), 2+121*6; got != want {
		t.Fatalf("recorded %d operations, want %d", got, want)
	}
	saves := 0
	for _, op := range rec.ops {
		if op == "save" {
			saves++
		}
	}
	if saves != 121 {
		t.Fatalf("drew %d tiles, want 121", saves)
	}
}

func TestDrawRotatedTilesInvalidDensity(t *testing.T) {
	s := DefaultStyle()
	s.Density = 0
	rec := &recordingCanvas{}
	if err := drawRotatedTiles(rec, s, 612, 792); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("expected ErrInvalidStyle, got %v", err)
	}
	if len(rec.ops) != 0 {
		t.Fatalf("expected no drawing, got %v", rec.ops)
	}
}

// fakeDocument records overlays instead of editing a PDF.
type fakeDocument struct {
	sizes    [][2]float64
	overlays map[int]*Overlay
	saved    string
	saveErr  error
}

func (d *fakeDocument) NumPages() int { return len(d.sizes) }

func (d *fakeDocument) PageSize(pageNr int) (float64, float64, error) {
	if pageNr < 1 || pageNr > len(d.sizes) {
		return 0, 0, fmt.Errorf("no page %d", pageNr)
	}
	s := d.sizes[pageNr-1]
	return s[0], s[1], nil
}

func (d *fakeDocument) Overlay(pageNr int, ov *Overlay) error {
	if d.overlays == nil {
		d.overlays = map[int]*Overlay{}
	}
	d.overlays[pageNr] = ov
	return nil
}

func (d *fakeDocument) Save(path string) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	d.saved = path
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Ensure each page gets an overlay sized to that page.
func TestWatermarkPDFPerPageOverlay(t *testing.T) {
	doc := &fakeDocument{sizes: [][2]float64{{612, 792}, {842, 595}, {200, 200}}}
	e, err := NewEngine(DefaultStyle(), WithLogger(quietLogger()),
		WithPDFOpener(func(string) (Document, error) { return doc, nil }))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := e.WatermarkPDF("in.pdf", "out.pdf"); err != nil {
		t.Fatalf("WatermarkPDF: %v", err)
	}
	if doc.saved != "out.pdf" {
		t.Fatalf("saved to %q, want out.pdf", doc.saved)
	}
	for i, size := range doc.sizes {
		ov := doc.overlays[i+1]
		if ov == nil {
			t.Fatalf("page %d has no overlay", i+1)
		}
		if ov.Width != size[0] || ov.Height != size[1] {
			t.Fatalf("page %d overlay %vx%v, want %vx%v", i+1, ov.Width, ov.Height, size[0], size[1])
		}
		if ov.Font != "Times-Roman" || ov.Alpha != PDFInk.Alpha {
			t.Fatalf("page %d overlay font %q alpha %v", i+1, ov.Font, ov.Alpha)
		}
		if n := bytes.Count(ov.Content, []byte("q\n")); n != 121 {
			t.Fatalf("page %d overlay has %d tiles, want 121", i+1, n)
		}
	}
}

func TestWatermarkPDFSaveError(t *testing.T) {
	doc := &fakeDocument{sizes: [][2]float64{{612, 792}}, saveErr: errors.New("disk full")}
	e, err := NewEngine(DefaultStyle(), WithLogger(quietLogger()),
		WithPDFOpener(func(string) (Document, error) { return doc, nil }))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.WatermarkPDF("in.pdf", "out.pdf"); err == nil {
		t.Fatalf("expected save error")
	}
}

// Ensure text outside WinAnsiEncoding fails before anything is saved.
func TestWatermarkPDFUnencodableText(t *testing.T) {
	s := DefaultStyle()
	s.Text = "机密"
	doc := &fakeDocument{sizes: [][2]float64{{612, 792}}}
	e, err := NewEngine(s, WithLogger(quietLogger()),
		WithPDFOpener(func(string) (Document, error) { return doc, nil }))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.WatermarkPDF("in.pdf", "out.pdf"); err == nil {
		t.Fatalf("expected encoding error")
	}
	if doc.saved != "" {
		t.Fatalf("document was saved to %q", doc.saved)
	}
}

// buildPDF assembles a minimal PDF with one page per media box.
func buildPDF(boxes ...[4]float64) []byte {
	attrs := make([]string, len(boxes))
	for i, b := range boxes {
		attrs[i] = fmt.Sprintf("/MediaBox [%g %g %g %g]", b[0], b[1], b[2], b[3])
	}
	return buildPDFPages(attrs...)
}

// buildPDFPages assembles a minimal PDF with one page per entry of attrs,
// which is spliced into the page dictionary. Every page carries a short
// content stream of its own.
func buildPDFPages(attrs ...string) []byte {
	var objs []string
	kids := ""
	for i := range attrs {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(attrs)),
	)
	for i, a := range attrs {
		content := "0 0 m 10 10 l S"
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R %s /Resources << >> /Contents %d 0 R >>", a, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// Ensure a real PDF keeps its pages and sizes and gains an overlay per page.
func TestWatermarkPDFEndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	input := buildPDF([4]float64{0, 0, 612, 792}, [4]float64{10, 20, 410, 320})
	if err := os.WriteFile(in, input, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	e, err := NewEngine(DefaultStyle(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.WatermarkPDF(in, out); err != nil {
		t.Fatalf("WatermarkPDF: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() <= int64(len(input)) {
		t.Fatalf("output %d bytes, not larger than input %d", info.Size(), len(input))
	}

	doc, err := OpenPDF(out)
	if err != nil {
		t.Fatalf("reopen output: %v", err)
	}
	if doc.NumPages() != 2 {
		t.Fatalf("output has %d pages, want 2", doc.NumPages())
	}
	for pageNr, want := range map[int][2]float64{1: {612, 792}, 2: {400, 300}} {
		w, h, err := doc.PageSize(pageNr)
		if err != nil {
			t.Fatalf("page %d size: %v", pageNr, err)
		}
		if w != want[0] || h != want[1] {
			t.Fatalf("page %d is %vx%v, want %vx%v", pageNr, w, h, want[0], want[1])
		}
	}

	pd := doc.(*pdfDocument)
	pageDict, _, _, err := pd.ctx.PageDict(2, false)
	if err != nil {
		t.Fatalf("page dict: %v", err)
	}
	contents, found := pageDict.Find("Contents")
	if !found {
		t.Fatalf("page 2 lost its contents")
	}
	refs, err := pd.contentRefs(contents)
	if err != nil {
		t.Fatalf("content refs: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("page 2 has %d content streams, want 3", len(refs))
	}

	resObj, _ := pageDict.Find("Resources")
	res, err := pd.ctx.DereferenceDict(resObj)
	if err != nil || res == nil {
		t.Fatalf("page 2 resources: %v", err)
	}
	xobjObj, _ := res.Find("XObject")
	xobjects, err := pd.ctx.DereferenceDict(xobjObj)
	if err != nil || xobjects == nil {
		t.Fatalf("page 2 xobjects: %v", err)
	}
	if _, ok := xobjects.Find("Wm0"); !ok {
		t.Fatalf("page 2 has no watermark form, got %v", xobjects)
	}
}

// Ensure an unreadable PDF is reported and no output is written.
func TestWatermarkPDFUnreadable(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.pdf")
	out := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(in, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	e, err := NewEngine(DefaultStyle(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	err = e.WatermarkPDF(in, out)
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output exists after failure: %v", err)
	}

	if _, err := OpenPDF(filepath.Join(dir, "missing.pdf")); !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable for missing file, got %v", err)
	}
}

func TestFreeName(t *testing.T) {
	d := types.Dict{"Wm0": types.Integer(1), "Wm1": types.Integer(2)}
	if got := freeName(d, "Wm"); got != "Wm2" {
		t.Fatalf("freeName = %q, want Wm2", got)
	}
}

// Ensure the display transform of every rotation maps the overlay onto the
// visible box and keeps its centre on the centre of the box.
func TestPageFrameMatrix(t *testing.T) {
	for _, rot := range []int{0, 90, 180, 270, -90, 450, 45} {
		f := pageFrame{LLX: 100, LLY: 100, Width: 200, Height: 400, Rotate: normalizeRotation(rot)}
		w, h := f.size()
		m := f.matrix()
		apply := func(x, y float64) [2]float64 {
			return [2]float64{m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]}
		}

		corners := map[[2]float64]bool{}
		for _, p := range [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
			corners[apply(p[0], p[1])] = true
		}
		want := map[[2]float64]bool{{100, 100}: true, {300, 100}: true, {100, 500}: true, {300, 500}: true}
		if diff := cmp.Diff(want, corners); diff != "" {
			t.Fatalf("rotate %d: corners mismatch (-want +got):\n%s", rot, diff)
		}
		if c := apply(w/2, h/2); c != [2]float64{200, 300} {
			t.Fatalf("rotate %d: centre maps to %v, want (200, 300)", rot, c)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	for in, want := range map[int]int{0: 0, 90: 90, -90: 270, 540: 180, 270: 270, 45: 0, -720: 0} {
		if got := normalizeRotation(in); got != want {
			t.Fatalf("normalizeRotation(%d) = %d, want %d", in, got, want)
		}
	}
}

// Ensure a cropped page rotated for display gets an upright overlay sized and
// centred on what the viewer shows.
func TestWatermarkPDFRotatedCroppedPage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	input := buildPDFPages("/MediaBox [0 0 612 792] /CropBox [100 100 300 500] /Rotate 90")
	if err := os.WriteFile(in, input, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	var opened *pdfDocument
	opener := func(path string) (Document, error) {
		doc, err := OpenPDF(path)
		if err == nil {
			opened = doc.(*pdfDocument)
		}
		return doc, err
	}
	e, err := NewEngine(DefaultStyle(), WithLogger(quietLogger()), WithPDFOpener(opener))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.WatermarkPDF(in, out); err != nil {
		t.Fatalf("WatermarkPDF: %v", err)
	}

	w, h, err := opened.PageSize(1)
	if err != nil {
		t.Fatalf("PageSize: %v", err)
	}
	if w != 400 || h != 200 {
		t.Fatalf("page size %vx%v, want 400x200", w, h)
	}

	pageDict, _, _, err := opened.ctx.PageDict(1, false)
	if err != nil {
		t.Fatalf("page dict: %v", err)
	}
	contents, _ := pageDict.Find("Contents")
	refs, err := opened.contentRefs(contents)
	if err != nil {
		t.Fatalf("content refs: %v", err)
	}
	sd, _, err := opened.ctx.DereferenceStreamDict(refs[len(refs)-1])
	if err != nil || sd == nil {
		t.Fatalf("draw stream: %v", err)
	}
	if want := "q 0 1 -1 0 300 100 cm /Wm0 Do Q"; !bytes.Contains(sd.Content, []byte(want)) {
		t.Fatalf("draw stream %q does not contain %q", sd.Content, want)
	}

	reopened, err := OpenPDF(out)
	if err != nil {
		t.Fatalf("reopen output: %v", err)
	}
	if w, h, err := reopened.PageSize(1); err != nil || w != 400 || h != 200 {
		t.Fatalf("output page size %vx%v (%v), want 400x200", w, h, err)
	}
}
