// Package extractor opens statement PDFs and reads their text layer, table
// geometry and page images. It also wraps the Tesseract OCR engine.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

var pdfMagic = []byte("%PDF-")

var _ models.Source = (*Document)(nil)

// Document is an opened PDF. The text layer comes from ledongthuc/pdf;
// rendering, and text when that library cannot decode a page, come from
// MuPDF through go-fitz. Neither library is safe for concurrent use, so
// each sits behind its own lock.
type Document struct {
	path  string
	pages int
	log   logrus.FieldLogger

	mu      sync.Mutex
	file    *os.File
	reader  *pdf.Reader
	layouts map[int]*pageLayout

	fitzMu sync.Mutex
	fitz   *fitz.Document

	textMu    sync.Mutex
	texts     map[int]string
	wordsOnce sync.Once
	hasWords  bool
}

// Open validates path and opens it. Missing, empty and non-PDF files fail
// with an *errs.Error before any page is read.
func Open(path string, log logrus.FieldLogger) (*Document, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := validate(path); err != nil {
		return nil, err
	}
	d := &Document{path: path, layouts: make(map[int]*pageLayout), texts: make(map[int]string)}
	d.log = log.WithFields(logrus.Fields{"component": "extractor", "file": path})

	err := safely(func() error {
		f, r, err := pdf.Open(path)
		if err != nil {
			return err
		}
		d.file, d.reader = f, r
		d.pages = r.NumPage()
		return nil
	})
	if err != nil {
		d.log.WithError(err).Warn("text layer unavailable")
	}

	if fz, ferr := fitz.New(path); ferr != nil {
		d.log.WithError(ferr).Warn("renderer unavailable")
	} else {
		d.fitz = fz
		if d.pages == 0 {
			d.pages = fz.NumPage()
		}
	}

	if d.reader == nil && d.fitz == nil {
		return nil, errs.Wrap(err, errs.KindFormat, errs.CodeFileUnreadable, "cannot read PDF").WithPath(path)
	}
	if d.pages == 0 {
		d.Close()
		return nil, errs.New(errs.KindFormat, errs.CodeNoPages, "PDF has no pages").WithPath(path)
	}
	return d, nil
}

func validate(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errs.New(errs.KindFile, errs.CodeFileNotFound, "file not found").WithPath(path)
	}
	if err != nil {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "cannot stat file").WithPath(path)
	}
	if info.IsDir() {
		return errs.New(errs.KindFile, errs.CodeFileUnreadable, "path is a directory").WithPath(path)
	}
	if info.Size() == 0 {
		return errs.New(errs.KindFile, errs.CodeFileEmpty, "file is empty").WithPath(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "cannot open file").WithPath(path)
	}
	defer f.Close()
	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "cannot read file").WithPath(path)
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return errs.New(errs.KindFormat, errs.CodeUnsupportedFormat, "not a PDF document").WithPath(path)
	}
	return nil
}

// Close releases both libraries' handles.
func (d *Document) Close() error {
	d.mu.Lock()
	if d.file != nil {
		d.file.Close()
		d.file, d.reader = nil, nil
	}
	d.mu.Unlock()

	d.fitzMu.Lock()
	defer d.fitzMu.Unlock()
	if d.fitz != nil {
		err := d.fitz.Close()
		d.fitz = nil
		return err
	}
	return nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pages }

// ExtractText returns the page's text layer, or "" when the page has none
// that decodes to readable text or when no page of the document reads like
// a statement.
func (d *Document) ExtractText(ctx context.Context, page int) (string, error) {
	if err := d.checkPage(ctx, page); err != nil {
		return "", err
	}
	text, err := d.pageText(page)
	if err != nil || text == "" {
		return "", err
	}
	if !d.statementLike() {
		return "", nil
	}
	return text, nil
}

// statementLike reports whether any page's text contains words a statement
// would. Continuation pages often have none, so this is decided once for
// the whole document.
func (d *Document) statementLike() bool {
	d.wordsOnce.Do(func() {
		for page := 1; page <= d.pages; page++ {
			if text, err := d.pageText(page); err == nil && containsStatementWords(text) {
				d.hasWords = true
				return
			}
		}
		d.log.Debug("text layer has no statement words, treating it as unreadable")
	})
	return d.hasWords
}

// pageText returns the readable text of a page, reading it once.
func (d *Document) pageText(page int) (string, error) {
	d.textMu.Lock()
	text, ok := d.texts[page]
	d.textMu.Unlock()
	if ok {
		return text, nil
	}

	text, err := d.readText(page)
	if err != nil {
		return "", err
	}
	d.textMu.Lock()
	d.texts[page] = text
	d.textMu.Unlock()
	return text, nil
}

func (d *Document) readText(page int) (string, error) {
	var text string
	err := d.withReader(func(r *pdf.Reader) error {
		p := r.Page(page)
		if p.V.IsNull() {
			return nil
		}
		text = textByRow(p)
		if !IsReadable(text) {
			lines := buildLines(p.Content().Text)
			text = linesText(lines)
		}
		return nil
	})
	if err == nil && IsReadable(text) {
		return text, nil
	}
	if err != nil {
		d.log.WithField("page", page).WithError(err).Debug("text layer failed, trying renderer")
	}

	d.fitzMu.Lock()
	defer d.fitzMu.Unlock()
	if d.fitz == nil {
		return "", err
	}
	var ferr error
	err = safely(func() error {
		text, ferr = d.fitz.Text(page - 1)
		return ferr
	})
	if err != nil {
		return "", errors.Wrapf(err, "page %d text", page)
	}
	if !IsReadable(text) {
		return "", nil
	}
	return text, nil
}

// ExtractGrid returns the tables a strategy finds on the page.
func (d *Document) ExtractGrid(ctx context.Context, page int, strategy models.GridStrategy) ([]models.Table, error) {
	if err := d.checkPage(ctx, page); err != nil {
		return nil, err
	}
	layout, err := d.layout(page)
	if err != nil {
		return nil, err
	}
	return layout.grid(strategy), nil
}

// RenderPage rasterizes a page at dpi.
func (d *Document) RenderPage(ctx context.Context, page int, dpi float64) (image.Image, error) {
	if err := d.checkPage(ctx, page); err != nil {
		return nil, err
	}
	d.fitzMu.Lock()
	defer d.fitzMu.Unlock()
	if d.fitz == nil {
		return nil, errors.New("renderer unavailable")
	}
	var img image.Image
	err := safely(func() error {
		rgba, err := d.fitz.ImageDPI(page-1, dpi)
		if err != nil {
			return err
		}
		img = rgba
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "render page %d", page)
	}
	return img, nil
}

// layout returns the page's positioned text and rules, reading them once.
func (d *Document) layout(page int) (*pageLayout, error) {
	var out *pageLayout
	err := d.withReader(func(r *pdf.Reader) error {
		if l, ok := d.layouts[page]; ok {
			out = l
			return nil
		}
		p := r.Page(page)
		if p.V.IsNull() {
			out = &pageLayout{}
		} else {
			content := p.Content()
			out = &pageLayout{lines: buildLines(content.Text), rects: content.Rect}
		}
		d.layouts[page] = out
		return nil
	})
	return out, err
}

// withReader runs fn under the reader lock, turning library panics on
// malformed content into errors.
func (d *Document) withReader(fn func(r *pdf.Reader) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return errors.New("text layer unavailable")
	}
	return safely(func() error { return fn(d.reader) })
}

func (d *Document) checkPage(ctx context.Context, page int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if page < 1 || page > d.pages {
		return errors.Errorf("page %d out of range 1-%d", page, d.pages)
	}
	return nil
}

// textByRow joins the library's row grouping, one line per row.
func textByRow(p pdf.Page) string {
	rows, err := p.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func linesText(lines []textLine) string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		out = append(out, ln.String())
	}
	return strings.Join(out, "\n")
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panic: %v", r)
		}
	}()
	return fn()
}
