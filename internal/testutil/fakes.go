// Package testutil provides in-memory document and OCR fakes for tests.
package testutil

import (
	"context"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Page is the content a FakeSource serves for one page.
type Page struct {
	Text    string
	TextErr error
	Grids   map[models.GridStrategy][]models.Table
	GridErr error

	// OCR output for the rendered page.
	OCRText  string
	OCRWords []models.Word

	// Panic makes every call for this page panic.
	Panic bool
	// Delay is slept, ignoring ctx, before text extraction.
	Delay time.Duration
}

// PageImage is what FakeSource renders: a blank page that remembers its
// number so FakeOCR can answer for it.
type PageImage struct {
	*image.Gray
	Page int
}

// Fake page size in pixels.
const (
	PageWidth  = 1000
	PageHeight = 1400
)

// FakeSource is a models.Source over canned pages. Safe for concurrent use.
type FakeSource struct {
	Pages       []Page
	RenderCalls atomic.Int32
	Closed      atomic.Bool
}

// NewFakeSource returns a source serving pages in order.
func NewFakeSource(pages ...Page) *FakeSource {
	return &FakeSource{Pages: pages}
}

func (s *FakeSource) page(n int) (Page, error) {
	if n < 1 || n > len(s.Pages) {
		return Page{}, errors.Errorf("page %d out of range", n)
	}
	p := s.Pages[n-1]
	if p.Panic {
		panic("fake page failure")
	}
	return p, nil
}

func (s *FakeSource) PageCount() int { return len(s.Pages) }

func (s *FakeSource) Close() error {
	s.Closed.Store(true)
	return nil
}

func (s *FakeSource) ExtractText(_ context.Context, n int) (string, error) {
	p, err := s.page(n)
	if err != nil {
		return "", err
	}
	if p.Delay > 0 {
		time.Sleep(p.Delay)
	}
	return p.Text, p.TextErr
}

func (s *FakeSource) ExtractGrid(_ context.Context, n int, strategy models.GridStrategy) ([]models.Table, error) {
	p, err := s.page(n)
	if err != nil {
		return nil, err
	}
	if p.GridErr != nil {
		return nil, p.GridErr
	}
	return p.Grids[strategy], nil
}

func (s *FakeSource) RenderPage(_ context.Context, n int, _ float64) (image.Image, error) {
	if _, err := s.page(n); err != nil {
		return nil, err
	}
	s.RenderCalls.Add(1)
	return &PageImage{Gray: image.NewGray(image.Rect(0, 0, PageWidth, PageHeight)), Page: n}, nil
}

// FakeOCR answers OCR calls from a FakeSource's pages.
type FakeOCR struct {
	Source *FakeSource
	Err    error
}

func (o *FakeOCR) lookup(img image.Image) (Page, error) {
	if o.Err != nil {
		return Page{}, o.Err
	}
	pi, ok := img.(*PageImage)
	if !ok {
		return Page{}, errors.New("fake ocr: unknown image")
	}
	return o.Source.page(pi.Page)
}

func (o *FakeOCR) Text(_ context.Context, img image.Image) (string, error) {
	p, err := o.lookup(img)
	if err != nil {
		return "", err
	}
	if p.OCRText == "" && len(p.OCRWords) > 0 {
		parts := make([]string, len(p.OCRWords))
		for i, w := range p.OCRWords {
			parts[i] = w.Text
		}
		return strings.Join(parts, " "), nil
	}
	return p.OCRText, nil
}

func (o *FakeOCR) Words(_ context.Context, img image.Image) ([]models.Word, error) {
	p, err := o.lookup(img)
	if err != nil {
		return nil, err
	}
	return p.OCRWords, nil
}

// Word places a word box at relative page coordinates with the given width
// fraction. Height is fixed at 1% of the page.
func Word(text string, x, y, width float64, confidence float64) models.Word {
	x0 := int(x * PageWidth)
	y0 := int(y * PageHeight)
	return models.Word{
		Text:       text,
		Confidence: confidence,
		Box:        image.Rect(x0, y0, x0+int(width*PageWidth), y0+PageHeight/100),
	}
}

// Line places words on one line at y, each starting at the paired x.
func Line(y float64, cells ...any) []models.Word {
	var out []models.Word
	for i := 0; i+1 < len(cells); i += 2 {
		x := cells[i].(float64)
		for j, tok := range strings.Fields(cells[i+1].(string)) {
			out = append(out, Word(tok, x+float64(j)*0.04, y, 0.035, 95))
		}
	}
	return out
}
