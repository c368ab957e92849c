// Package classifier decides how each page of a statement was produced:
// digitally (text layer), scanned (image only) or a mix of both.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Defaults.
const (
	DefaultMinChars   = 50
	DefaultDivergence = 0.5
	DefaultDPI        = 150
)

// Config holds the classification thresholds.
type Config struct {
	MinChars   int     // text must be strictly longer than this to count
	Divergence float64 // min/max length ratio below which a page is mixed
	DPI        float64 // render resolution for the classification OCR pass
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{MinChars: DefaultMinChars, Divergence: DefaultDivergence, DPI: DefaultDPI}
}

// PageResult is the classification of one page along with the text that
// was read while deciding it.
type PageResult struct {
	Page    int
	Kind    models.PageKind
	Direct  string
	OCRText string
	Err     error
}

// Text returns the longer of the two texts.
func (r PageResult) Text() string {
	if utf8.RuneCountInString(r.OCRText) > utf8.RuneCountInString(r.Direct) {
		return r.OCRText
	}
	return r.Direct
}

// Classifier inspects pages through a Source and an OCR engine. It holds no
// per-document state and is safe for concurrent use.
type Classifier struct {
	cfg Config
	ocr models.OCR
	log logrus.FieldLogger
}

// New builds a Classifier. ocr may be nil, in which case pages are judged on
// their text layer alone.
func New(cfg Config, ocr models.OCR, log logrus.FieldLogger) *Classifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Classifier{cfg: cfg, ocr: ocr, log: log.WithField("component", "classifier")}
}

// Page classifies a single page. It never fails: any error or panic while
// probing the page yields image-based, with the cause recorded in Err.
func (c *Classifier) Page(ctx context.Context, src models.Source, page int) (res PageResult) {
	res = PageResult{Page: page, Kind: models.PageImageBased}
	defer func() {
		if r := recover(); r != nil {
			res = PageResult{Page: page, Kind: models.PageImageBased, Err: fmt.Errorf("panic: %v", r)}
		}
		if res.Err != nil {
			c.log.WithField("page", page).WithError(res.Err).Warn("classification failed, treating page as image-based")
		}
	}()

	direct, err := src.ExtractText(ctx, page)
	if err != nil {
		res.Err = err
		return res
	}
	res.Direct = direct

	if c.ocr != nil {
		img, err := src.RenderPage(ctx, page, c.cfg.DPI)
		if err != nil {
			res.Err = err
			return res
		}
		text, err := c.ocr.Text(ctx, img)
		if err != nil {
			res.Err = err
			return res
		}
		res.OCRText = text
	}

	res.Kind = Decide(textLen(res.Direct), textLen(res.OCRText), c.cfg)
	c.log.WithFields(logrus.Fields{
		"page":   page,
		"kind":   res.Kind,
		"direct": textLen(res.Direct),
		"ocr":    textLen(res.OCRText),
	}).Debug("classified page")
	return res
}

// Decide applies the threshold rules to the direct and OCR text lengths.
func Decide(directLen, ocrLen int, cfg Config) models.PageKind {
	hasText := directLen > cfg.MinChars
	hasOCR := ocrLen > cfg.MinChars
	switch {
	case hasText && hasOCR:
		lo, hi := directLen, ocrLen
		if lo > hi {
			lo, hi = hi, lo
		}
		if float64(lo)/float64(hi) < cfg.Divergence {
			return models.PageMixed
		}
		return models.PageTextNative
	case hasText:
		return models.PageTextNative
	default:
		return models.PageImageBased
	}
}

// Vote reduces page kinds to a document kind. Mixed pages count with
// image-based ones; ties and an empty document come out image-based.
func Vote(kinds []models.PageKind) models.PageKind {
	text := 0
	for _, k := range kinds {
		if k == models.PageTextNative {
			text++
		}
	}
	if text > len(kinds)-text {
		return models.PageTextNative
	}
	return models.PageImageBased
}

func textLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
