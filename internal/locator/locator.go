// Package locator finds the transaction table on a page and maps it onto the
// five logical columns: date, description, withdrawal, deposit, balance.
package locator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Defaults.
const (
	DefaultOCRDPI        = 300
	DefaultMinConfidence = 40
	DefaultHeaderBand    = 0.30
	DefaultMinColumns    = 4
)

// Config tunes table detection.
type Config struct {
	OCRDPI        float64
	MinConfidence float64 // OCR words below this are noise
	HeaderBand    float64 // top fraction of the page searched for column headers
	MinColumns    int     // grid tables narrower than this are ignored
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		OCRDPI:        DefaultOCRDPI,
		MinConfidence: DefaultMinConfidence,
		HeaderBand:    DefaultHeaderBand,
		MinColumns:    DefaultMinColumns,
	}
}

// Locator turns pages into candidate regions of raw rows. It is stateless
// and safe for concurrent use.
type Locator struct {
	cfg Config
	ocr models.OCR
	log logrus.FieldLogger
}

// New builds a Locator. ocr may be nil, which disables the image path.
func New(cfg Config, ocr models.OCR, log logrus.FieldLogger) *Locator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Locator{cfg: cfg, ocr: ocr, log: log.WithField("component", "locator")}
}

// Locate returns the regions on a page for its classified kind. tmpl, when
// non-nil, supplies a column layout for scanned pages without a readable
// header. An empty result means the page has no usable table.
func (l *Locator) Locate(ctx context.Context, src models.Source, page int, kind models.PageKind, tmpl *models.StatementTemplate) ([]models.Region, error) {
	switch kind {
	case models.PageTextNative:
		return l.TextRegions(ctx, src, page)
	case models.PageImageBased:
		return l.ImageRegions(ctx, src, page, tmpl)
	case models.PageMixed:
		regions, err := l.TextRegions(ctx, src, page)
		if err == nil && len(regions) > 0 {
			return regions, nil
		}
		if err != nil {
			l.log.WithField("page", page).WithError(err).Debug("text path failed on mixed page, trying OCR")
		}
		return l.ImageRegions(ctx, src, page, tmpl)
	default:
		return nil, errors.Errorf("unknown page kind %q", kind)
	}
}

// renumber makes row indexes unique and increasing across all regions of a
// page, in region order.
func renumber(regions []models.Region) []models.Region {
	n := 0
	for r := range regions {
		for i := range regions[r].Rows {
			regions[r].Rows[i].Index = n
			n++
		}
	}
	return regions
}
