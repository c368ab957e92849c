package extractor

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// DefaultLanguage is the Tesseract language pack used when none is set.
const DefaultLanguage = "eng"

var _ models.OCR = (*Tesseract)(nil)

// Page segmentation modes. Word boxes feed column reconstruction, so the
// words pass asks Tesseract for scattered text instead of one column.
const (
	textSegMode  = gosseract.PSM_AUTO
	wordsSegMode = gosseract.PSM_SPARSE_TEXT
)

// Tesseract runs OCR through the Tesseract C API. A client is created per
// call because gosseract clients are not safe for concurrent use.
type Tesseract struct {
	Language string
	log      logrus.FieldLogger
}

// NewTesseract returns an OCR engine for language, "eng" when empty.
func NewTesseract(language string, log logrus.FieldLogger) *Tesseract {
	if language == "" {
		language = DefaultLanguage
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tesseract{Language: language, log: log.WithField("component", "ocr")}
}

// Preprocess converts a page image to high-contrast grayscale, which
// Tesseract reads more reliably than anti-aliased colour renders.
func Preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 20)
	return imaging.Sharpen(gray, 0.5)
}

// Text returns the recognised text of img.
func (t *Tesseract) Text(ctx context.Context, img image.Image) (string, error) {
	var text string
	err := t.run(ctx, img, textSegMode, func(c *gosseract.Client) error {
		var err error
		text, err = c.Text()
		return err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Words returns every recognised word with its box in img's pixel space.
func (t *Tesseract) Words(ctx context.Context, img image.Image) ([]models.Word, error) {
	var words []models.Word
	err := t.run(ctx, img, wordsSegMode, func(c *gosseract.Client) error {
		boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return err
		}
		words = make([]models.Word, 0, len(boxes))
		for _, b := range boxes {
			words = append(words, models.Word{Text: b.Word, Confidence: b.Confidence, Box: b.Box})
		}
		return nil
	})
	return words, err
}

func (t *Tesseract) run(ctx context.Context, img image.Image, mode gosseract.PageSegMode, fn func(c *gosseract.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if img == nil {
		return errors.New("ocr: nil image")
	}

	// Page renders are large; each call gets its own scratch dir.
	dir, err := os.MkdirTemp("", "stmtx-ocr-*")
	if err != nil {
		return errors.Wrap(err, "ocr: create temp dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "page.png")
	if err := imaging.Save(Preprocess(img), path); err != nil {
		return errors.Wrap(err, "ocr: write page image")
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.Language); err != nil {
		return errors.Wrap(err, "ocr: set language")
	}
	if err := client.SetPageSegMode(mode); err != nil {
		return errors.Wrap(err, "ocr: set page segmentation")
	}
	if err := client.SetImage(path); err != nil {
		return errors.Wrap(err, "ocr: load image")
	}
	if err := fn(client); err != nil {
		t.log.WithError(err).Warn("tesseract failed")
		return errors.Wrap(err, "ocr")
	}
	return nil
}
