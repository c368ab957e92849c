package locator

import (
	"context"
	"image"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/parser"
)

// Region strategies of the image path.
const (
	StrategyOCRHeader   = "ocr-header"
	StrategyOCRTemplate = "ocr-template"
	StrategyOCRFixed    = "ocr-fixed"
)

// minHeaderColumns is how many distinct headers a line needs before its
// word positions are trusted as column boundaries.
const minHeaderColumns = 3

// fixedSplit is the last-resort column layout as right edges in page
// fractions.
var fixedSplit = [models.NumColumns]float64{0.15, 0.60, 0.75, 0.90, 1.0}

type column struct {
	target target
	x0, x1 int
}

type line struct {
	words []models.Word
	yc    float64
}

// ImageRegions OCRs a rendered page and rebuilds its table from word
// positions. Column boundaries come from the header line when one is found
// near the top of the page, else from the template layout, else from a fixed
// split. A missing header never fails the page.
func (l *Locator) ImageRegions(ctx context.Context, src models.Source, page int, tmpl *models.StatementTemplate) ([]models.Region, error) {
	if l.ocr == nil {
		return nil, errors.New("no OCR engine configured")
	}
	log := l.log.WithField("page", page)

	img, err := src.RenderPage(ctx, page, l.cfg.OCRDPI)
	if err != nil {
		return nil, errors.Wrap(err, "render page")
	}
	words, err := l.ocr.Words(ctx, img)
	if err != nil {
		return nil, errors.Wrap(err, "ocr words")
	}

	var kept []models.Word
	for _, w := range words {
		if w.Confidence < l.cfg.MinConfidence || strings.TrimSpace(w.Text) == "" {
			continue
		}
		kept = append(kept, w)
	}
	lines := groupLines(kept)
	if len(lines) == 0 {
		log.Debug("no confident OCR words on page")
		return nil, nil
	}

	bounds := img.Bounds()
	bandBottom := float64(bounds.Min.Y) + l.cfg.HeaderBand*float64(bounds.Dy())

	strategy := StrategyOCRHeader
	cols, headerAt := headerColumns(lines, bandBottom, bounds)
	body := lines
	if len(cols) >= minHeaderColumns {
		body = lines[headerAt+1:]
	} else {
		cols = nil
		if tmpl != nil {
			cols = layoutColumns(tmpl.Layout, bounds)
			strategy = StrategyOCRTemplate
		}
		if len(cols) == 0 {
			cols = fixedColumns(bounds)
			strategy = StrategyOCRFixed
		}
	}
	log.WithFields(logrus.Fields{"strategy": strategy, "columns": len(cols), "lines": len(body)}).Debug("located OCR table")

	rows := make([]models.RawRow, 0, len(body))
	for i, ln := range body {
		var b rowBuilder
		for _, w := range ln.words {
			if t, ok := columnAt(cols, (w.Box.Min.X+w.Box.Max.X)/2); ok {
				b.put(t, w.Text)
			}
		}
		rows = append(rows, b.row(page, i))
	}
	return renumber([]models.Region{{Strategy: strategy, Rows: rows}}), nil
}

// groupLines clusters words whose vertical centres lie within half a median
// word height of each other, top to bottom, each line left to right.
func groupLines(words []models.Word) []line {
	if len(words) == 0 {
		return nil
	}
	sorted := append([]models.Word(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return centreY(sorted[i]) < centreY(sorted[j])
	})

	heights := make([]int, len(sorted))
	for i, w := range sorted {
		heights[i] = w.Box.Dy()
	}
	sort.Ints(heights)
	tol := float64(heights[len(heights)/2]) / 2
	if tol < 1 {
		tol = 1
	}

	var lines []line
	for _, w := range sorted {
		yc := centreY(w)
		if n := len(lines); n > 0 && yc-lines[n-1].yc <= tol {
			ln := &lines[n-1]
			ln.words = append(ln.words, w)
			ln.yc += (yc - ln.yc) / float64(len(ln.words))
			continue
		}
		lines = append(lines, line{words: []models.Word{w}, yc: yc})
	}
	for i := range lines {
		ws := lines[i].words
		sort.SliceStable(ws, func(a, b int) bool { return ws[a].Box.Min.X < ws[b].Box.Min.X })
	}
	return lines
}

func centreY(w models.Word) float64 {
	return float64(w.Box.Min.Y+w.Box.Max.Y) / 2
}

// headerColumns picks the line inside the header band that names the most
// distinct columns. Each header's left edge starts its column, which runs to
// the next header's left edge; the first column extends to the page's left
// edge and the last to its right edge.
func headerColumns(lines []line, bandBottom float64, bounds image.Rectangle) ([]column, int) {
	var (
		best []column
		at   = -1
	)
	for i, ln := range lines {
		if ln.yc > bandBottom {
			break
		}
		if hits := headerHits(ln.words); len(hits) > len(best) {
			best, at = hits, i
		}
	}
	if len(best) == 0 {
		return nil, -1
	}
	best[0].x0 = bounds.Min.X
	for i := range best {
		if i+1 < len(best) {
			best[i].x1 = best[i+1].x0
		} else {
			best[i].x1 = bounds.Max.X
		}
	}
	return best, at
}

// headerHits finds header words in a line, preferring two-word forms such
// as "Paid out". Repeated columns keep their first position.
func headerHits(words []models.Word) []column {
	var hits []column
	seen := make(map[target]bool)
	add := func(t target, x int) {
		if t == skip || seen[t] {
			return
		}
		seen[t] = true
		hits = append(hits, column{target: t, x0: x})
	}
	for i := 0; i < len(words); i++ {
		if i+1 < len(words) {
			pair := parser.NormalizeHeaderWord(words[i].Text + " " + words[i+1].Text)
			if _, ok := parser.HeaderSynonyms[pair]; ok && strings.Contains(pair, " ") {
				add(targetFor(pair), words[i].Box.Min.X)
				i++
				continue
			}
		}
		add(targetFor(words[i].Text), words[i].Box.Min.X)
	}
	return hits
}

// layoutColumns converts template layout boxes to pixel columns. Keys may
// use any header synonym ("withdrawals", "amount").
func layoutColumns(layout map[string]models.Box, bounds image.Rectangle) []column {
	var cols []column
	w := float64(bounds.Dx())
	for key, box := range layout {
		t := targetFor(key)
		if t == skip {
			continue
		}
		cols = append(cols, column{
			target: t,
			x0:     bounds.Min.X + int(box.X0()*w),
			x1:     bounds.Min.X + int(box.X1()*w),
		})
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].x0 != cols[j].x0 {
			return cols[i].x0 < cols[j].x0
		}
		return cols[i].target < cols[j].target
	})
	return cols
}

func fixedColumns(bounds image.Rectangle) []column {
	cols := make([]column, models.NumColumns)
	w := float64(bounds.Dx())
	left := bounds.Min.X
	for i, edge := range fixedSplit {
		right := bounds.Min.X + int(edge*w)
		cols[i] = column{target: target(i), x0: left, x1: right}
		left = right
	}
	return cols
}

// columnAt returns the column containing x. The right page edge belongs to
// the last column.
func columnAt(cols []column, x int) (target, bool) {
	for i, c := range cols {
		if x >= c.x0 && (x < c.x1 || (i == len(cols)-1 && x == c.x1)) {
			return c.target, true
		}
	}
	return skip, false
}
