package extractor

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Layout tolerances in PDF points.
const (
	lineTolerance = 2.0  // glyph baselines closer than this share a line
	columnGapEm   = 1.0  // a gap wider than this many font sizes splits a chunk
	minColumnGap  = 3.0  // floor for the split gap on tiny fonts
	spaceGapEm    = 0.15 // a gap wider than this inserts a space
)

// chunk is a run of glyphs on one line with no column-sized gap inside.
type chunk struct {
	x0, x1 float64
	y      float64
	text   string
}

func (c chunk) centre() float64 { return (c.x0 + c.x1) / 2 }

// textLine is a row of chunks, left to right. y grows up the page.
type textLine struct {
	y      float64
	chunks []chunk
}

func (l textLine) String() string {
	parts := make([]string, len(l.chunks))
	for i, c := range l.chunks {
		parts[i] = c.text
	}
	return strings.Join(parts, "  ")
}

// buildLines groups positioned glyphs into lines top to bottom, then splits
// each line into chunks at column-sized gaps.
func buildLines(glyphs []pdf.Text) []textLine {
	var items []pdf.Text
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) != "" {
			items = append(items, g)
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Y > items[j].Y })

	var (
		lines []textLine
		row   []pdf.Text
		rowY  float64
	)
	flush := func() {
		if len(row) > 0 {
			lines = append(lines, textLine{y: rowY, chunks: chunkRow(row)})
		}
		row = nil
	}
	for _, g := range items {
		if len(row) > 0 && math.Abs(g.Y-rowY) > lineTolerance {
			flush()
		}
		if len(row) == 0 {
			rowY = g.Y
		}
		row = append(row, g)
	}
	flush()
	return lines
}

func chunkRow(row []pdf.Text) []chunk {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

	var (
		out []chunk
		cur chunk
		sb  strings.Builder
	)
	for i, g := range row {
		size := g.FontSize
		if size <= 0 {
			size = 10
		}
		w := g.W
		if w <= 0 {
			w = 0.5 * size * float64(utf8.RuneCountInString(g.S))
		}
		if i > 0 {
			gap := g.X - cur.x1
			if gap > math.Max(columnGapEm*size, minColumnGap) {
				cur.text = sb.String()
				out = append(out, cur)
				sb.Reset()
				cur = chunk{}
			} else if gap > spaceGapEm*size {
				sb.WriteByte(' ')
			}
		}
		if sb.Len() == 0 {
			cur.x0, cur.y = g.X, g.Y
		}
		sb.WriteString(g.S)
		cur.x1 = g.X + w
	}
	cur.text = sb.String()
	return append(out, cur)
}
