package extractor

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Grid tolerances in PDF points.
const (
	snapTolerance  = 3.0 // column edges closer than this are one edge
	minRuleSpan    = 8.0 // rects shorter than this are not table rules
	thinRuleWidth  = 2.0 // rects narrower than this are vertical rules
	minStreamCells = 3   // chunks a line needs to vote on stream columns
)

// pageLayout is the positioned content of one page.
type pageLayout struct {
	lines []textLine
	rects []pdf.Rect
}

// grid builds the tables of a page for one strategy. A nil result means the
// strategy found no table.
func (l *pageLayout) grid(strategy models.GridStrategy) []models.Table {
	var edges []float64
	var lines []textLine
	switch strategy {
	case models.GridLattice:
		edges, lines = l.lattice()
	case models.GridStream:
		edges, lines = l.stream()
	case models.GridCombined:
		le, ll := l.lattice()
		se, sl := l.stream()
		edges = snapEdges(append(append([]float64(nil), le...), se...))
		lines = unionLines(ll, sl)
	}
	if len(edges) < 3 || len(lines) == 0 {
		return nil
	}
	if t := fill(lines, edges); len(t) > 0 {
		return []models.Table{t}
	}
	return nil
}

// lattice reads column edges from ruled rectangles: both sides of cell
// boxes and the centre of thin vertical rules. Lines outside the ruled
// area are ignored.
func (l *pageLayout) lattice() ([]float64, []textLine) {
	var (
		xs         []float64
		top, floor = math.Inf(-1), math.Inf(1)
	)
	for _, r := range l.rects {
		h := math.Abs(r.Max.Y - r.Min.Y)
		if h < minRuleSpan {
			continue
		}
		x0, x1 := math.Min(r.Min.X, r.Max.X), math.Max(r.Min.X, r.Max.X)
		if x1-x0 <= thinRuleWidth {
			xs = append(xs, (x0+x1)/2)
		} else {
			xs = append(xs, x0, x1)
		}
		top = math.Max(top, math.Max(r.Min.Y, r.Max.Y))
		floor = math.Min(floor, math.Min(r.Min.Y, r.Max.Y))
	}
	edges := snapEdges(xs)
	if len(edges) < 3 {
		return nil, nil
	}
	var inside []textLine
	for _, ln := range l.lines {
		if ln.y <= top+lineTolerance && ln.y >= floor-lineTolerance {
			inside = append(inside, ln)
		}
	}
	return edges, inside
}

// stream infers columns from whitespace: the horizontal extents of chunks
// on table-like lines are merged, and each gap between merged extents is a
// column boundary. The table runs from the first to the last such line.
func (l *pageLayout) stream() ([]float64, []textLine) {
	first, last := -1, -1
	var spans [][2]float64
	for i, ln := range l.lines {
		if len(ln.chunks) < minStreamCells {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		for _, c := range ln.chunks {
			spans = append(spans, [2]float64{c.x0, c.x1})
		}
	}
	if first < 0 || first == last {
		return nil, nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	merged := [][2]float64{spans[0]}
	for _, s := range spans[1:] {
		top := &merged[len(merged)-1]
		if s[0] <= top[1]+snapTolerance {
			top[1] = math.Max(top[1], s[1])
			continue
		}
		merged = append(merged, s)
	}
	if len(merged) < 2 {
		return nil, nil
	}
	edges := []float64{merged[0][0]}
	for i := 1; i < len(merged); i++ {
		edges = append(edges, (merged[i-1][1]+merged[i][0])/2)
	}
	edges = append(edges, merged[len(merged)-1][1])
	return edges, l.lines[first : last+1]
}

// fill places every chunk in the column containing its centre. Chunks
// outside the outer edges are dropped, as are rows left empty.
func fill(lines []textLine, edges []float64) models.Table {
	cols := len(edges) - 1
	var t models.Table
	for _, ln := range lines {
		row := make([]string, cols)
		used := false
		for _, c := range ln.chunks {
			x := c.centre()
			if x < edges[0]-snapTolerance || x > edges[cols]+snapTolerance {
				continue
			}
			i := sort.SearchFloat64s(edges[1:cols], x)
			if row[i] != "" {
				row[i] += " "
			}
			row[i] += strings.TrimSpace(c.text)
			used = true
		}
		if used {
			t = append(t, row)
		}
	}
	return t
}

func snapEdges(xs []float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	out := []float64{sorted[0]}
	for _, x := range sorted[1:] {
		if x-out[len(out)-1] > snapTolerance {
			out = append(out, x)
		}
	}
	return out
}

// unionLines merges two top-to-bottom line lists without duplicates.
func unionLines(a, b []textLine) []textLine {
	seen := make(map[float64]bool, len(a)+len(b))
	var out []textLine
	for _, ln := range append(append([]textLine(nil), a...), b...) {
		if seen[ln.y] {
			continue
		}
		seen[ln.y] = true
		out = append(out, ln)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].y > out[j].y })
	return out
}
