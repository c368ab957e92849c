package models

import (
	"context"
	"image"
)

// GridStrategy selects the table-detection heuristics of ExtractGrid.
type GridStrategy string

const (
	GridLattice  GridStrategy = "lattice"  // ruled lines
	GridStream   GridStrategy = "stream"   // whitespace gaps
	GridCombined GridStrategy = "combined" // both
)

// Table is a grid of cell strings, one slice per physical row.
type Table [][]string

// Columns returns the widest row length.
func (t Table) Columns() int {
	n := 0
	for _, row := range t {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// Source is an opened statement document. Pages are 1-based.
type Source interface {
	PageCount() int
	ExtractText(ctx context.Context, page int) (string, error)
	ExtractGrid(ctx context.Context, page int, strategy GridStrategy) ([]Table, error)
	RenderPage(ctx context.Context, page int, dpi float64) (image.Image, error)
}

// Word is an OCR word with its pixel bounding box and 0-100 confidence.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// OCR turns page images into text.
type OCR interface {
	Text(ctx context.Context, img image.Image) (string, error)
	Words(ctx context.Context, img image.Image) ([]Word, error)
}
