package locator

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/parser"
)

// gridStrategies are tried in order; the first that yields a wide enough
// table wins.
var gridStrategies = []models.GridStrategy{
	models.GridLattice,
	models.GridStream,
	models.GridCombined,
}

// TextRegions locates tables through the document's text layer. A page
// where every strategy errors returns the last error; a page where they run
// but find nothing returns no regions.
func (l *Locator) TextRegions(ctx context.Context, src models.Source, page int) ([]models.Region, error) {
	log := l.log.WithField("page", page)
	var (
		lastErr error
		failed  int
	)
	for _, strategy := range gridStrategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tables, err := src.ExtractGrid(ctx, page, strategy)
		if err != nil {
			log.WithField("strategy", strategy).WithError(err).Debug("grid extraction failed")
			lastErr = err
			failed++
			continue
		}

		var regions []models.Region
		for _, t := range tables {
			if t.Columns() < l.cfg.MinColumns {
				continue
			}
			regions = append(regions, models.Region{Strategy: string(strategy), Rows: MapTable(page, t)})
		}
		if len(regions) > 0 {
			log.WithFields(logrus.Fields{"strategy": strategy, "tables": len(regions)}).Debug("located tables")
			return renumber(regions), nil
		}
	}
	if failed == len(gridStrategies) {
		return nil, lastErr
	}
	log.Debug("no table found in text layer")
	return nil, nil
}

// MapTable maps a grid onto logical columns, through its header row when
// one is present and by position otherwise. Every physical row becomes a
// RawRow, header included; the segmenter drops structural rows.
func MapTable(page int, t models.Table) []models.RawRow {
	targets, ok := headerTargets(t)
	if !ok {
		targets = positionalTargets(t.Columns())
	}
	rows := make([]models.RawRow, 0, len(t))
	for i, cells := range t {
		var b rowBuilder
		for j, c := range cells {
			if j < len(targets) {
				b.put(targets[j], c)
			}
		}
		rows = append(rows, b.row(page, i))
	}
	return rows
}

// headerTargets finds the first row that reads as a column header naming at
// least two distinct columns and returns its mapping.
func headerTargets(t models.Table) ([]target, bool) {
	for _, cells := range t {
		if parser.Classify(cells) != parser.MarkerHeader {
			continue
		}
		targets := make([]target, len(cells))
		distinct := make(map[target]bool)
		for j, c := range cells {
			targets[j] = targetFor(c)
			if targets[j] != skip {
				distinct[targets[j]] = true
			}
		}
		if len(distinct) >= 2 {
			for len(targets) < t.Columns() {
				targets = append(targets, skip)
			}
			return targets, true
		}
	}
	return nil, false
}
