// Package pipeline runs the statement extraction stages over a document:
// classification, template matching, table location, segmentation,
// validation and sequencing.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statement-extractor/internal/classifier"
	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/locator"
	"github.com/insightdelivered/statement-extractor/internal/metrics"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/parser"
	"github.com/insightdelivered/statement-extractor/internal/sequencer"
	"github.com/insightdelivered/statement-extractor/internal/templates"
)

// Defaults.
const (
	DefaultWorkers = 4
	DefaultTimeout = 2 * time.Minute
)

// Config tunes a Pipeline.
type Config struct {
	Workers     int
	Timeout     time.Duration // deadline for each phase; zero disables it
	Join        parser.JoinStyle
	AcceptFloor float64
	Classifier  classifier.Config
	Locator     locator.Config
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		Workers:     DefaultWorkers,
		Timeout:     DefaultTimeout,
		Join:        parser.JoinNewline,
		AcceptFloor: templates.DefaultAcceptFloor,
		Classifier:  classifier.DefaultConfig(),
		Locator:     locator.DefaultConfig(),
	}
}

// Deps are the collaborators a Pipeline is built from.
type Deps struct {
	OCR       models.OCR                 // nil disables the image path
	Templates []models.StatementTemplate // read-only library snapshot
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
	Now       func() time.Time // clock for missing years
}

// Pipeline is a constructed, immutable extraction service. One Pipeline
// may process many documents concurrently.
type Pipeline struct {
	cfg        Config
	classifier *classifier.Classifier
	locator    *locator.Locator
	matcher    *templates.Matcher
	segmenter  *parser.Segmenter
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
}

// New wires a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	dates := parser.NewDateParser()
	if deps.Now != nil {
		dates.Now = deps.Now
	}
	return &Pipeline{
		cfg:        cfg,
		classifier: classifier.New(cfg.Classifier, deps.OCR, log),
		locator:    locator.New(cfg.Locator, deps.OCR, log),
		matcher:    templates.NewMatcher(deps.Templates, cfg.AcceptFloor, log),
		segmenter:  parser.NewSegmenter(dates, cfg.Join, log.WithField("component", "segmenter")),
		metrics:    deps.Metrics,
		log:        log.WithField("component", "pipeline"),
	}
}

// Option adjusts a single extraction.
type Option func(*options)

type options struct {
	template *models.StatementTemplate
}

// WithTemplate skips template matching and uses t as the layout hint.
func WithTemplate(t models.StatementTemplate) Option {
	return func(o *options) { o.template = &t }
}

// Classification is the per-page and document-level production method.
type Classification struct {
	Kind     models.PageKind
	Pages    []classifier.PageResult // in page order
	TimedOut bool
}

// Text joins the page texts read during classification, in page order.
func (c Classification) Text() string {
	parts := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		if t := p.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Classify classifies every page in parallel and takes the majority vote.
func (p *Pipeline) Classify(ctx context.Context, src models.Source) (Classification, error) {
	n := src.PageCount()
	if n < 1 {
		return Classification{}, errs.New(errs.KindFormat, errs.CodeNoPages, "document has no pages")
	}
	results := &collector[classifier.PageResult]{}
	timedOut := p.runPages(ctx, pageRange(n), func(ctx context.Context, page int) {
		res := p.classifier.Page(ctx, src, page)
		if res.Err != nil {
			p.metrics.PageFailed("classify")
		}
		results.add(res)
	})

	pages := results.close()
	sort.Slice(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	kinds := make([]models.PageKind, n)
	for i := range kinds {
		kinds[i] = models.PageImageBased
	}
	for _, r := range pages {
		kinds[r.Page-1] = r.Kind
		p.metrics.PageClassified(string(r.Kind))
	}
	return Classification{Kind: classifier.Vote(kinds), Pages: pages, TimedOut: timedOut}, nil
}

// ExtractTransactions runs the whole pipeline over src. The only errors are
// document-level ones; page failures degrade to fewer records and a
// timeout returns whatever finished in time. Classification and extraction
// each get their own deadline, so pages classified before a timeout are
// still extracted. Result.Empty reports that nothing valid was found.
func (p *Pipeline) ExtractTransactions(ctx context.Context, src models.Source, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()

	cctx, cancel := p.phaseContext(ctx)
	cls, err := p.Classify(cctx, src)
	cancel()
	if err != nil {
		p.metrics.DocumentDone(metrics.OutcomeFailed, 0, time.Since(start))
		return nil, err
	}
	text := cls.Text()
	res := &Result{Kind: cls.Kind, TimedOut: cls.TimedOut, Account: parser.ExtractAccount(text)}

	tmpl := o.template
	if tmpl != nil {
		res.Template = tmpl.Name
	} else if best, score, ok := p.matcher.Best(text); ok {
		tmpl = best
		res.Template, res.TemplateScore = best.Name, score
	}
	log := p.log.WithFields(logrus.Fields{"pages": src.PageCount(), "kind": cls.Kind, "template": res.Template})
	log.Info("document classified")

	kinds := make(map[int]models.PageKind, len(cls.Pages))
	classified := make([]int, 0, len(cls.Pages))
	for _, c := range cls.Pages {
		kinds[c.Page] = c.Kind
		classified = append(classified, c.Page)
	}

	ectx, cancel := p.phaseContext(ctx)
	defer cancel()
	outputs := &collector[pageOutput]{}
	if timedOut := p.runPages(ectx, classified, func(ctx context.Context, page int) {
		report, recs := p.extractPage(ctx, src, page, kinds[page], tmpl)
		outputs.add(pageOutput{report: report, records: recs})
	}); timedOut {
		res.TimedOut = true
	}

	var perPage [][]models.Located
	for _, out := range outputs.close() {
		res.Pages = append(res.Pages, out.report)
		perPage = append(perPage, out.records)
	}
	for page := 1; page <= src.PageCount(); page++ {
		if _, ok := kinds[page]; !ok {
			p.metrics.PageFailed("timeout")
			res.Pages = append(res.Pages, PageReport{Page: page, Error: "not classified before the deadline"})
		}
	}
	sort.Slice(res.Pages, func(i, j int) bool { return res.Pages[i].Page < res.Pages[j].Page })
	txns, dropped := sequencer.Merge(perPage...)
	res.Transactions = txns
	for _, d := range dropped {
		log.WithFields(logrus.Fields{"page": d.Page, "row": d.Row, "balance": models.FormatAmount(d.Balance)}).
			Debug("dropping later opening balance")
	}
	if len(dropped) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d later opening-balance row(s) dropped", len(dropped)))
	}

	for _, r := range res.Pages {
		if r.Error != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %s", r.Page, r.Error))
		}
	}
	if res.YearInferred() {
		res.Warnings = append(res.Warnings, "statement dates have no year; the current year was assumed")
	}
	outcome := metrics.OutcomeOK
	switch {
	case res.TimedOut:
		outcome = metrics.OutcomeTimedOut
		res.Warnings = append(res.Warnings, fmt.Sprintf("extraction timed out after %s; results are partial", p.cfg.Timeout))
	case res.Empty():
		outcome = metrics.OutcomeEmpty
	}
	p.metrics.DocumentDone(outcome, len(res.Transactions), time.Since(start))
	log.WithFields(logrus.Fields{
		"transactions": len(res.Transactions),
		"outcome":      outcome,
		"took":         time.Since(start).Round(time.Millisecond),
	}).Info("extraction finished")
	return res, nil
}

type pageOutput struct {
	report  PageReport
	records []models.Located
}

// extractPage never fails: errors and panics become a report entry and the
// page contributes no records.
func (p *Pipeline) extractPage(ctx context.Context, src models.Source, page int, kind models.PageKind, tmpl *models.StatementTemplate) (report PageReport, recs []models.Located) {
	report = PageReport{Page: page, Kind: kind}
	log := p.log.WithFields(logrus.Fields{"page": page, "kind": kind})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("page extraction panicked")
			p.metrics.PageFailed("panic")
			report.Error = fmt.Sprintf("internal error: %v", r)
			report.Records, recs = 0, nil
		}
	}()

	regions, err := p.locator.Locate(ctx, src, page, kind, tmpl)
	if err != nil {
		log.WithError(err).Warn("could not locate table, skipping page")
		p.metrics.PageFailed("locate")
		report.Error = err.Error()
		return report, nil
	}

	var strategies []string
	for _, region := range regions {
		strategies = append(strategies, region.Strategy)
		for _, rec := range p.segmenter.Records(region.Rows) {
			if why := parser.Check(rec.Transaction); why != parser.Accepted {
				log.WithFields(logrus.Fields{"row": rec.Row, "reason": why}).Debug("rejected record")
				report.Rejected++
				continue
			}
			recs = append(recs, rec)
		}
	}
	report.Strategy = strings.Join(strategies, ",")
	report.Records = len(recs)
	log.WithFields(logrus.Fields{"regions": len(regions), "records": len(recs)}).Debug("page extracted")
	return report, recs
}

// phaseContext bounds one phase of an extraction by the configured timeout.
func (p *Pipeline) phaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, p.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func pageRange(n int) []int {
	pages := make([]int, n)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// runPages calls fn for each page on the bounded worker pool and waits
// until they finish or ctx ends. It reports whether ctx ended first; fn
// calls still running at that point are abandoned.
func (p *Pipeline) runPages(ctx context.Context, pages []int, fn func(ctx context.Context, page int)) (timedOut bool) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	var skipped atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, page := range pages {
			page := page
			g.Go(func() error {
				if gctx.Err() != nil {
					skipped.Add(1)
					return nil
				}
				fn(gctx, page)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
		return skipped.Load() > 0
	case <-ctx.Done():
		p.log.WithError(ctx.Err()).Warn("stopped waiting for pages")
		return true
	}
}
