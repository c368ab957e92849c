package parser

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// JoinStyle controls how wrapped description lines are joined.
type JoinStyle string

const (
	JoinNewline JoinStyle = "newline"
	JoinSpace   JoinStyle = "space"
)

func (j JoinStyle) separator() string {
	if j == JoinSpace {
		return " "
	}
	return "\n"
}

// Buffer is the group of raw rows that make up one logical transaction.
type Buffer struct {
	Rows    []models.RawRow
	Opening bool
}

// Segmenter groups raw rows into transaction buffers and reduces them to
// records. It holds no state between calls and is safe for concurrent use.
type Segmenter struct {
	Dates *DateParser
	Join  JoinStyle
	Log   logrus.FieldLogger
}

// NewSegmenter returns a Segmenter with the given date parser and join style.
func NewSegmenter(dates *DateParser, join JoinStyle, log logrus.FieldLogger) *Segmenter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Segmenter{Dates: dates, Join: join, Log: log}
}

// Segment walks rows in order and returns one buffer per logical transaction.
// A dated row opens a buffer; undated rows with content continue it; marker
// rows close it and are dropped, except an opening-balance row, which opens
// its own buffer.
func (s *Segmenter) Segment(rows []models.RawRow) []Buffer {
	var (
		buffers []Buffer
		current *Buffer
	)
	flush := func() {
		if current != nil {
			buffers = append(buffers, *current)
			current = nil
		}
	}

	for _, row := range rows {
		switch Classify(row.Cells[:]) {
		case MarkerOpening:
			flush()
			current = &Buffer{Rows: []models.RawRow{row}, Opening: true}
			continue
		case MarkerHeader, MarkerFooter, MarkerBoilerplate:
			flush()
			continue
		}

		if _, ok := s.Dates.Parse(row.Cells[models.ColDate]); ok {
			flush()
			current = &Buffer{Rows: []models.RawRow{row}}
			continue
		}

		if !hasBodyContent(row) {
			continue
		}
		if current == nil {
			s.Log.WithFields(logrus.Fields{"page": row.Page, "row": row.Index}).Debug("dropping orphan row before first transaction")
			continue
		}
		current.Rows = append(current.Rows, row)
	}
	flush()
	return buffers
}

// Reduce turns a buffer into a record. The date comes from the first row,
// description lines are joined in order, and each amount is taken from the
// first row that supplies a parseable value for it.
func (s *Segmenter) Reduce(b Buffer) models.Located {
	first := b.Rows[0]
	rec := models.Located{Page: first.Page, Row: first.Index}
	rec.Opening = b.Opening

	if d, ok := s.Dates.Parse(first.Cells[models.ColDate]); ok {
		rec.Date = d
	}

	var lines []string
	for _, row := range b.Rows {
		if desc := strings.TrimSpace(row.Cells[models.ColDescription]); desc != "" {
			lines = append(lines, desc)
		}
		if !rec.Withdrawal.Valid {
			if d, ok := ParseAmount(row.Cells[models.ColWithdrawal]); ok {
				rec.Withdrawal.Decimal, rec.Withdrawal.Valid = d.Abs(), true
			}
		}
		if !rec.Deposit.Valid {
			if d, ok := ParseAmount(row.Cells[models.ColDeposit]); ok {
				rec.Deposit.Decimal, rec.Deposit.Valid = d.Abs(), true
			}
		}
		if !rec.Balance.Valid {
			rec.Balance = ParseOptionalAmount(row.Cells[models.ColBalance])
		}
	}
	rec.Description = strings.Join(lines, s.Join.separator())
	return rec
}

// Records segments rows and reduces every buffer. An opening-balance record
// without a date of its own takes the date of the next dated record.
func (s *Segmenter) Records(rows []models.RawRow) []models.Located {
	buffers := s.Segment(rows)
	out := make([]models.Located, 0, len(buffers))
	for _, b := range buffers {
		out = append(out, s.Reduce(b))
	}
	for i := range out {
		if !out[i].Opening || !out[i].Date.IsZero() {
			continue
		}
		for j := i + 1; j < len(out); j++ {
			if !out[j].Date.IsZero() {
				out[i].Date = out[j].Date
				break
			}
		}
	}
	return out
}

func hasBodyContent(row models.RawRow) bool {
	for _, col := range []int{models.ColDescription, models.ColWithdrawal, models.ColDeposit, models.ColBalance} {
		if strings.TrimSpace(row.Cells[col]) != "" {
			return true
		}
	}
	return false
}
