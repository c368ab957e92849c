package parser

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

func rows(page int, cells ...[5]string) []models.RawRow {
	out := make([]models.RawRow, len(cells))
	for i, c := range cells {
		out[i] = models.RawRow{Page: page, Index: i, Cells: c}
	}
	return out
}

func newTestSegmenter(join JoinStyle) *Segmenter {
	logger, _ := test.NewNullLogger()
	return NewSegmenter(&DateParser{Now: fixedClock(2024)}, join, logger)
}

func TestSegmenter_ContinuationRow(t *testing.T) {
	s := newTestSegmenter(JoinNewline)
	in := rows(1,
		[5]string{"26 APR", "Fee", "", "", "100.00"},
		[5]string{"", "continued note", "", "", ""},
	)

	buffers := s.Segment(in)
	require.Len(t, buffers, 1)
	assert.Len(t, buffers[0].Rows, 2)

	rec := s.Reduce(buffers[0])
	assert.Contains(t, rec.Description, "Fee")
	assert.Contains(t, rec.Description, "continued note")
	assert.Equal(t, "Fee\ncontinued note", rec.Description)
	assert.Equal(t, "100.00", models.FormatAmount(rec.Balance))
	assert.Equal(t, models.Date{Day: 26, Month: 4, Year: 2024, YearInferred: true}, rec.Date)
}

func TestSegmenter_FirstWriterWinsPerField(t *testing.T) {
	s := newTestSegmenter(JoinSpace)
	in := rows(2,
		[5]string{"01/05/2024", "CARD PAYMENT TO", "", "", ""},
		[5]string{"", "TESCO STORES", "25.99", "", "abc"},
		[5]string{"", "REF 2602", "99.99", "", "1,234.56"},
		[5]string{"", "", "", "", "9.99"},
	)

	buffers := s.Segment(in)
	require.Len(t, buffers, 1)
	rec := s.Reduce(buffers[0])

	assert.Equal(t, "CARD PAYMENT TO TESCO STORES REF 2602", rec.Description)
	assert.Equal(t, "25.99", models.FormatAmount(rec.Withdrawal))
	assert.False(t, rec.Deposit.Valid)
	assert.Equal(t, "1234.56", models.FormatAmount(rec.Balance))
	assert.Equal(t, 2, rec.Page)
	assert.Equal(t, 0, rec.Row)
}

func TestSegmenter_MarkersAndOrphans(t *testing.T) {
	s := newTestSegmenter(JoinSpace)
	in := rows(1,
		[5]string{"", "orphan before any transaction", "", "", ""},
		[5]string{"Date", "Transaction Details", "Withdrawals ($)", "Deposits ($)", "Balance ($)"},
		[5]string{"01 APR", "OPENING BALANCE", "", "", "1,000.00"},
		[5]string{"02 APR", "Salary", "", "2,000.00", "3,000.00"},
		[5]string{"", "ACME LTD", "", "", ""},
		[5]string{"", "Page 1 of 2", "", "", ""},
		[5]string{"", "spill after footer", "", "", ""},
		[5]string{"03 APR", "Rent", "(1,500.00)", "", "1,500.00"},
		[5]string{"", "TOTALS", "1,500.00", "2,000.00", ""},
		[5]string{"30 APR", "CLOSING BALANCE", "", "", "1,500.00"},
	)

	buffers := s.Segment(in)
	require.Len(t, buffers, 3)

	assert.True(t, buffers[0].Opening)
	assert.Len(t, buffers[0].Rows, 1)

	assert.False(t, buffers[1].Opening)
	assert.Len(t, buffers[1].Rows, 2, "salary plus its wrapped payer line; footer closes the buffer")

	rent := s.Reduce(buffers[2])
	assert.Equal(t, "Rent", rent.Description)
	assert.Equal(t, "1500.00", models.FormatAmount(rent.Withdrawal), "withdrawals are magnitudes")
}

func TestSegmenter_UndatedLineWithOnlyDateCellIsDropped(t *testing.T) {
	s := newTestSegmenter(JoinSpace)
	in := rows(1,
		[5]string{"26 APR", "Fee", "5.00", "", ""},
		[5]string{"garbled", "", "", "", ""},
	)
	buffers := s.Segment(in)
	require.Len(t, buffers, 1)
	assert.Len(t, buffers[0].Rows, 1)
}

func TestSegmenter_RecordsBackfillsOpeningDate(t *testing.T) {
	s := newTestSegmenter(JoinSpace)
	in := rows(1,
		[5]string{"", "Opening balance", "", "", "500.00"},
		[5]string{"05 MAY", "Coffee", "3.50", "", "496.50"},
	)

	recs := s.Records(in)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Opening)
	assert.Equal(t, recs[1].Date, recs[0].Date)
	assert.Equal(t, "500.00", models.FormatAmount(recs[0].Balance))
}

func TestSegmenter_EmptyInput(t *testing.T) {
	s := NewSegmenter(NewDateParser(), JoinNewline, logrus.New())
	assert.Empty(t, s.Segment(nil))
	assert.Empty(t, s.Records(nil))
}

func TestSegmenter_LabelWordsInTransactionRows(t *testing.T) {
	s := newTestSegmenter(JoinSpace)
	in := rows(1,
		[5]string{"02/05/2024", "Deposit", "", "50.00", "150.00"},
		[5]string{"03/05/2024", "DIRECT", "", "", ""},
		[5]string{"", "DEBIT", "30.00", "", "120.00"},
	)

	recs := s.Records(in)
	require.Len(t, recs, 2)

	assert.Equal(t, "Deposit", recs[0].Description)
	assert.Equal(t, "50.00", models.FormatAmount(recs[0].Deposit))
	assert.Equal(t, "150.00", models.FormatAmount(recs[0].Balance))

	assert.Equal(t, "DIRECT DEBIT", recs[1].Description)
	assert.Equal(t, "30.00", models.FormatAmount(recs[1].Withdrawal))
	assert.Equal(t, "120.00", models.FormatAmount(recs[1].Balance))
}

func TestSegmenter_SectionLabelClosesBuffer(t *testing.T) {
	s := newTestSegmenter(JoinSpace)
	in := rows(1,
		[5]string{"02/05/2024", "Salary", "", "50.00", "150.00"},
		[5]string{"", "Withdrawals", "", "", ""},
		[5]string{"", "stray note", "", "", ""},
	)

	recs := s.Records(in)
	require.Len(t, recs, 1)
	assert.Equal(t, "Salary", recs[0].Description)
}
