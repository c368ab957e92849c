package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/templates"
	"github.com/insightdelivered/statement-extractor/internal/testutil"
)

var header = []string{"Date", "Description", "Paid out", "Paid in", "Balance"}

const statementText = `Royal Bank of Scotland  Statement of Account  Your Account Summary
Opening balance  Date Description Paid out Paid in Balance  Page 1 of 2`

func textPage(rows ...[]string) testutil.Page {
	table := models.Table{header}
	table = append(table, rows...)
	return testutil.Page{
		Text:  statementText,
		Grids: map[models.GridStrategy][]models.Table{models.GridLattice: {table}},
	}
}

func twoPageStatement() *testutil.FakeSource {
	return testutil.NewFakeSource(
		textPage(
			[]string{"01 Apr 2024", "Opening balance", "", "", "1,000.00"},
			[]string{"02 Apr 2024", "Coffee", "3.50", "", "996.50"},
			[]string{"", "Page 1 of 2", "", "", ""},
		),
		textPage(
			[]string{"02 Apr 2024", "Coffee", "3.50", "", "996.50"},
			[]string{"05 Apr 2024", "Salary", "", "2,000.00", "2,996.50"},
			[]string{"", "ACME LTD", "", "", ""},
			[]string{"30 Apr 2024", "Closing balance", "", "", "2,996.50"},
		),
	)
}

func newTestPipeline(t *testing.T, cfg Config, ocr models.OCR) *Pipeline {
	t.Helper()
	logger, _ := test.NewNullLogger()
	lib, err := templates.Defaults()
	require.NoError(t, err)
	return New(cfg, Deps{
		OCR:       ocr,
		Templates: lib,
		Log:       logger,
		Now:       func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func TestExtractTransactions_DuplicateAcrossPages(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), nil)

	res, err := p.ExtractTransactions(context.Background(), twoPageStatement())
	require.NoError(t, err)
	require.False(t, res.Empty())

	assert.Equal(t, models.PageTextNative, res.Kind)
	assert.Equal(t, "RBS_Personal", res.Template)
	assert.False(t, res.TimedOut)
	assert.Empty(t, res.Warnings)

	require.Len(t, res.Transactions, 3)
	opening, coffee, salary := res.Transactions[0], res.Transactions[1], res.Transactions[2]

	assert.True(t, opening.Opening)
	assert.Equal(t, "1000.00", models.FormatAmount(opening.Balance))

	assert.Equal(t, "Coffee", coffee.Description)
	assert.Equal(t, "2024-04-02", coffee.Date.String())
	assert.Equal(t, "3.50", models.FormatAmount(coffee.Withdrawal))

	assert.Equal(t, "Salary\nACME LTD", salary.Description)
	assert.Equal(t, "2000.00", models.FormatAmount(salary.Deposit))
	assert.Equal(t, "2996.50", models.FormatAmount(salary.Balance))

	require.Len(t, res.Pages, 2)
	assert.Equal(t, 2, res.Pages[0].Records)
	assert.Equal(t, 2, res.Pages[1].Records)
}

func TestExtractTransactions_LaterOpeningBalanceWarns(t *testing.T) {
	src := testutil.NewFakeSource(
		textPage(
			[]string{"01 Apr 2024", "Opening balance", "", "", "1,000.00"},
			[]string{"02 Apr 2024", "Coffee", "3.50", "", "996.50"},
		),
		textPage(
			[]string{"01 May 2024", "Opening balance", "", "", "996.50"},
			[]string{"05 May 2024", "Salary", "", "2,000.00", "2,996.50"},
		),
	)

	res, err := newTestPipeline(t, DefaultConfig(), nil).ExtractTransactions(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)
	assert.Equal(t, "1000.00", models.FormatAmount(res.Transactions[0].Balance))
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "1 later opening-balance row(s) dropped")
}

func TestExtractTransactions_DeterministicAcrossWorkerCounts(t *testing.T) {
	serial := DefaultConfig()
	serial.Workers = 1
	parallel := DefaultConfig()
	parallel.Workers = 8

	want, err := newTestPipeline(t, serial, nil).ExtractTransactions(context.Background(), twoPageStatement())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		got, err := newTestPipeline(t, parallel, nil).ExtractTransactions(context.Background(), twoPageStatement())
		require.NoError(t, err)
		assert.Equal(t, want.Transactions, got.Transactions)
	}
}

func TestExtractTransactions_NoPages(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), nil)
	_, err := p.ExtractTransactions(context.Background(), testutil.NewFakeSource())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CodeNoPages))
}

func TestExtractTransactions_EmptyResult(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), nil)
	src := testutil.NewFakeSource(testutil.Page{Text: strings.Repeat("marketing copy ", 10)})

	res, err := p.ExtractTransactions(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestExtractTransactions_FailingPageDegrades(t *testing.T) {
	good := textPage([]string{"02 Apr 2024", "Coffee", "3.50", "", "996.50"})
	src := testutil.NewFakeSource(good, testutil.Page{Panic: true})

	res, err := newTestPipeline(t, DefaultConfig(), nil).ExtractTransactions(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Coffee", res.Transactions[0].Description)
	require.Len(t, res.Pages, 2)
	assert.NotEmpty(t, res.Pages[1].Error)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtractTransactions_ScannedPage(t *testing.T) {
	words := testutil.Line(0.10, 0.02, "Date", 0.17, "Description", 0.62, "Paid out", 0.77, "Paid in", 0.91, "Balance")
	words = append(words, testutil.Line(0.15, 0.02, "26 APR", 0.17, "DIRECT DEBIT GYM", 0.62, "30.00", 0.91, "70.00")...)
	src := testutil.NewFakeSource(testutil.Page{OCRWords: words})

	res, err := newTestPipeline(t, DefaultConfig(), &testutil.FakeOCR{Source: src}).ExtractTransactions(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, models.PageImageBased, res.Kind)
	require.Len(t, res.Transactions, 1)

	txn := res.Transactions[0]
	assert.Equal(t, "DIRECT DEBIT GYM", txn.Description)
	assert.Equal(t, "30.00", models.FormatAmount(txn.Withdrawal))
	assert.Equal(t, models.Date{Day: 26, Month: 4, Year: 2025, YearInferred: true}, txn.Date)
	assert.True(t, res.YearInferred())
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "no year")
}

func TestExtractTransactions_TimeoutReturnsPartialResult(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	src := testutil.NewFakeSource(
		textPage([]string{"02 Apr 2024", "Coffee", "3.50", "", "996.50"}),
		testutil.Page{Text: statementText, Delay: 2 * time.Second},
	)

	start := time.Now()
	res, err := newTestPipeline(t, cfg, nil).ExtractTransactions(context.Background(), src)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, res.TimedOut)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "timed out")

	require.Len(t, res.Transactions, 1, "the page classified in time is still extracted")
	assert.Equal(t, "Coffee", res.Transactions[0].Description)
	assert.Equal(t, "3.50", models.FormatAmount(res.Transactions[0].Withdrawal))

	require.Len(t, res.Pages, 2)
	assert.Equal(t, 1, res.Pages[0].Records)
	assert.Equal(t, 2, res.Pages[1].Page)
	assert.NotEmpty(t, res.Pages[1].Error)
}

func TestExtractTransactions_ForcedTemplate(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), nil)
	forced := models.StatementTemplate{Name: "Custom", Patterns: map[string][]string{"header": {"nothing"}}}

	res, err := p.ExtractTransactions(context.Background(), twoPageStatement(), WithTemplate(forced))
	require.NoError(t, err)
	assert.Equal(t, "Custom", res.Template)
	assert.Zero(t, res.TemplateScore)
}

func TestCollector_DropsWritesAfterClose(t *testing.T) {
	c := &collector[int]{}
	assert.True(t, c.add(1, 2))
	got := c.close()
	assert.False(t, c.add(3))
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, []int{1, 2}, c.close())
}
