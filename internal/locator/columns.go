package locator

import (
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/parser"
)

// target is where a physical column's text goes: a logical column index,
// the signed single-amount column, or nowhere.
type target int

const (
	skip         target = -1
	signedAmount target = models.NumColumns
)

// targetFor maps a logical name or any header synonym ("withdrawals",
// "Money in", "amount") to a target.
func targetFor(name string) target {
	col := parser.HeaderColumn(name)
	if col == "amount" {
		return signedAmount
	}
	for i, n := range models.ColumnNames {
		if n == col {
			return target(i)
		}
	}
	return skip
}

// positionalTargets assigns columns by position when a table has no header:
// date, description, then withdrawal, deposit and balance from the right.
// Extra middle columns belong to the description. Four columns are read as
// date, description, signed amount, balance.
func positionalTargets(n int) []target {
	switch {
	case n >= 5:
		out := make([]target, n)
		out[0] = models.ColDate
		for i := 1; i < n-3; i++ {
			out[i] = models.ColDescription
		}
		out[n-3] = models.ColWithdrawal
		out[n-2] = models.ColDeposit
		out[n-1] = models.ColBalance
		return out
	case n == 4:
		return []target{models.ColDate, models.ColDescription, signedAmount, models.ColBalance}
	case n == 3:
		return []target{models.ColDate, models.ColDescription, signedAmount}
	case n == 2:
		return []target{models.ColDate, models.ColDescription}
	default:
		return []target{models.ColDescription}
	}
}

// rowBuilder collects cell text per logical column.
type rowBuilder struct {
	parts [models.NumColumns][]string
}

func (b *rowBuilder) put(t target, text string) {
	text = clean(text)
	if text == "" || t == skip {
		return
	}
	if t == signedAmount {
		t = models.ColDeposit
		if d, ok := parser.ParseAmount(text); ok && d.IsNegative() {
			t = models.ColWithdrawal
		}
	}
	b.parts[t] = append(b.parts[t], text)
}

func (b *rowBuilder) row(page, index int) models.RawRow {
	r := models.RawRow{Page: page, Index: index}
	for i, p := range b.parts {
		r.Cells[i] = strings.Join(p, " ")
	}
	return r
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
