package writer

import (
	"io"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// SheetName is the worksheet transactions are written to.
const SheetName = "Transactions"

// XLSXWriter writes a single-sheet workbook. Amounts are numeric cells and
// dates are ISO strings; no styling is applied.
type XLSXWriter struct{}

func (w *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (w *XLSXWriter) Extension() string { return ".xlsx" }

func (w *XLSXWriter) Write(out io.Writer, meta Meta, txns []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "name sheet")
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "write XLSX header")
	}

	for i, txn := range txns {
		cells := []interface{}{
			txn.Date.String(),
			txn.Description,
			cellAmount(txn.Withdrawal),
			cellAmount(txn.Deposit),
			cellAmount(txn.Balance),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return errors.Wrapf(err, "write XLSX row %d", i+2)
		}
	}

	if meta.Source != "" || meta.Template != "" {
		err := f.SetDocProps(&excelize.DocProperties{
			Title:       meta.Source,
			Description: meta.Template,
		})
		if err != nil {
			return errors.Wrap(err, "set XLSX properties")
		}
	}

	_, err := f.WriteTo(out)
	return errors.Wrap(err, "write XLSX")
}

// cellAmount returns a float for present amounts and nil for absent ones, so
// blank stays blank rather than zero.
func cellAmount(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
