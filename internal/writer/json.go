package writer

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// JSONWriter writes {"meta": ..., "transactions": [...]} with amounts as
// canonical strings and dates as YYYY-MM-DD.
type JSONWriter struct {
	Indent bool
}

func (w *JSONWriter) ContentType() string { return "application/json" }
func (w *JSONWriter) Extension() string   { return ".json" }

// Record is the JSON shape of one transaction.
type Record struct {
	Date         string `json:"date"`
	YearInferred bool   `json:"yearInferred,omitempty"`
	Description  string `json:"description"`
	Withdrawal   string `json:"withdrawal,omitempty"`
	Deposit      string `json:"deposit,omitempty"`
	Balance      string `json:"balance,omitempty"`
	Opening      bool   `json:"opening,omitempty"`
}

// Records converts transactions to their JSON shape.
func Records(txns []models.Transaction) []Record {
	out := make([]Record, 0, len(txns))
	for _, txn := range txns {
		out = append(out, Record{
			Date:         txn.Date.String(),
			YearInferred: txn.Date.YearInferred,
			Description:  txn.Description,
			Withdrawal:   models.FormatAmount(txn.Withdrawal),
			Deposit:      models.FormatAmount(txn.Deposit),
			Balance:      models.FormatAmount(txn.Balance),
			Opening:      txn.Opening,
		})
	}
	return out
}

func (w *JSONWriter) Write(out io.Writer, meta Meta, txns []models.Transaction) error {
	enc := json.NewEncoder(out)
	if w.Indent {
		enc.SetIndent("", "  ")
	}
	doc := struct {
		Meta         Meta     `json:"meta"`
		Transactions []Record `json:"transactions"`
	}{meta, Records(txns)}
	return errors.Wrap(enc.Encode(doc), "write JSON")
}
