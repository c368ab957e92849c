package writer

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	// IncludeHeader adds "# key,value" metadata rows before the column headers.
	IncludeHeader bool
}

func (w *CSVWriter) ContentType() string { return "text/csv" }
func (w *CSVWriter) Extension() string   { return ".csv" }

// Write writes transactions in CSV format to the given writer. Descriptions
// keep their embedded newlines; encoding/csv quotes them.
func (w *CSVWriter) Write(out io.Writer, meta Meta, txns []models.Transaction) error {
	cw := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, kv := range [][2]string{
			{"# Source", meta.Source},
			{"# Template", meta.Template},
			{"# Kind", meta.Kind},
			{"# Account Holder", meta.Account.Holder},
			{"# Account Number", meta.Account.Number},
			{"# Sort Code", meta.Account.SortCode},
			{"# Statement Period", meta.Account.Period},
		} {
			if kv[1] == "" {
				continue
			}
			if err := cw.Write(kv[:]); err != nil {
				return errors.Wrap(err, "write CSV metadata")
			}
		}
	}

	if err := cw.Write(Columns); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	for _, txn := range txns {
		if err := cw.Write(row(txn)); err != nil {
			return errors.Wrap(err, "write CSV row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush CSV")
}
