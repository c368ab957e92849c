// Package writer renders extracted transactions as CSV, XLSX or JSON.
package writer

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Format names an output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Columns is the header row shared by the tabular formats.
var Columns = []string{"Date", "Transaction Details", "Withdrawals", "Deposits", "Balance"}

// Meta describes where the transactions came from. Writers that support
// metadata emit the non-empty fields.
type Meta struct {
	Source   string `json:"source,omitempty"`
	Template string `json:"template,omitempty"`
	Kind     string `json:"kind,omitempty"`

	Account models.AccountInfo `json:"account"`
}

// Writer renders a transaction list.
type Writer interface {
	Write(out io.Writer, meta Meta, txns []models.Transaction) error
	ContentType() string
	Extension() string
}

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", errors.Errorf("unsupported output format %q", name)
}

// New returns the writer for format.
func New(format Format) (Writer, error) {
	switch format {
	case FormatCSV:
		return &CSVWriter{}, nil
	case FormatXLSX:
		return &XLSXWriter{}, nil
	case FormatJSON:
		return &JSONWriter{Indent: true}, nil
	}
	return nil, errors.Errorf("unsupported output format %q", format)
}

// WriteToFile writes transactions to a file at path.
func WriteToFile(w Writer, path string, meta Meta, txns []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create output file %q", path)
	}
	if err := w.Write(f, meta, txns); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close output file %q", path)
}

// row renders a transaction as cell strings in Columns order.
func row(txn models.Transaction) []string {
	return []string{
		txn.Date.String(),
		txn.Description,
		models.FormatAmount(txn.Withdrawal),
		models.FormatAmount(txn.Deposit),
		models.FormatAmount(txn.Balance),
	}
}
