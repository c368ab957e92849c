package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Date is a calendar day parsed from a statement. Year is always set; when the
// statement omitted it, YearInferred is true and Year is the processing year.
type Date struct {
	Day          int  `json:"day"`
	Month        int  `json:"month"`
	Year         int  `json:"year"`
	YearInferred bool `json:"yearInferred,omitempty"`
}

// IsZero reports whether the date was never set.
func (d Date) IsZero() bool {
	return d.Day == 0 && d.Month == 0 && d.Year == 0
}

// String renders the normalized YYYY-MM-DD form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText lets Date serialize as its normalized string.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Transaction represents a single bank statement transaction.
type Transaction struct {
	Date        Date                `json:"date"`
	Description string              `json:"description"`
	Withdrawal  decimal.NullDecimal `json:"withdrawal"` // positive magnitude
	Deposit     decimal.NullDecimal `json:"deposit"`    // positive magnitude
	Balance     decimal.NullDecimal `json:"balance"`    // signed
	Opening     bool                `json:"opening,omitempty"`
}

// Located is a Transaction with the page/row it came from. Provenance only
// drives final ordering and never leaves the pipeline.
type Located struct {
	Transaction
	Page int
	Row  int
}

// FormatAmount renders an optional amount in canonical form, "" when absent.
func FormatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return CanonicalAmount(d.Decimal)
}

// CanonicalAmount renders d with at least two decimal places.
func CanonicalAmount(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}
