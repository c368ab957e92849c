package parser

import (
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Rejection says why a record failed the validity gate. "" means valid.
type Rejection string

const (
	Accepted          Rejection = ""
	RejectNoDate      Rejection = "no date"
	RejectEmpty       Rejection = "no description or amounts"
	RejectBoilerplate Rejection = "boilerplate description"
)

// Check applies the validity gate to a record before it enters the output.
func Check(t models.Transaction) Rejection {
	if t.Date.IsZero() {
		return RejectNoDate
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" && !t.Withdrawal.Valid && !t.Deposit.Valid && !t.Balance.Valid {
		return RejectEmpty
	}
	if !t.Opening && IsBoilerplate(desc) {
		return RejectBoilerplate
	}
	return Accepted
}

// Valid is Check(t) == Accepted.
func Valid(t models.Transaction) bool {
	return Check(t) == Accepted
}
