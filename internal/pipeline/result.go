package pipeline

import (
	"github.com/insightdelivered/statement-extractor/internal/models"
)

// PageReport describes what happened to one page.
type PageReport struct {
	Page     int             `json:"page"`
	Kind     models.PageKind `json:"kind"`
	Strategy string          `json:"strategy,omitempty"`
	Records  int             `json:"records"`
	Rejected int             `json:"rejected,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Result is the outcome of one extraction. Transactions are deduplicated
// and in document order, opening balance first.
type Result struct {
	Transactions  []models.Transaction `json:"transactions"`
	Kind          models.PageKind      `json:"kind"`
	Account       models.AccountInfo   `json:"account"`
	Template      string               `json:"template,omitempty"`
	TemplateScore float64              `json:"templateScore,omitempty"`
	Pages         []PageReport         `json:"pages"`
	Warnings      []string             `json:"warnings,omitempty"`
	TimedOut      bool                 `json:"timedOut,omitempty"`
}

// Empty reports that no valid transaction could be extracted after every
// strategy was tried.
func (r *Result) Empty() bool {
	return r == nil || len(r.Transactions) == 0
}

// YearInferred reports whether any date took its year from the clock.
func (r *Result) YearInferred() bool {
	for _, t := range r.Transactions {
		if t.Date.YearInferred {
			return true
		}
	}
	return false
}
