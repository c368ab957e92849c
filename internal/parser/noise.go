package parser

import (
	"regexp"
	"strings"
)

// Marker classifies a row that is structure rather than a transaction.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerHeader
	MarkerFooter
	MarkerBoilerplate
	MarkerOpening
)

func (m Marker) String() string {
	switch m {
	case MarkerHeader:
		return "header"
	case MarkerFooter:
		return "footer"
	case MarkerBoilerplate:
		return "boilerplate"
	case MarkerOpening:
		return "opening"
	default:
		return "none"
	}
}

// HeaderSynonyms maps column-header vocabulary to logical column names.
// Keys are lower case with punctuation stripped.
var HeaderSynonyms = map[string]string{
	"date":        "date",
	"posted":      "date",
	"posting":     "date",
	"description": "description",
	"details":     "description",
	"transaction": "description",
	"particulars": "description",
	"narrative":   "description",
	"payee":       "description",
	"withdrawal":  "withdrawal",
	"withdrawals": "withdrawal",
	"debit":       "withdrawal",
	"debits":      "withdrawal",
	"paid out":    "withdrawal",
	"money out":   "withdrawal",
	"out":         "withdrawal",
	"deposit":     "deposit",
	"deposits":    "deposit",
	"credit":      "deposit",
	"credits":     "deposit",
	"paid in":     "deposit",
	"money in":    "deposit",
	"in":          "deposit",
	"amount":      "amount",
	"balance":     "balance",
}

// NormalizeHeaderWord lower-cases w and strips punctuation such as "($)".
func NormalizeHeaderWord(w string) string {
	w = strings.ToLower(strings.TrimSpace(w))
	w = headerPunct.ReplaceAllString(w, "")
	return strings.Join(strings.Fields(w), " ")
}

var headerPunct = regexp.MustCompile(`[^a-z ]+`)

// HeaderColumn returns the logical column a header cell names, or "".
// Bare "in"/"out" only count inside their two-word forms ("paid in").
func HeaderColumn(cell string) string {
	norm := NormalizeHeaderWord(cell)
	if norm == "" {
		return ""
	}
	if col, ok := HeaderSynonyms[norm]; ok && norm != "in" && norm != "out" {
		return col
	}
	for _, w := range strings.Fields(norm) {
		if w == "in" || w == "out" {
			continue
		}
		if col, ok := HeaderSynonyms[w]; ok {
			return col
		}
	}
	return ""
}

var (
	openingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bopening\s+balance\b`),
		regexp.MustCompile(`(?i)\bstart(?:ing)?\s+balance\b`),
	}

	boilerplatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bclosing\s+balance\b`),
		regexp.MustCompile(`(?i)\bend\s+balance\b`),
		regexp.MustCompile(`(?i)\bbrought\s+forward\b`),
		regexp.MustCompile(`(?i)\bcarried\s+forward\b`),
		regexp.MustCompile(`(?i)\bbalance\s+[bc]/f\b`),
		regexp.MustCompile(`(?i)^\s*(?:sub)?totals?\b[\s:£$€\d.,()-]*$`),
		regexp.MustCompile(`(?i)\btotal\s+(?:payments|receipts|withdrawals|deposits|debits|credits|paid\s+(?:in|out))\b`),
	}

	footerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpage\s+\d+\s+of\s+\d+\b`),
		regexp.MustCompile(`(?i)^\s*page\s+\d+\s*$`),
		regexp.MustCompile(`(?i)\bcontinued\s+(?:on|over(?:leaf)?)\b`),
		regexp.MustCompile(`(?i)\bend\s+of\s+statement\b`),
		regexp.MustCompile(`(?i)\bstatement\s+period\b`),
	}

	headerPhrases = []string{"transaction details"}
)

// Classify decides whether a row is a structural marker.
func Classify(cells []string) Marker {
	text := strings.TrimSpace(strings.Join(cells, " "))
	if text == "" {
		return MarkerNone
	}
	if isHeaderRow(cells, text) {
		return MarkerHeader
	}
	if matchesAny(openingPatterns, text) {
		return MarkerOpening
	}
	if matchesAny(boilerplatePatterns, text) {
		return MarkerBoilerplate
	}
	if matchesAny(footerPatterns, text) {
		return MarkerFooter
	}
	return MarkerNone
}

// IsBoilerplate reports whether a description is a structural artifact
// (closing balance, brought/carried forward, totals).
func IsBoilerplate(description string) bool {
	return matchesAny(boilerplatePatterns, description)
}

// IsOpening reports whether text labels an opening balance.
func IsOpening(text string) bool {
	return matchesAny(openingPatterns, text)
}

// isHeaderRow needs two distinct header columns, a known header phrase, or a
// lone label cell, so a single "Fee" or "Transfer" description is not
// mistaken for a header. Rows carrying a date or an amount never are.
func isHeaderRow(cells []string, text string) bool {
	if carriesValues(cells) {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range headerPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	// A lone section label such as "Withdrawals".
	if label, ok := loneCell(cells); ok && !strings.ContainsAny(label, "0123456789") {
		if norm := NormalizeHeaderWord(label); len(norm) > 3 {
			if _, ok := HeaderSynonyms[norm]; ok {
				return true
			}
		}
	}
	seen := make(map[string]bool)
	for _, c := range cells {
		norm := NormalizeHeaderWord(c)
		if col, ok := HeaderSynonyms[norm]; ok && norm != "in" && norm != "out" {
			seen[col] = true
		}
	}
	return len(seen) >= 2
}

// markerDates only answers "is this a date"; the year is irrelevant.
var markerDates = NewDateParser()

func carriesValues(cells []string) bool {
	for _, c := range cells {
		if _, ok := ParseAmount(c); ok {
			return true
		}
		if _, ok := markerDates.Parse(c); ok {
			return true
		}
	}
	return false
}

// loneCell returns the only non-empty cell of a row.
func loneCell(cells []string) (string, bool) {
	var found string
	n := 0
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			found = c
			n++
		}
	}
	return found, n == 1
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
