package extractor

import (
	"strings"
	"unicode"
)

// minReadableRatio is the share of plain characters a text layer needs
// before it is trusted.
const minReadableRatio = 0.6

// textQuality returns the ratio of plain ASCII letters, digits, whitespace
// and common punctuation to all characters, 0.0-1.0. unicode.IsLetter is too
// broad: identity-encoded fonts decode to accented garbage that it accepts.
func textQuality(text string) float64 {
	total, readable := 0, 0
	for _, r := range text {
		total++
		if isPlain(r) {
			readable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func isPlain(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	}
	return strings.ContainsRune(`.,-/:;()'"£$€%&@#!?+=*`, r)
}

// statementWords appear in virtually every bank statement page.
var statementWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "sort code",
	"money", "paid", "opening", "closing", "transfer", "direct",
	"number", "page", "period",
}

func containsStatementWords(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range statementWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsReadable reports whether a page's extracted text is real content rather
// than undecodable glyph codes. The statement-word check is applied to the
// document as a whole, not here.
func IsReadable(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return textQuality(text) > minReadableRatio
}
