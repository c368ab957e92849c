package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// Tesseract often reads the decimal point as ';' or ':'.
	ocrSemicolonPoint = regexp.MustCompile(`(\d);(\s*)(\d)`)
	ocrColonPoint     = regexp.MustCompile(`(\d):(\d)`)
	ocrTrailingColon  = regexp.MustCompile(`(\d):(\s|$)`)

	currencyCode = regexp.MustCompile(`^(?:GBP|USD|EUR|AUD|NZD|CAD|INR|ZAR)\s*|\s*(?:GBP|USD|EUR|AUD|NZD|CAD|INR|ZAR)$`)
	drcrSuffix   = regexp.MustCompile(`\s*(CR|DR)\.?$`)
	plainNumber  = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)$`)
)

var currencySymbols = []string{"£", "$", "€", "¥", "₹", "\u00a0", "\u2009"}

// ParseAmount normalizes a monetary string. Parenthesized amounts and a "DR"
// suffix negate, "CR" forces positive. Anything that does not clean down to a
// plain decimal is reported as absent; ParseAmount never fails.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(SanitizeOCRAmount(s))
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.ToUpper(s)

	negate, forcePositive := false, false
	if m := drcrSuffix.FindStringSubmatch(s); m != nil {
		if m[1] == "DR" {
			negate = true
		} else {
			forcePositive = true
		}
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negate = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = currencyCode.ReplaceAllString(s, "")
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	// "-£12.00" loses its symbol above; a trailing minus ("12.00-") also negates.
	if strings.HasSuffix(s, "-") && !strings.HasPrefix(s, "-") {
		negate = true
		s = strings.TrimSuffix(s, "-")
	}

	if !plainNumber.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}

	switch {
	case forcePositive:
		d = d.Abs()
	case negate:
		d = d.Abs().Neg()
	}
	return d, true
}

// ParseOptionalAmount wraps ParseAmount for the nullable record fields.
func ParseOptionalAmount(s string) decimal.NullDecimal {
	d, ok := ParseAmount(s)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}

// SanitizeOCRAmount fixes common OCR misreads in amount strings, e.g.
// "19,720; 15" → "19,720.15" and "1,234:56" → "1,234.56".
func SanitizeOCRAmount(s string) string {
	s = ocrSemicolonPoint.ReplaceAllString(s, "$1.$3")
	s = ocrColonPoint.ReplaceAllString(s, "$1.$2")
	s = ocrTrailingColon.ReplaceAllString(s, "$1$2")
	return s
}
