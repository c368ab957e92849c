package parser

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

var (
	// UK account numbers are 8 digits; sort codes are XX-XX-XX.
	accountNumberPattern = regexp.MustCompile(`\b(\d{8})\b`)
	sortCodePattern      = regexp.MustCompile(`\b(\d{2}-\d{2}-\d{2})\b`)

	periodDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4}\b`),
	}

	holderLabels = []string{"Account holder", "Account name", "Name:", "Mr ", "Mrs ", "Ms ", "Miss "}
	numberLabels = []string{"Sort code", "Sort Code", "Account number", "Account No"}
)

// ExtractAccount reads statement-level details from the document text. Any
// field it cannot find is left empty.
func ExtractAccount(text string) models.AccountInfo {
	return models.AccountInfo{
		Holder:   findHolder(text),
		Number:   accountNumberPattern.FindString(text),
		SortCode: sortCodePattern.FindString(text),
		Period:   findPeriod(text),
	}
}

func findHolder(text string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		for _, label := range holderLabels {
			idx := strings.Index(line, label)
			if idx < 0 {
				continue
			}
			rest := strings.TrimSpace(line[idx+len(label):])
			rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			if rest == "" {
				continue
			}
			// titles are part of the name
			if strings.HasSuffix(label, " ") {
				rest = label + rest
			}
			return strings.TrimSpace(strings.Split(rest, "  ")[0])
		}
	}

	// The line after the sort code / account number line often holds the name.
	for i, line := range lines {
		if !containsAny(line, numberLabels) || i+1 >= len(lines) {
			continue
		}
		candidate := strings.TrimSpace(lines[i+1])
		if candidate != "" && !strings.ContainsAny(candidate, "0123456789") {
			return candidate
		}
	}
	return ""
}

func findPeriod(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), "period") {
			continue
		}
		for _, re := range periodDatePatterns {
			if dates := re.FindAllString(line, 2); len(dates) == 2 {
				return dates[0] + " to " + dates[1]
			}
		}
	}
	return ""
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
