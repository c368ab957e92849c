package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// dateRejectWords mark header/footer lines that can look like dates
// ("Opening balance 01 Apr") but never are.
var dateRejectWords = []string{"total", "balance", "opening", "closing", "brought", "carried"}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// dateStrategy is one accepted date shape. handle receives the submatches and
// returns day, month, year (0 when absent) or ok=false.
type dateStrategy struct {
	name    string
	pattern *regexp.Regexp
	handle  func(m []string) (day, month, year int, ok bool)
}

// dateStrategies are tried in order; the first pattern that matches decides.
var dateStrategies = []dateStrategy{
	{
		name:    "iso",
		pattern: regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`),
		handle: func(m []string) (int, int, int, bool) {
			return atoi(m[3]), atoi(m[2]), atoi(m[1]), true
		},
	},
	{
		name:    "numeric",
		pattern: regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})$`),
		handle: func(m []string) (int, int, int, bool) {
			return atoi(m[1]), atoi(m[2]), expandYear(m[3]), true
		},
	},
	{
		name:    "compact",
		pattern: regexp.MustCompile(`(?i)^(\d{1,2})([a-z]{3})(\d{2})$`),
		handle: func(m []string) (int, int, int, bool) {
			month := monthNumber(m[2])
			return atoi(m[1]), month, expandYear(m[3]), month > 0
		},
	},
	{
		name:    "day-month",
		pattern: regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?[\s.-]*([a-z]{3,})\.?(?:[\s,.-]*(\d{4}|\d{2}))?$`),
		handle: func(m []string) (int, int, int, bool) {
			month := monthNumber(m[2])
			year := 0
			if m[3] != "" {
				year = expandYear(m[3])
			}
			return atoi(m[1]), month, year, month > 0
		},
	},
}

// DateParser normalizes statement date strings. Now supplies the year for
// dates that omit it.
type DateParser struct {
	Now func() time.Time
}

// NewDateParser returns a DateParser using the wall clock.
func NewDateParser() *DateParser {
	return &DateParser{Now: time.Now}
}

// Parse returns the normalized date and true, or false when s is not a date.
func (p *DateParser) Parse(s string) (models.Date, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" || hasRejectWord(s) {
		return models.Date{}, false
	}

	for _, st := range dateStrategies {
		m := st.pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		day, month, year, ok := st.handle(m)
		if !ok {
			return models.Date{}, false
		}
		return p.build(day, month, year)
	}
	return models.Date{}, false
}

func (p *DateParser) build(day, month, year int) (models.Date, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return models.Date{}, false
	}
	d := models.Date{Day: day, Month: month, Year: year}
	if year == 0 {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		d.Year = now().Year()
		d.YearInferred = true
	}
	// 31 Apr becomes 30 Apr rather than being rejected.
	if last := daysIn(d.Month, d.Year); d.Day > last {
		d.Day = last
	}
	return d, true
}

func hasRejectWord(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range dateRejectWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// monthNumber accepts a 3+ letter prefix of a month name ("Apr", "Sept", "APRIL").
func monthNumber(name string) int {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0
	}
	for i, full := range monthNames {
		if strings.HasPrefix(full, name) {
			return i + 1
		}
	}
	return 0
}

func expandYear(s string) int {
	if len(s) == 2 {
		s = "20" + s
	}
	return atoi(s)
}

func daysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
