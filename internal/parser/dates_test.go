package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC) }
}

func TestDateParser_Parse(t *testing.T) {
	p := &DateParser{Now: fixedClock(2024)}

	tests := []struct {
		input  string
		want   models.Date
		wantOK bool
	}{
		{"26 APR", models.Date{Day: 26, Month: 4, Year: 2024, YearInferred: true}, true},
		{"31 APR", models.Date{Day: 30, Month: 4, Year: 2024, YearInferred: true}, true},
		{"15 Jan 2023", models.Date{Day: 15, Month: 1, Year: 2023}, true},
		{"15 January 23", models.Date{Day: 15, Month: 1, Year: 2023}, true},
		{"3rd Sept", models.Date{Day: 3, Month: 9, Year: 2024, YearInferred: true}, true},
		{"26APR23", models.Date{Day: 26, Month: 4, Year: 2023}, true},
		{"15/01/2024", models.Date{Day: 15, Month: 1, Year: 2024}, true},
		{"15-01-24", models.Date{Day: 15, Month: 1, Year: 2024}, true},
		{"2023-12-31", models.Date{Day: 31, Month: 12, Year: 2023}, true},
		{"30 FEB 2023", models.Date{Day: 28, Month: 2, Year: 2023}, true},
		{"29 Feb 2024", models.Date{Day: 29, Month: 2, Year: 2024}, true},
		{"  26   APR  ", models.Date{Day: 26, Month: 4, Year: 2024, YearInferred: true}, true},
		{"", models.Date{}, false},
		{"Fee", models.Date{}, false},
		{"32 Jan", models.Date{}, false},
		{"15/13/2024", models.Date{}, false},
		{"12 Main", models.Date{}, false},
		{"01 Apr Opening", models.Date{}, false},
		{"Balance 01 Apr", models.Date{}, false},
		{"Totals", models.Date{}, false},
		{"100.00", models.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := p.Parse(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "2024-04-26", models.Date{Day: 26, Month: 4, Year: 2024}.String())
	assert.Equal(t, "", models.Date{}.String())
}

func TestMonthNumber(t *testing.T) {
	tests := map[string]int{
		"jan": 1, "APR": 4, "Sept": 9, "september": 9, "dec": 12,
		"ma": 0, "xyz": 0, "junly": 0,
	}
	for in, want := range tests {
		if got := monthNumber(in); got != want {
			t.Errorf("monthNumber(%q): got %d, want %d", in, got, want)
		}
	}
}
