package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"$1,234.56", "1234.56", true},
		{"(500.00)", "-500.00", true},
		{"200.00 CR", "200.00", true},
		{"200.00CR", "200.00", true},
		{"-200.00 CR", "200.00", true},
		{"75.10 DR", "-75.10", true},
		{"£25.99", "25.99", true},
		{"-£1,234,567.89", "-1234567.89", true},
		{"€ 12", "12.00", true},
		{"GBP 40.5", "40.50", true},
		{"12.00-", "-12.00", true},
		{"(£1,000.00)", "-1000.00", true},
		{" 25.99 ", "25.99", true},
		{"19,720; 15", "19720.15", true},
		{"1,234:56", "1234.56", true},
		{"0.125", "0.125", true},
		{"abc", "", false},
		{"", "", false},
		{"-", "", false},
		{"1e5", "", false},
		{"12abc", "", false},
		{"CR", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, models.CanonicalAmount(got))
			}
		})
	}
}

func TestParseOptionalAmount(t *testing.T) {
	assert.False(t, ParseOptionalAmount("n/a").Valid)

	got := ParseOptionalAmount("1,000")
	assert.True(t, got.Valid)
	assert.Equal(t, "1000.00", models.FormatAmount(got))
}

func TestSanitizeOCRAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"19,720; 15", "19,720.15"},
		{"1,234:56", "1,234.56"},
		{"19,720.15:", "19,720.15"},
		{"1.00", "1.00"},
	}
	for _, tt := range tests {
		if got := SanitizeOCRAmount(tt.input); got != tt.expected {
			t.Errorf("SanitizeOCRAmount(%q): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}
