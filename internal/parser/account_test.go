package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

func TestExtractAccount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.AccountInfo
	}{
		{
			name: "labelled fields",
			text: "Metro Bank\nAccount name: John Smith  Branch 12\nAccount number: 12345678 Sort code: 23-05-80\nStatement period 01/01/2024 to 31/01/2024",
			want: models.AccountInfo{Holder: "John Smith", Number: "12345678", SortCode: "23-05-80", Period: "01/01/2024 to 31/01/2024"},
		},
		{
			name: "title and text dates",
			text: "Mrs Jane Doe\nYour statement for the period 1 March 2024 - 31 March 2024",
			want: models.AccountInfo{Holder: "Mrs Jane Doe", Period: "1 March 2024 to 31 March 2024"},
		},
		{
			name: "name after number line",
			text: "Sort Code 40-12-34 Account No 87654321\nJ BLOGGS\nYour transactions",
			want: models.AccountInfo{Holder: "J BLOGGS", Number: "87654321", SortCode: "40-12-34"},
		},
		{
			name: "nothing found",
			text: "no account here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAccount(tt.text))
		})
	}
}

func TestExtractAccount_NumberPatterns(t *testing.T) {
	tests := []struct {
		input        string
		wantNumber   string
		wantSortCode string
	}{
		{"Account number: 12345678", "12345678", ""},
		{"Account: 87654321 Sort code: 20-00-00", "87654321", "20-00-00"},
		{"Sort code 40-12-34 Account", "", "40-12-34"},
		{"Ref 123456789", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ExtractAccount(tt.input)
			assert.Equal(t, tt.wantNumber, got.Number)
			assert.Equal(t, tt.wantSortCode, got.SortCode)
		})
	}
}
