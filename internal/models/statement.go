package models

// PageKind is how a page was produced.
type PageKind string

const (
	PageTextNative PageKind = "text-native"
	PageImageBased PageKind = "image-based"
	PageMixed      PageKind = "mixed"
)

// Logical columns of a RawRow.
const (
	ColDate = iota
	ColDescription
	ColWithdrawal
	ColDeposit
	ColBalance

	NumColumns
)

// ColumnNames are the logical column names, in cell order. Template layouts
// and header synonyms are keyed by these.
var ColumnNames = [NumColumns]string{"date", "description", "withdrawal", "deposit", "balance"}

// RawRow is one physical table row mapped onto the logical columns.
type RawRow struct {
	Page  int
	Index int
	Cells [NumColumns]string
}

// Region is one candidate transaction table found on a page.
type Region struct {
	Strategy string
	Rows     []RawRow
}

// Box is a relative bounding box in unit page coordinates: x0, x1, y0, y1.
type Box [4]float64

// X0 is the left edge.
func (b Box) X0() float64 { return b[0] }

// X1 is the right edge.
func (b Box) X1() float64 { return b[1] }

// StatementTemplate is a named bank layout signature.
type StatementTemplate struct {
	Name        string              `yaml:"name" json:"name"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	Patterns    map[string][]string `yaml:"patterns" json:"patterns"`
	Layout      map[string]Box      `yaml:"layout,omitempty" json:"layout,omitempty"`
}

// AccountInfo holds statement-level details found in the document text.
type AccountInfo struct {
	Holder   string `json:"holder,omitempty"`
	Number   string `json:"number,omitempty"`
	SortCode string `json:"sortCode,omitempty"`
	Period   string `json:"period,omitempty"`
}

// IsZero reports whether nothing was found.
func (a AccountInfo) IsZero() bool { return a == AccountInfo{} }
