// Package sequencer merges per-page transaction lists into one ordered,
// duplicate-free statement.
package sequencer

import (
	"sort"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// Key is the exact dedup identity of a record. Records that differ only in
// whitespace are distinct; repeated same-day fees are kept only when some
// field differs.
type Key struct {
	Date        string
	Description string
	Withdrawal  string
	Deposit     string
	Balance     string
}

// KeyOf builds the dedup key from normalized field strings.
func KeyOf(t models.Transaction) Key {
	return Key{
		Date:        t.Date.String(),
		Description: t.Description,
		Withdrawal:  models.FormatAmount(t.Withdrawal),
		Deposit:     models.FormatAmount(t.Deposit),
		Balance:     models.FormatAmount(t.Balance),
	}
}

// Order sorts records by (page, row), with the earliest opening-balance
// record first. Later opening-balance records are dropped.
func Order(recs []models.Located) []models.Located {
	out, _ := order(recs)
	return out
}

// order is Order that also returns the opening-balance records it dropped.
func order(recs []models.Located) (out, dropped []models.Located) {
	sorted := make([]models.Located, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Page != sorted[j].Page {
			return sorted[i].Page < sorted[j].Page
		}
		return sorted[i].Row < sorted[j].Row
	})

	out = make([]models.Located, 0, len(sorted))
	var opening *models.Located
	for i := range sorted {
		if sorted[i].Opening {
			if opening == nil {
				opening = &sorted[i]
			} else {
				dropped = append(dropped, sorted[i])
			}
			continue
		}
		out = append(out, sorted[i])
	}
	if opening != nil {
		out = append([]models.Located{*opening}, out...)
	}
	return out, dropped
}

// Dedup keeps the first occurrence of each Key, preserving order.
func Dedup(recs []models.Located) []models.Located {
	seen := make(map[Key]bool, len(recs))
	out := make([]models.Located, 0, len(recs))
	for _, r := range recs {
		k := KeyOf(r.Transaction)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// Strip drops provenance.
func Strip(recs []models.Located) []models.Transaction {
	out := make([]models.Transaction, len(recs))
	for i, r := range recs {
		out[i] = r.Transaction
	}
	return out
}

// Sequence flattens per-page lists, orders them, removes duplicates and
// strips provenance. The result depends only on provenance, never on the
// order pages finished in.
func Sequence(pages ...[]models.Located) []models.Transaction {
	txns, _ := Merge(pages...)
	return txns
}

// Merge is Sequence that also reports the later opening-balance records it
// dropped, with their provenance.
func Merge(pages ...[]models.Located) (txns []models.Transaction, droppedOpenings []models.Located) {
	var all []models.Located
	for _, p := range pages {
		all = append(all, p...)
	}
	ordered, dropped := order(all)
	return Strip(Dedup(ordered)), dropped
}
