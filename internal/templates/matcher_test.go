package templates

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

func tenPatternTemplate(name string) models.StatementTemplate {
	var ps []string
	for i := 0; i < 10; i++ {
		ps = append(ps, fmt.Sprintf(`marker%02d`, i))
	}
	return models.StatementTemplate{
		Name: name,
		Patterns: map[string][]string{
			"header":      ps[:3],
			"transaction": ps[3:7],
			"footer":      ps[7:],
		},
	}
}

func TestScore_FractionOfMatchedPatterns(t *testing.T) {
	tmpl := tenPatternTemplate("ten")
	text := "MARKER00 marker04 Marker07 marker09"
	assert.InDelta(t, 0.4, Score(tmpl, text), 1e-9)
}

func TestScore_InvalidPatternCountsButNeverMatches(t *testing.T) {
	tmpl := models.StatementTemplate{
		Name:     "broken",
		Patterns: map[string][]string{"header": {`Acme\s+Bank`, `(unclosed`}},
	}
	assert.InDelta(t, 0.5, Score(tmpl, "ACME  BANK (unclosed"), 1e-9)
}

func TestScore_NoPatterns(t *testing.T) {
	assert.Zero(t, Score(models.StatementTemplate{Name: "empty"}, "anything"))
}

func TestBest(t *testing.T) {
	logger, _ := test.NewNullLogger()
	quarter := models.StatementTemplate{
		Name:     "quarter",
		Patterns: map[string][]string{"header": {"alpha", "beta", "gamma", "delta"}},
	}
	half := models.StatementTemplate{
		Name:     "half",
		Patterns: map[string][]string{"header": {"alpha", "omega"}},
	}
	halfAgain := models.StatementTemplate{
		Name:     "half-again",
		Patterns: map[string][]string{"footer": {"alpha", "sigma"}},
	}

	t.Run("below floor", func(t *testing.T) {
		m := NewMatcher([]models.StatementTemplate{quarter}, DefaultAcceptFloor, logger)
		tmpl, score, ok := m.Best("alpha only")
		assert.False(t, ok)
		assert.Nil(t, tmpl)
		assert.InDelta(t, 0.25, score, 1e-9)
	})

	t.Run("highest wins", func(t *testing.T) {
		m := NewMatcher([]models.StatementTemplate{quarter, half}, DefaultAcceptFloor, logger)
		tmpl, score, ok := m.Best("alpha")
		require.True(t, ok)
		assert.Equal(t, "half", tmpl.Name)
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("tie keeps first declared", func(t *testing.T) {
		m := NewMatcher([]models.StatementTemplate{halfAgain, half}, DefaultAcceptFloor, logger)
		tmpl, _, ok := m.Best("alpha")
		require.True(t, ok)
		assert.Equal(t, "half-again", tmpl.Name)
	})

	t.Run("exactly at floor", func(t *testing.T) {
		third := models.StatementTemplate{Name: "third", Patterns: map[string][]string{"h": {"a1", "b2", "c3"}}}
		m := NewMatcher([]models.StatementTemplate{third}, 1.0/3, logger)
		_, _, ok := m.Best("a1")
		assert.True(t, ok)
	})

	t.Run("empty library", func(t *testing.T) {
		_, _, ok := NewMatcher(nil, DefaultAcceptFloor, logger).Best("alpha")
		assert.False(t, ok)
	})
}

func TestBest_DoesNotMutateLibrary(t *testing.T) {
	logger, _ := test.NewNullLogger()
	lib := []models.StatementTemplate{tenPatternTemplate("ten")}
	m := NewMatcher(lib, 0.1, logger)

	tmpl, _, ok := m.Best("marker01 marker02")
	require.True(t, ok)
	tmpl.Patterns["header"][0] = "changed"
	tmpl.Name = "changed"

	again, _, _ := m.Best("marker01 marker02")
	assert.Equal(t, "ten", again.Name)
	assert.Equal(t, "ten", lib[0].Name)
	assert.Equal(t, "marker00", lib[0].Patterns["header"][0])
	assert.Equal(t, "marker00", again.Patterns["header"][0])
}

func TestBest_DefaultLibrary(t *testing.T) {
	logger, _ := test.NewNullLogger()
	lib, err := Defaults()
	require.NoError(t, err)
	m := NewMatcher(lib, DefaultAcceptFloor, logger)

	text := `Royal Bank of Scotland
Statement of Account
Your Account Summary
26 APR  DIRECT DEBIT  ACME INSURANCE   12.00
Balance brought forward   Page 1 of 3   Closing balance`
	tmpl, _, ok := m.Best(text)
	require.True(t, ok)
	assert.Equal(t, "RBS_Personal", tmpl.Name)
}
