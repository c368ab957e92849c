package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

func TestDefaults(t *testing.T) {
	lib, err := Defaults()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(lib), 2)
	assert.Equal(t, "RBS_Personal", lib[0].Name)
	assert.Equal(t, "ANZ_Personal", lib[1].Name)
	assert.Equal(t, models.Box{0.9, 1.0, 0, 0.1}, lib[0].Layout["balance"])
	assert.Len(t, lib[0].Patterns["header"], 5)

	for _, tmpl := range lib {
		assert.NoError(t, Validate(tmpl), tmpl.Name)
	}
}

func TestOpenFileStore_SeedsMissingFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "conf", "templates.yaml")

	s, err := OpenFileStore(path, logger)
	require.NoError(t, err)
	assert.FileExists(t, path)

	defaults, _ := Defaults()
	assert.Len(t, s.Templates(), len(defaults))
}

func TestFileStore_AddPersistsAndReloads(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "templates.yaml")

	s, err := OpenFileStore(path, logger)
	require.NoError(t, err)

	custom := models.StatementTemplate{
		Name:     "Acme_Business",
		Patterns: map[string][]string{"header": {`Acme\s+Bank`}},
		Layout:   map[string]models.Box{"date": {0, 0.1, 0, 0.1}},
	}
	require.NoError(t, s.Add(custom))

	reloaded, err := OpenFileStore(path, logger)
	require.NoError(t, err)
	got, ok := reloaded.Get("acme_business")
	require.True(t, ok)
	assert.Equal(t, custom, got)

	err = reloaded.Add(models.StatementTemplate{Name: "ACME_BUSINESS", Patterns: custom.Patterns})
	assert.True(t, errs.Is(err, errs.CodeInvalidConfig))
}

func TestFileStore_InMemory(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s, err := OpenFileStore("", logger)
	require.NoError(t, err)

	_, ok := s.Get("rbs_personal")
	assert.True(t, ok)
	_, ok = s.Get("nope")
	assert.False(t, ok)
}

func TestFileStore_SnapshotIsIsolated(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s, err := OpenFileStore("", logger)
	require.NoError(t, err)

	snap := s.Templates()
	snap[0].Name = "mutated"
	snap[0].Patterns["header"][0] = "mutated"

	fresh := s.Templates()
	assert.Equal(t, "RBS_Personal", fresh[0].Name)
	assert.NotEqual(t, "mutated", fresh[0].Patterns["header"][0])
}

func TestOpenFileStore_BadYAML(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates: [unterminated"), 0o644))

	_, err := OpenFileStore(path, logger)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CodeInvalidConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		tmpl models.StatementTemplate
		ok   bool
	}{
		{"ok", models.StatementTemplate{Name: "a", Patterns: map[string][]string{"h": {"x"}}}, true},
		{"no name", models.StatementTemplate{Patterns: map[string][]string{"h": {"x"}}}, false},
		{"no patterns", models.StatementTemplate{Name: "a", Patterns: map[string][]string{"h": {}}}, false},
		{"box outside page", models.StatementTemplate{Name: "a", Patterns: map[string][]string{"h": {"x"}}, Layout: map[string]models.Box{"date": {0, 1.5, 0, 0.1}}}, false},
		{"box without width", models.StatementTemplate{Name: "a", Patterns: map[string][]string{"h": {"x"}}, Layout: map[string]models.Box{"date": {0.5, 0.5, 0, 0.1}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tmpl)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
