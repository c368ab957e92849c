package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/parser"
	"github.com/insightdelivered/statement-extractor/internal/pipeline"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, pipeline.DefaultConfig(), cfg.Pipeline)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 16, cfg.Server.MaxUploadMB)
	assert.Empty(t, cfg.Templates.Path)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stmtx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  workers: 2
  timeout: 30s
  join_style: space
templates:
  accept_floor: 0.5
log:
  format: json
`), 0o644))
	t.Setenv("STMTX_PIPELINE_WORKERS", "6")
	t.Setenv("STMTX_OCR_LANGUAGE", "deu")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Pipeline.Workers, "env beats file")
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Timeout)
	assert.Equal(t, parser.JoinSpace, cfg.Pipeline.Join)
	assert.Equal(t, 0.5, cfg.Pipeline.AcceptFloor)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.EqualValues(t, "json", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CodeInvalidConfig))
	assert.Equal(t, 4, errs.ExitCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"negative timeout", func(c *Config) { c.Pipeline.Timeout = -time.Second }},
		{"unknown join style", func(c *Config) { c.Pipeline.Join = "comma" }},
		{"floor above one", func(c *Config) { c.Pipeline.AcceptFloor = 1.5 }},
		{"zero divergence", func(c *Config) { c.Pipeline.Classifier.Divergence = 0 }},
		{"zero dpi", func(c *Config) { c.Pipeline.Locator.OCRDPI = 0 }},
		{"confidence above 100", func(c *Config) { c.Pipeline.Locator.MinConfidence = 101 }},
		{"header band zero", func(c *Config) { c.Pipeline.Locator.HeaderBand = 0 }},
		{"one column", func(c *Config) { c.Pipeline.Locator.MinColumns = 1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"no upload room", func(c *Config) { c.Server.MaxUploadMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.CodeInvalidConfig))
		})
	}
}
