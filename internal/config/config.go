// Package config loads settings from defaults, an optional config file and
// STMTX_* environment variables, in increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/insightdelivered/statement-extractor/internal/classifier"
	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/locator"
	"github.com/insightdelivered/statement-extractor/internal/logging"
	"github.com/insightdelivered/statement-extractor/internal/parser"
	"github.com/insightdelivered/statement-extractor/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. STMTX_PIPELINE_WORKERS.
const EnvPrefix = "STMTX"

// Config is the complete application configuration.
type Config struct {
	Log       logging.Config
	Pipeline  pipeline.Config
	OCR       OCRConfig
	Templates TemplatesConfig
	Server    ServerConfig
}

// OCRConfig selects the OCR engine language.
type OCRConfig struct {
	Language string
}

// TemplatesConfig locates the template store.
type TemplatesConfig struct {
	Path string // empty keeps the built-in library in memory
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Addr        string
	MaxUploadMB int
}

// SetDefaults registers every key with its default, which also makes each
// key visible to environment lookup.
func SetDefaults(v *viper.Viper) {
	p := pipeline.DefaultConfig()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(logging.FormatText))
	v.SetDefault("pipeline.workers", p.Workers)
	v.SetDefault("pipeline.timeout", p.Timeout.String())
	v.SetDefault("pipeline.join_style", string(p.Join))
	v.SetDefault("classifier.min_chars", p.Classifier.MinChars)
	v.SetDefault("classifier.divergence", p.Classifier.Divergence)
	v.SetDefault("classifier.dpi", p.Classifier.DPI)
	v.SetDefault("ocr.dpi", p.Locator.OCRDPI)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.min_confidence", p.Locator.MinConfidence)
	v.SetDefault("locator.header_band", p.Locator.HeaderBand)
	v.SetDefault("locator.min_columns", p.Locator.MinColumns)
	v.SetDefault("templates.path", "")
	v.SetDefault("templates.accept_floor", p.AcceptFloor)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 16)
}

// Load reads configuration into a fresh viper instance. file may be empty.
func Load(file string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrap(err, errs.KindConfig, errs.CodeInvalidConfig, "cannot read config file").WithPath(file)
		}
	}
	return FromViper(v)
}

// FromViper builds a validated Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	timeout, err := time.ParseDuration(v.GetString("pipeline.timeout"))
	if err != nil {
		return nil, errs.Wrap(err, errs.KindConfig, errs.CodeInvalidConfig, "invalid pipeline.timeout")
	}

	cfg := &Config{
		Log: logging.Config{
			Level:  v.GetString("log.level"),
			Format: logging.Format(v.GetString("log.format")),
		},
		Pipeline: pipeline.Config{
			Workers:     v.GetInt("pipeline.workers"),
			Timeout:     timeout,
			Join:        parser.JoinStyle(strings.ToLower(v.GetString("pipeline.join_style"))),
			AcceptFloor: v.GetFloat64("templates.accept_floor"),
			Classifier: classifier.Config{
				MinChars:   v.GetInt("classifier.min_chars"),
				Divergence: v.GetFloat64("classifier.divergence"),
				DPI:        v.GetFloat64("classifier.dpi"),
			},
			Locator: locator.Config{
				OCRDPI:        v.GetFloat64("ocr.dpi"),
				MinConfidence: v.GetFloat64("ocr.min_confidence"),
				HeaderBand:    v.GetFloat64("locator.header_band"),
				MinColumns:    v.GetInt("locator.min_columns"),
			},
		},
		OCR:       OCRConfig{Language: v.GetString("ocr.language")},
		Templates: TemplatesConfig{Path: v.GetString("templates.path")},
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			MaxUploadMB: v.GetInt("server.max_upload_mb"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	invalid := func(msg string) error {
		return errs.New(errs.KindConfig, errs.CodeInvalidConfig, msg)
	}
	if err := c.Log.Validate(); err != nil {
		return errs.Wrap(err, errs.KindConfig, errs.CodeInvalidConfig, "invalid log settings")
	}
	p := c.Pipeline
	switch {
	case p.Workers < 1:
		return invalid("pipeline.workers must be at least 1")
	case p.Timeout < 0:
		return invalid("pipeline.timeout must not be negative")
	case p.Join != parser.JoinNewline && p.Join != parser.JoinSpace:
		return invalid(`pipeline.join_style must be "newline" or "space"`)
	case p.AcceptFloor < 0 || p.AcceptFloor > 1:
		return invalid("templates.accept_floor must be between 0 and 1")
	case p.Classifier.MinChars < 0:
		return invalid("classifier.min_chars must not be negative")
	case p.Classifier.Divergence <= 0 || p.Classifier.Divergence > 1:
		return invalid("classifier.divergence must be in (0, 1]")
	case p.Classifier.DPI <= 0 || p.Locator.OCRDPI <= 0:
		return invalid("classifier.dpi and ocr.dpi must be positive")
	case p.Locator.MinConfidence < 0 || p.Locator.MinConfidence > 100:
		return invalid("ocr.min_confidence must be between 0 and 100")
	case p.Locator.HeaderBand <= 0 || p.Locator.HeaderBand > 1:
		return invalid("locator.header_band must be in (0, 1]")
	case p.Locator.MinColumns < 2:
		return invalid("locator.min_columns must be at least 2")
	case c.Server.MaxUploadMB < 1:
		return invalid("server.max_upload_mb must be at least 1")
	}
	return nil
}
