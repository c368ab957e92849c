// Package cli is the statement-extractor command line.
package cli

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-extractor/internal/config"
	"github.com/insightdelivered/statement-extractor/internal/extractor"
	"github.com/insightdelivered/statement-extractor/internal/logging"
	"github.com/insightdelivered/statement-extractor/internal/metrics"
	"github.com/insightdelivered/statement-extractor/internal/models"
	"github.com/insightdelivered/statement-extractor/internal/pipeline"
	"github.com/insightdelivered/statement-extractor/internal/templates"
)

var (
	version = "dev"
	commit  = "unknown"
)

// SetVersionInfo sets the version reported by --version and the API.
func SetVersionInfo(v, c string) {
	version, commit = v, c
}

func versionString() string {
	return fmt.Sprintf("%s (commit %s)", version, commit)
}

// env is what every subcommand works with, built once the flags are parsed.
type env struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    *templates.FileStore
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	noOCR    bool
}

func (e *env) ocr() models.OCR {
	if e.noOCR {
		return nil
	}
	return extractor.NewTesseract(e.cfg.OCR.Language, e.log)
}

func (e *env) pipeline() *pipeline.Pipeline {
	return pipeline.New(e.cfg.Pipeline, pipeline.Deps{
		OCR:       e.ocr(),
		Templates: e.store.Templates(),
		Log:       e.log,
		Metrics:   e.metrics,
	})
}

func (e *env) open(path string) (*extractor.Document, error) {
	return extractor.Open(path, e.log)
}

// NewRootCommand builds the command tree. stdout and stderr receive command
// output and logs respectively.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		cfgFile  string
		verbose  bool
		logLevel string
		e        = &env{}
	)

	root := &cobra.Command{
		Use:   "stmtx",
		Short: "Extract transactions from bank statement PDFs",
		Long: `stmtx reads bank statement PDFs, digital or scanned, and writes their
transactions as CSV, XLSX or JSON.

Examples:
  stmtx convert statement.pdf
  stmtx convert --format xlsx --output out/ jan.pdf feb.pdf
  stmtx classify scan.pdf
  stmtx serve --addr :8080`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if verbose {
				cfg.Log.Level = "debug"
			}
			cfg.Log.Output = stderr
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			store, err := templates.OpenFileStore(cfg.Templates.Path, log)
			if err != nil {
				return err
			}
			e.cfg, e.log, e.store = cfg, log, store
			e.registry = prometheus.NewRegistry()
			e.metrics = metrics.New(e.registry)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	flags.BoolVar(&e.noOCR, "no-ocr", false, "skip OCR; scanned pages yield nothing")

	root.AddCommand(
		newConvertCommand(e),
		newClassifyCommand(e),
		newTemplatesCommand(e),
		newServeCommand(e),
	)
	return root
}
