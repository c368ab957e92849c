package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/pipeline"
	"github.com/insightdelivered/statement-extractor/internal/writer"
)

type convertOptions struct {
	format   string
	output   string
	template string
	header   bool
}

func newConvertCommand(e *env) *cobra.Command {
	opts := convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <input.pdf> [input2.pdf ...]",
		Short: "Convert statement PDFs to CSV, XLSX or JSON",
		Long: `Convert extracts the transactions of each statement and writes them next
to the input (statement.pdf -> statement.csv) unless --output is given. With
several inputs --output must be a directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := writer.ParseFormat(opts.format)
			if err != nil {
				return errs.Wrap(err, errs.KindConfig, errs.CodeInvalidConfig, "invalid --format")
			}
			var popts []pipeline.Option
			if opts.template != "" {
				t, ok := e.store.Get(opts.template)
				if !ok {
					return errs.New(errs.KindConfig, errs.CodeInvalidConfig, "unknown template "+opts.template)
				}
				popts = append(popts, pipeline.WithTemplate(t))
			}
			p := e.pipeline()
			for _, input := range args {
				out, err := outputPath(input, opts.output, format, len(args) > 1)
				if err != nil {
					return err
				}
				if err := convertFile(cmd, e, p, input, out, format, opts.header, popts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "csv", "output format: csv, xlsx or json")
	f.StringVarP(&opts.output, "output", "o", "", "output file, or directory for several inputs")
	f.StringVarP(&opts.template, "template", "t", "", "use this template instead of matching one")
	f.BoolVar(&opts.header, "header", true, "include source and account rows at the top of CSV output")
	return cmd
}

func convertFile(cmd *cobra.Command, e *env, p *pipeline.Pipeline, input, output string, format writer.Format, header bool, popts []pipeline.Option) error {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "Processing: %s\n", input)

	doc, err := e.open(input)
	if err != nil {
		return err
	}
	defer doc.Close()

	res, err := p.ExtractTransactions(cmd.Context(), doc, popts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "  Pages: %d (%s)\n", doc.PageCount(), res.Kind)
	if res.Template != "" {
		fmt.Fprintf(stdout, "  Template: %s (score %.2f)\n", res.Template, res.TemplateScore)
	}
	fmt.Fprintf(stdout, "  Found %d transaction(s)\n", len(res.Transactions))
	for _, w := range res.Warnings {
		fmt.Fprintf(stdout, "  Warning: %s\n", w)
	}
	if res.Empty() {
		fmt.Fprintln(stdout, "  Warning: No transactions found. The statement layout may not be recognised.")
		return nil
	}

	w, err := writer.New(format)
	if err != nil {
		return err
	}
	if cw, ok := w.(*writer.CSVWriter); ok {
		cw.IncludeHeader = header
	}
	meta := writer.Meta{Source: filepath.Base(input), Template: res.Template, Kind: string(res.Kind), Account: res.Account}
	if err := writer.WriteToFile(w, output, meta, res.Transactions); err != nil {
		return errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "cannot write output").WithPath(output)
	}
	fmt.Fprintf(stdout, "  Output: %s\n", output)
	if a := res.Account; !a.IsZero() {
		for _, kv := range [][2]string{
			{"Account holder", a.Holder},
			{"Account number", a.Number},
			{"Sort code", a.SortCode},
			{"Period", a.Period},
		} {
			if kv[1] != "" {
				fmt.Fprintf(stdout, "  %s: %s\n", kv[0], kv[1])
			}
		}
	}
	fmt.Fprintln(stdout, "  Done.")
	return nil
}

// outputPath derives where input's output goes. An explicit output is a
// file for one input and a directory for several.
func outputPath(input, output string, format writer.Format, many bool) (string, error) {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "." + string(format)
	if output == "" {
		return filepath.Join(filepath.Dir(input), name), nil
	}
	info, err := os.Stat(output)
	isDir := err == nil && info.IsDir()
	if many && !isDir {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return "", errs.Wrap(err, errs.KindFile, errs.CodeFileUnreadable, "cannot create output directory").WithPath(output)
		}
		isDir = true
	}
	if isDir {
		return filepath.Join(output, name), nil
	}
	return output, nil
}
