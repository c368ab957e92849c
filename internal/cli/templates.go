package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/statement-extractor/internal/errs"
	"github.com/insightdelivered/statement-extractor/internal/models"
)

func newTemplatesCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List or add statement templates",
	}
	cmd.AddCommand(newTemplatesListCommand(e), newTemplatesAddCommand(e))
	return cmd
}

func newTemplatesListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the template library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPATTERNS\tLAYOUT\tDESCRIPTION")
			for _, t := range e.store.Templates() {
				n := 0
				for _, ps := range t.Patterns {
					n += len(ps)
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Name, n, layoutColumns(t), t.Description)
			}
			return tw.Flush()
		},
	}
}

func layoutColumns(t models.StatementTemplate) string {
	if len(t.Layout) == 0 {
		return "-"
	}
	cols := make([]string, 0, len(t.Layout))
	for c := range t.Layout {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return fmt.Sprint(cols)
}

func newTemplatesAddCommand(e *env) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add --file template.yaml",
		Short: "Add a template to the library",
		Long: `Add reads one template in the library's YAML form:

  name: Monzo_Personal
  description: Monzo current account
  patterns:
    header: ["(?i)monzo"]
    transaction: ['\d{2}/\d{2}/\d{4}']
  layout:
    date: [0.05, 0.18, 0.2, 0.95]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return errs.Wrap(err, errs.KindFile, errs.CodeFileNotFound, "cannot read template").WithPath(file)
			}
			var t models.StatementTemplate
			if err := yaml.Unmarshal(data, &t); err != nil {
				return errs.Wrap(err, errs.KindConfig, errs.CodeInvalidConfig, "invalid template YAML").WithPath(file)
			}
			if err := e.store.Add(t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added template %s\n", t.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "template YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
