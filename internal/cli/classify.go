package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newClassifyCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <input.pdf>",
		Short: "Show how each page was produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := e.open(args[0])
			if err != nil {
				return err
			}
			defer doc.Close()

			cls, err := e.pipeline().Classify(cmd.Context(), doc)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PAGE\tKIND\tTEXT CHARS\tOCR CHARS\tERROR")
			for _, p := range cls.Pages {
				errText := ""
				if p.Err != nil {
					errText = p.Err.Error()
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", p.Page, p.Kind, len([]rune(p.Direct)), len([]rune(p.OCRText)), errText)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Document: %s\n", cls.Kind)
			if cls.TimedOut {
				fmt.Fprintln(cmd.OutOrStdout(), "Warning: classification timed out; some pages were not classified")
			}
			return nil
		},
	}
}
