package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RichardoC/pad-chat/internal/export"
)

func newExportCommand(getApp func() *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a conversation (default: the active one)",
		Long: `Export a conversation as JSON, YAML or Markdown.

Examples:
  pad-chat export --format md -o chat.md
  pad-chat export chat-1760860800000 --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			exporter, err := export.NewExporter(format)
			if err != nil {
				return err
			}
			conv, err := a.conversation(optionalArg(args))
			if err != nil {
				return err
			}

			var w io.Writer = a.out
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := exporter.Export(conv, w); err != nil {
				return fmt.Errorf("failed to export %s: %w", conv.ID, err)
			}
			if output != "" {
				fmt.Fprintf(a.out, "Exported %s to %s\n", conv.ID, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Export format (json, yaml, md)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
