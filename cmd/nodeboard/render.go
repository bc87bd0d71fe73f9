package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/nodeboard"
)

// renderCmd renders a status document once.
var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a status document as HTML",
	Long: `Render a v1/collect/status JSON document into the HTML fragment the
dashboard would show.

The document is read from the given file, or from stdin when the file is
omitted or "-".

Example:
  nodeboard render status.json
  curl -s http://localhost:8081/v1/collect/status | nodeboard render`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open status document: %w", err)
		}
		defer f.Close()
		in = f
	}

	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read status document: %w", err)
	}

	report, err := nodeboard.DecodeStatus(body)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), nodeboard.Render(report))
	return nil
}
