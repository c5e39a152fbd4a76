package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/internal/visualize"
)

// graphOptions holds flags for the graph command.
type graphOptions struct {
	format  string
	outFile string
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &graphOptions{}

	cmd := &cobra.Command{
		Use:   "graph <config-file>",
		Short: "Render the pipeline dependency graph",
		Long: `Render the pipeline's job dependency graph.

Formats:
  mermaid  Mermaid flowchart, ready for a markdown code fence
  dot      Graphviz digraph
  ascii    Execution levels for the terminal`,
		Example: `  # Mermaid diagram to stdout
  pipelens graph ci.yml

  # Graphviz source written to a file
  pipelens graph ci.yml --format dot --out pipeline.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", string(visualize.FormatMermaid), "Graph format (mermaid|dot|ascii)")
	cmd.Flags().StringVar(&opts.outFile, "out", "", "Write the graph to this path")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mermaid", "dot", "ascii"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runGraph(cmd *cobra.Command, path string, opts *graphOptions) error {
	cmdCtx := NewCommandContext(cmd)

	p, _, err := loadPipeline(cmdCtx, path)
	if err != nil {
		return err
	}

	g, err := dag.FromPipeline(p)
	if err != nil {
		return err
	}

	rendered, err := visualize.Render(p, g, visualize.Format(opts.format))
	if err != nil {
		return err
	}

	if opts.outFile != "" {
		if err := os.WriteFile(opts.outFile, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.outFile, err)
		}
		cmdCtx.Renderer.Success(fmt.Sprintf("Wrote %s", opts.outFile))
		return nil
	}

	cmdCtx.Renderer.Printf("%s", rendered)
	return nil
}
