package commands

import (
	"github.com/spf13/cobra"
)

// NewDiffCommand creates the diff command. It is the optimize pipeline
// with only the unified diff emitted.
func NewDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <config-file>",
		Short: "Show the optimization diff without writing anything",
		Long: `Compute the optimized configuration and print a unified diff against
the input. Equivalent to 'optimize --diff'.`,
		Example: `  pipelens diff .github/workflows/ci.yml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, args[0], &optimizeOptions{diffOnly: true})
		},
	}
}
