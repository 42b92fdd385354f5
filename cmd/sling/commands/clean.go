package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sling/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the module cache and the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := c.dir(cmd)
			if err != nil {
				return err
			}
			cache, _ := cmd.Flags().GetBool("cache")
			output, _ := cmd.Flags().GetBool("output")

			// Without a selection both are removed.
			if !cache && !output {
				cache, output = true, true
			}

			return c.app.Clean(cmd.Context(), app.CleanOptions{Dir: dir, Cache: cache, Output: output})
		},
	}

	cmd.Flags().Bool("cache", false, "Clean only the module cache")
	cmd.Flags().Bool("output", false, "Clean only the output directory")

	return cmd
}
