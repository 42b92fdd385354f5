package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sling/internal/app"
	"go.trai.ch/sling/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Bundle the configured entries into the output directory",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.bind(cmd, "mode", "output")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := c.dir(cmd)
			if err != nil {
				return err
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")
			noCheck, _ := cmd.Flags().GetBool("no-check")

			_, err = c.app.Build(cmd.Context(), app.BuildOptions{
				Dir:          dir,
				Mode:         domain.Mode(c.v.GetString("mode")),
				OutputDir:    c.v.GetString("output"),
				NoCache:      noCache,
				NoCheck:      noCheck,
				OutputFormat: outputFormat(cmd),
			})
			return err
		},
	}
	cmd.Flags().StringP("mode", "m", "", "Build mode: production or development (env SLING_MODE)")
	cmd.Flags().StringP("output", "o", "", "Output directory relative to the project root (env SLING_OUTPUT)")
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the module cache and transform every module")
	cmd.Flags().Bool("no-check", false, "Skip the configured checkers")
	return cmd
}
