package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sling/internal/app"
	"go.trai.ch/sling/internal/core/domain"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"dev"},
		Short:   "Serve the bundle and rebuild with hot updates on every change",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.bind(cmd, "mode", "output", "port")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := c.dir(cmd)
			if err != nil {
				return err
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")

			return c.app.Serve(cmd.Context(), app.ServeOptions{
				Dir:          dir,
				Mode:         domain.Mode(c.v.GetString("mode")),
				Port:         c.v.GetInt("port"),
				OutputDir:    c.v.GetString("output"),
				NoCache:      noCache,
				OutputFormat: outputFormat(cmd),
			})
		},
	}
	cmd.Flags().StringP("mode", "m", "", "Build mode: production or development (env SLING_MODE)")
	cmd.Flags().IntP("port", "p", 0, "Dev server port (env SLING_PORT)")
	cmd.Flags().StringP("output", "o", "", "Output directory relative to the project root (env SLING_OUTPUT)")
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the module cache and transform every module")
	return cmd
}
