// Package commands implements the CLI commands for the sling bundler.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/sling/internal/app"
	"go.trai.ch/sling/internal/build"
	"go.trai.ch/sling/internal/engine/bundle"
)

// envPrefix prefixes the environment variables that override flags.
const envPrefix = "SLING"

// CLI represents the command line interface for sling.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
	v       *viper.Viper
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, opts app.BuildOptions) (*bundle.Generation, error)
	Serve(ctx context.Context, opts app.ServeOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "sling",
		Short:         "A JavaScript module bundler with hot reloading",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("dir", "C", "", "Run as if started in this directory")
	rootCmd.PersistentFlags().String("output-format", "auto", "Output format: auto, text, or json")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
		v:       v,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// bind makes the named flags of the running command overridable by
// SLING_<NAME> environment variables. A flag set on the command line wins.
func (c *CLI) bind(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := c.v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// dir returns the directory configuration is searched from.
func (c *CLI) dir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output-format")
	return format
}
