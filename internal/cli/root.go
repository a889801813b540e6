package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/cli/commands"
	"github.com/carrent-dev/carrent/internal/cli/config"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around opts
func NewRootCmd(opts *commands.Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "carrent",
		Short: "CarRent - command line access to a CarRent gateway",
		Long: `CarRent CLI - sign in to a CarRent gateway and inspect what your
session may access.

The gateway is chosen with --server (an alias from carrent.json or a URL),
then CARRENT_SERVER, then the first gateway in carrent.json, then
` + config.DefaultURL + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.Server, "server", "", "Gateway alias or URL (or set "+config.ServerEnv+")")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.Out, "carrent version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(opts))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts))
	rootCmd.AddCommand(commands.NewWhoamiCmd(opts))
	rootCmd.AddCommand(commands.NewCheckCmd(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd(commands.DefaultOptions()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
