// Package cmd provides the isorender command-line interface.
//
// Configuration is resolved in this order, highest priority first:
//
//  1. Command-line flags (--port, --cache-bytes, ...)
//  2. ISORENDER_<SECTION>_<OPTION> environment variables
//  3. The file named by --config or ISORENDER_CONFIG_FILE
//  4. .isorender.yml in the working directory
//  5. Built-in defaults
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/isorender/internal/config"
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(viper.New()).Execute()
}

// NewRootCmd builds the command tree around v, which collects flags, env
// and file configuration.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "isorender",
		Short: "Server-side rendering for templ components",
		Long: `isorender renders templ components on the server in rounds until their
async data settles, wraps them in an HTML document carrying build, config
and state payloads, and serves the result through a byte-bounded cache.

Quick Start:
  isorender serve                 Start the server on localhost:8080
  isorender serve --dev           Start with live reload
  isorender config                Print the effective configuration
  isorender version               Print version information`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			used, err := config.Init(v, cfgFile)
			if err != nil {
				return err
			}
			if used != "" {
				cmd.PrintErrln("Using config file:", used)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .isorender.yml, can also use ISORENDER_CONFIG_FILE)")
	root.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")
	bindFlags(v, root.PersistentFlags(), map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
	})

	root.AddCommand(
		newServeCmd(v),
		newVersionCmd(),
		newConfigCmd(v),
	)
	return root
}
