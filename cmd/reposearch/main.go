package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/reposearch/internal/config"
	"github.com/kailas-cloud/reposearch/internal/version"
)

type rootFlags struct {
	env        string
	configPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "reposearch",
		Short:         "Hybrid search over GitHub repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.env, "env", config.GetEnv(), "environment, selects config/<env>.yaml")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "explicit config file (overrides --env lookup)")

	root.AddCommand(
		newServeCmd(flags),
		newIngestCmd(flags),
		newSearchCmd(flags),
		newVersionCmd(),
	)
	return root
}

func (f *rootFlags) load() (config.Config, error) {
	if f.configPath != "" {
		return config.LoadFile(f.configPath)
	}
	return config.Load(f.env)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
