package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootOptions 所有子命令共用的选项
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "docingest",
		Short:         "Crawl, clean and chunk documents for retrieval",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./config.yaml)")

	root.AddCommand(
		newIngestCmd(opts),
		newEnqueueCmd(opts),
		newWorkerCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
