package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newIngestCmd(root *rootOptions) *cobra.Command {
	var (
		linkOpts    linkOptions
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "ingest [links...]",
		Short: "Crawl, clean and chunk links synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			links, err := linkOpts.links(cmd, args)
			if err != nil {
				return err
			}

			a, err := newApp(root.configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if concurrency <= 0 {
				concurrency = a.cfg.Crawler.Concurrency
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results, batchErr := a.pipeline.ProcessBatch(ctx, links, linkOpts.user(), concurrency)

			// 每个链接输出一行JSON结果
			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
				if err := enc.Encode(r); err != nil {
					return err
				}
			}

			if batchErr != nil {
				return fmt.Errorf("%d of %d links failed", failed, len(links))
			}
			return nil
		},
	}

	linkOpts.bind(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Links processed in parallel (default crawler.concurrency)")
	return cmd
}
