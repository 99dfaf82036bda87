package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyerfyer/doc-ingest/pkg/taskqueue"
	"github.com/spf13/cobra"
)

func newEnqueueCmd(root *rootOptions) *cobra.Command {
	var (
		linkOpts linkOptions
		wait     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "enqueue [links...]",
		Short: "Push links to the task queue for workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			links, err := linkOpts.links(cmd, args)
			if err != nil {
				return err
			}

			a, err := newApp(root.configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			user := linkOpts.user()
			enc := json.NewEncoder(cmd.OutOrStdout())

			taskIDs := make([]string, 0, len(links))
			for _, link := range links {
				payload := &taskqueue.IngestLinkPayload{Link: link, UserID: user.ID, UserFullName: user.FullName}
				taskID, err := a.queue.Enqueue(ctx, taskqueue.TaskIngestLink, link, payload)
				if err != nil {
					return fmt.Errorf("failed to enqueue %s: %w", link, err)
				}
				taskIDs = append(taskIDs, taskID)
				if wait == 0 {
					if err := enc.Encode(map[string]string{"link": link, "task_id": taskID}); err != nil {
						return err
					}
				}
			}

			if wait == 0 {
				return nil
			}

			failed := 0
			for _, taskID := range taskIDs {
				task, err := a.queue.WaitForTask(ctx, taskID, wait)
				if err != nil {
					return fmt.Errorf("failed to wait for task %s: %w", taskID, err)
				}
				if task.Status == taskqueue.StatusFailed {
					failed++
				}
				if err := enc.Encode(task); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", failed, len(taskIDs))
			}
			return nil
		},
	}

	linkOpts.bind(cmd)
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for each task to finish")
	return cmd
}
