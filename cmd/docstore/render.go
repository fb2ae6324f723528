package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docstore/internal/api"
	"docstore/internal/config"
)

const jobPollInterval = 250 * time.Millisecond

func newRenderCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var (
		wait    time.Duration
		follow  bool
		current bool
	)

	cmd := &cobra.Command{
		Use:   "render <doc-id>",
		Short: "Render a document's original to PDF",
		Long: "Render a document's original to PDF. Originals that already are PDF are reported as skipped.\n" +
			"With --current, show the newest existing rendition instead of generating one.",
		Args: requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wait < 0 {
				return fmt.Errorf("--wait must be >= 0")
			}
			return withClient(cfg, func(client *api.Client) error {
				if current {
					rendition, err := client.GetRendition(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if out.structured() {
						return writeStructured(rendition)
					}
					return writeContentDetail(rendition)
				}

				job, err := client.RequestRendition(cmd.Context(), args[0], wait)
				if err != nil {
					return err
				}
				if follow && !job.Finished() {
					job, err = followJob(cmd.Context(), client, job.ID)
					if err != nil {
						return err
					}
				}
				if out.structured() {
					return writeStructured(job)
				}
				return writeJob(job)
			})
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long the server waits for the attempt before answering")
	cmd.Flags().BoolVar(&follow, "follow", false, "poll until the attempt finishes")
	cmd.Flags().BoolVar(&current, "current", false, "show the newest rendition without generating")
	return cmd
}

func newJobCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show a rendition attempt",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var (
					job api.JobResponse
					err error
				)
				if follow {
					job, err = followJob(cmd.Context(), client, args[0])
				} else {
					job, err = client.GetJob(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(job)
				}
				return writeJob(job)
			})
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "poll until the attempt finishes")
	return cmd
}

func followJob(ctx context.Context, client *api.Client, id string) (api.JobResponse, error) {
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()
	for {
		job, err := client.GetJob(ctx, id)
		if err != nil {
			return job, err
		}
		if job.Finished() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
