package main

import (
	"errors"

	"github.com/spf13/cobra"

	"docstore/internal/api"
	"docstore/internal/config"
)

var errUnhealthy = errors.New("repository is not healthy")

func newVerifyCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var (
		sweep       bool
		orphanGrace string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit contents against the blob store",
		Long: "Audit every content row against its blob and list blobs no row references.\n" +
			"Orphans older than --orphan-grace are deleted only with --sweep.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				report, err := client.Verify(cmd.Context(), api.VerifyRequest{Sweep: sweep, OrphanGrace: orphanGrace})
				if err != nil {
					return err
				}
				if out.structured() {
					err = writeStructured(report)
				} else {
					err = writeVerify(report)
				}
				if err != nil {
					return err
				}
				if len(report.Problems) > 0 {
					return errUnhealthy
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&sweep, "sweep", false, "delete orphaned blobs")
	cmd.Flags().StringVar(&orphanGrace, "orphan-grace", "", "minimum orphan age before it is reported (default 1h)")
	return cmd
}
