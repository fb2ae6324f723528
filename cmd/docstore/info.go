package main

import (
	"github.com/spf13/cobra"

	"docstore/internal/api"
	"docstore/internal/config"
)

func newInfoCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server, store and rendition queue info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				return writeInfo(resp)
			})
		},
	}
}
