package main

import (
	"github.com/spf13/cobra"

	"docstore/internal/api"
	"docstore/internal/config"
)

func newFormatsCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List known formats (* marks the rendition target)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				list, err := client.ListFormats(cmd.Context())
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(list)
				}
				return writeFormats(list)
			})
		},
	}
}
