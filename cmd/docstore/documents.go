package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docstore/internal/api"
	"docstore/internal/config"
)

func newDocCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Create, inspect and remove documents",
	}
	cmd.AddCommand(
		newDocCreateCmd(cfg, out),
		newDocShowCmd(cfg, out),
		newDocListCmd(cfg, out),
		newDocUpdateCmd(cfg, out),
		newDocDeleteCmd(cfg, out),
	)
	return cmd
}

func newDocCreateCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a document",
		Args:  requireAtLeastArgs(1, "name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.DocumentCreateRequest{
				Name:        strings.Join(args, " "),
				Description: description,
			}
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.CreateDocument(cmd.Context(), req)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(doc)
				}
				return writePlain("%s\n", doc.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "document description")
	return cmd
}

func newDocShowCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document and its contents",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.GetDocument(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(doc)
				}
				return writeDocumentDetail(doc)
			})
		},
	}
}

func newDocListCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return withClient(cfg, func(client *api.Client) error {
				docs, err := client.ListDocuments(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(docs)
				}
				return writeDocumentList(docs)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of documents (0 uses the server default)")
	return cmd
}

func newDocUpdateCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var (
		name        string
		description string
		version     int64
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or redescribe a document",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			nameSet := cmd.Flags().Changed("name")
			descSet := cmd.Flags().Changed("description")
			if !nameSet && !descSet {
				return fmt.Errorf("nothing to update: pass --name or --description")
			}

			return withClient(cfg, func(client *api.Client) error {
				req := api.DocumentUpdateRequest{}
				if nameSet {
					req.Name = &name
				}
				if descSet {
					req.Description = &description
				}
				if cmd.Flags().Changed("version") {
					req.Version = &version
				} else {
					current, err := client.GetDocument(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					req.Version = &current.Version
				}

				doc, err := client.UpdateDocument(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(doc)
				}
				return writePlain("%s v%d\n", doc.ID, doc.Version)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().Int64Var(&version, "version", 0, "expected current version (defaults to the latest)")
	return cmd
}

func newDocDeleteCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document with all of its contents",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if err := client.DeleteDocument(cmd.Context(), args[0]); err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(map[string]any{"id": args[0], "deleted": true})
				}
				return writePlain("deleted %s\n", args[0])
			})
		},
	}
}
