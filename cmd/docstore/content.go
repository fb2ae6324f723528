package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"docstore/internal/api"
	"docstore/internal/config"
)

func newUploadCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <doc-id> <file>",
		Short: "Load a document's initial content",
		Long:  "Load a document's initial content. A document keeps its first original; later uploads are ignored.",
		Args:  requireExactlyArgs(2, "document id and file are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID, path := args[0], args[1]
			filename := strings.TrimSpace(name)
			if filename == "" {
				filename = filepath.Base(path)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.UploadContent(cmd.Context(), docID, filename, f)
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(resp)
				}
				if !resp.Loaded {
					return writePlain("document %s already has content; nothing uploaded\n", docID)
				}
				return writePlain("%s\n", formatContentLine(*resp.Content))
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "filename to record (defaults to the file's base name)")
	return cmd
}

func newContentsCmd(cfg *config.Config, out *outputFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "contents <doc-id>",
		Short: "List a document's contents",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				contents, err := client.ListContents(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return writeStructured(contents)
				}
				return writeContentList(contents)
			})
		},
	}
}

func newDownloadCmd(cfg *config.Config) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "download <content-id>",
		Short: "Write a content's bytes to a file or stdout",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if outPath == "" || outPath == "-" {
					_, err := client.DownloadContent(cmd.Context(), args[0], stdout)
					return err
				}
				return downloadToFile(cmd, client, args[0], outPath)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "destination file (default stdout); a directory uses the content's name")
	return cmd
}

// downloadToFile writes into a temp file next to the destination and
// renames it into place, so an interrupted download leaves no partial file.
func downloadToFile(cmd *cobra.Command, client *api.Client, id, dest string) error {
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		meta, err := client.GetContent(cmd.Context(), id)
		if err != nil {
			return err
		}
		dest = filepath.Join(dest, filepath.Base(meta.Name))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".docstore-download-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := client.DownloadContent(cmd.Context(), id, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", n, dest)
	return err
}
