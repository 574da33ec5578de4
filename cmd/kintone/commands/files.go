package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// NewFilesCommand creates the files command group.
func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file"},
		Short:   "Upload and download attachments",
		Long:    "Upload files to obtain a file key, and download attachments by file key",
	}

	cmd.AddCommand(newFilesUploadCommand())
	cmd.AddCommand(newFilesDownloadCommand())

	return cmd
}

func newFilesUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload PATH",
		Short: "Upload a file",
		Long:  "Upload a file and print the file key to attach to a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Clean(args[0])

			// #nosec G304 -- the path is supplied by the user running the CLI
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer func() { _ = file.Close() }()

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				resp, err := client.Files().Upload(ctx, filepath.Base(path), file)
				if err != nil {
					return fmt.Errorf("failed to upload file: %w", err)
				}

				return render(cmd, resp, func(w io.Writer) error {
					return renderProperties(w, [][]string{{"File Key", resp.FileKey}})
				})
			})
		},
	}
}

func newFilesDownloadCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download FILE_KEY",
		Short: "Download a file",
		Long:  "Download an attachment by file key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return constants.ErrInvalidFilePath
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				content, err := client.Files().Download(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to download file: %w", err)
				}

				err = os.WriteFile(filepath.Clean(output), content, constants.ConfigFilePerm)
				if err != nil {
					return fmt.Errorf("failed to write file: %w", err)
				}

				return renderProperties(cmd.OutOrStdout(), [][]string{
					{"File", output},
					{"Bytes", strconv.Itoa(len(content))},
				})
			})
		},
	}

	cmd.Flags().StringVar(&output, "out", "", "destination path")

	return cmd
}
