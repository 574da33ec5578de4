package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// NewCommentsCommand creates the comments command group.
func NewCommentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Manage record comments",
		Long:    "List and post comments on a record",
	}

	cmd.AddCommand(newCommentsListCommand())
	cmd.AddCommand(newCommentsAddCommand())

	return cmd
}

func newCommentsListCommand() *cobra.Command {
	var (
		app   string
		order string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list RECORD_ID",
		Short: "List comments",
		Long:  "List the comments of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				resp, err := client.Comments().List(ctx, &kintone.GetRecordCommentsRequest{
					App:    app,
					Record: args[0],
					Order:  order,
					Limit:  limit,
				})
				if err != nil {
					return fmt.Errorf("failed to list comments: %w", err)
				}

				return render(cmd, resp.Comments, func(w io.Writer) error {
					rows := make([][]string, len(resp.Comments))
					for i, comment := range resp.Comments {
						rows[i] = []string{comment.ID, comment.Creator.Code, formatTime(comment.CreatedAt), comment.Text}
					}

					return renderTable(w, []string{"ID", "Creator", "Created", "Text"}, rows)
				})
			})
		},
	}

	cmd.Flags().StringVar(&app, "app", "", "app id")
	cmd.Flags().StringVar(&order, "order", "desc", "sort order (asc, desc)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum comments to return (server default when 0)")

	return cmd
}

func newCommentsAddCommand() *cobra.Command {
	var app string

	cmd := &cobra.Command{
		Use:   "add RECORD_ID TEXT",
		Short: "Post a comment",
		Long:  "Post a comment on a record",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				resp, err := client.Comments().Add(ctx, &kintone.AddRecordCommentRequest{
					App:     app,
					Record:  args[0],
					Comment: kintone.CommentContent{Text: args[1]},
				})
				if err != nil {
					return fmt.Errorf("failed to add comment: %w", err)
				}

				return render(cmd, resp, func(w io.Writer) error {
					return renderProperties(w, [][]string{{"Comment ID", resp.ID}})
				})
			})
		},
	}

	cmd.Flags().StringVar(&app, "app", "", "app id")

	return cmd
}
