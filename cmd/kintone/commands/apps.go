package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// NewAppsCommand creates the apps command group.
func NewAppsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"app"},
		Short:   "Inspect apps",
		Long:    "Display app metadata and form fields",
	}

	cmd.AddCommand(newAppsGetCommand())
	cmd.AddCommand(newAppsFieldsCommand())

	return cmd
}

func newAppsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get APP_ID",
		Short: "Get app details",
		Long:  "Display metadata of a single app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				app, err := client.Apps().Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get app: %w", err)
				}

				return render(cmd, app, func(w io.Writer) error {
					return renderProperties(w, [][]string{
						{"ID", app.AppID},
						{"Code", formatValue(app.Code)},
						{"Name", app.Name},
						{"Space", formatValue(app.SpaceID)},
						{"Created", formatTime(app.CreatedAt)},
						{"Creator", formatValue(app.Creator.Code)},
						{"Modified", formatTime(app.ModifiedAt)},
					})
				})
			})
		},
	}
}

func newAppsFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields APP_ID",
		Short: "List form fields",
		Long:  "Display the form fields of an app. Results are cached according to --cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				fields, err := client.Apps().GetFormFields(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get form fields: %w", err)
				}

				return render(cmd, fields, func(w io.Writer) error {
					codes := make([]string, 0, len(fields.Properties))
					for code := range fields.Properties {
						codes = append(codes, code)
					}

					sort.Strings(codes)

					rows := make([][]string, 0, len(codes))
					for _, code := range codes {
						property := fields.Properties[code]
						rows = append(rows, []string{
							code,
							property.Type,
							property.Label,
							strconv.FormatBool(property.Required),
							strconv.FormatBool(property.Unique),
						})
					}

					return renderTable(w, []string{"Code", "Type", "Label", "Required", "Unique"}, rows)
				})
			})
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return formatValue("")
	}

	return t.Format(time.RFC3339)
}
